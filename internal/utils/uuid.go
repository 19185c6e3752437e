package utils

import "github.com/google/uuid"

// UUIDGenerator issues client-side mutation ids. Version 7 uuids carry a
// millisecond timestamp prefix plus a random suffix, so ids generated in
// order also sort in order and double as idempotency keys on the wire.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a new UUIDv7 string, falling back to a random v4 uuid if
// the entropy source fails.
func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
