// SPDX-License-Identifier: Apache-2.0

// Package adapter provides the transport layer between the sync engine and
// the warehouse service.
//
// The primary abstraction is [RemoteClient], which decouples the engine from
// the wire protocol. The package ships an HTTP/REST implementation
// ([NewHTTPRemoteClient]) built on resty. Every mutation carries the
// client-generated queue-item id as an idempotency key so the server can
// deduplicate retried deliveries.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrConflict] for 409, [ErrUnavailable] for 5xx).
package adapter

import (
	"context"

	"github.com/mknoufi/stockverify/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_client_mock.go -package=mock

// RemoteClient defines transport-agnostic communication with the warehouse
// service. Implementations are responsible for serialisation, bearer-token
// management, and mapping transport-level errors to the sentinel values
// defined in this package.
//
// The idempotencyKey parameter of every mutation is the client-generated
// queue-item id; the server must treat a replayed delivery with the same key
// as already applied.
type RemoteClient interface {
	// CreateSession registers a new counting session. Returns the
	// canonical server record used to refresh the local cache.
	CreateSession(ctx context.Context, idempotencyKey string, m models.SessionMutation) (models.Session, error)

	// UpdateSessionStatus pushes a session status transition (close or
	// reopen) generated against m.BaseVersion. Returns [ErrConflict]
	// (wrapped, with the server's current record) when the session's
	// version has advanced past the base.
	UpdateSessionStatus(ctx context.Context, idempotencyKey string, m models.SessionMutation) (models.Session, error)

	// CreateCountLine records a counted quantity within a session.
	CreateCountLine(ctx context.Context, idempotencyKey string, m models.CountLineMutation) (models.CountLine, error)

	// UpdateCountLine pushes an edited quantity generated against
	// m.BaseVersion. Returns [ErrConflict] (wrapped) on a version
	// conflict.
	UpdateCountLine(ctx context.Context, idempotencyKey string, m models.CountLineMutation) (models.CountLine, error)

	// CreateUnknownItem reports a shelf item without a catalog match.
	CreateUnknownItem(ctx context.Context, idempotencyKey string, m models.UnknownItemMutation) (models.UnknownItem, error)

	// SearchItems looks up catalog items matching query.
	SearchItems(ctx context.Context, query string) ([]models.Item, error)
}

// TokenSource supplies the bearer token attached to every request. It is the
// boundary to the authentication collaborator: the adapter asks for a refresh
// exactly once when a request answers 401, then replays the request.
type TokenSource interface {
	// Token returns the current bearer token, or an empty string when the
	// client is not authenticated.
	Token() string

	// Refresh obtains a fresh token, invalidating the previous one.
	Refresh(ctx context.Context) (string, error)
}
