package models

import "time"

// SessionStatus is the administrative state of a counting session.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// Item is a catalog item looked up during counting.
type Item struct {
	SKU       string    `json:"sku"`
	Barcode   string    `json:"barcode,omitempty"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is a stock verification session for a single warehouse zone.
// Version is the server-side optimistic-locking counter; it advances on
// every accepted mutation and is echoed back in every server response.
type Session struct {
	ID          string        `json:"id"`
	WarehouseID string        `json:"warehouse_id"`
	Zone        string        `json:"zone,omitempty"`
	Status      SessionStatus `json:"status"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CountLine is a single counted quantity for an item within a session.
type CountLine struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ItemSKU    string    `json:"item_sku"`
	CountedQty int64     `json:"counted_qty"`
	Version    int64     `json:"version"`
	CountedAt  time.Time `json:"counted_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UnknownItem records a physical item found on the shelf that has no
// catalog match. Created once, never updated from the client.
type UnknownItem struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Barcode     string    `json:"barcode,omitempty"`
	Description string    `json:"description"`
	Qty         int64     `json:"qty"`
	ReportedAt  time.Time `json:"reported_at"`
}
