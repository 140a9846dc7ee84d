package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicCart  = "cart_events"
	TopicOrder = "order_events"

	TypeCartLineAdded   = "cart_line_added"
	TypeCartLineUpdated = "cart_line_updated"
	TypeCartLineDeleted = "cart_line_deleted"
	TypeCartPurged      = "cart_purged"
	TypeOrderPlaced     = "order_placed"
	TypeOrderLineFailed = "order_line_failed"
	TypeOrderReconciled = "order_reconciled"
)

type CartLineEvent struct {
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	LineID    uint      `json:"line_id"`
	ProductID uuid.UUID `json:"product_id,omitempty"`
	Quantity  uint      `json:"quantity,omitempty"`
}

type CartPurged struct {
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	Requested int       `json:"requested"`
	Deleted   int       `json:"deleted"`
	Failed    []uint    `json:"failed,omitempty"`
}

type OrderPlaced struct {
	Type          string          `json:"type"`
	OrderID       uint            `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	ExpectedLines int             `json:"expected_lines"`
	AttachedLines int             `json:"attached_lines"`
	CommitState   string          `json:"commit_state"`
}

type OrderLineFailed struct {
	Type      string    `json:"type"`
	OrderID   uint      `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}

type OrderReconciled struct {
	Type     string `json:"type"`
	OrderID  uint   `json:"order_id"`
	Attached int    `json:"attached"`
}
