package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"          json:"id"`
	Name      string          `gorm:"not null"                      json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"unit_price"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Cart is the single active cart of a user. It is emptied after checkout, never deleted.
type Cart struct {
	ID     uint       `gorm:"primaryKey"                       json:"id"`
	UserID uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"   json:"user_id"`
	Lines  []CartLine `gorm:"constraint:OnDelete:CASCADE"      json:"lines"`
}

type CartLine struct {
	ID        uint      `gorm:"primaryKey"                                   json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_product"        json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID"                         json:"product"`
	Quantity  uint      `gorm:"not null;check:quantity>0"                    json:"quantity"`
}

type OrderStatus int

const (
	OrderStatusPending   OrderStatus = 1
	OrderStatusConfirmed OrderStatus = 2
	OrderStatusCancelled OrderStatus = 3
)

// CommitState tracks how far the order commit got. Header and lines are separate writes.
type CommitState string

const (
	CommitHeaderCreated CommitState = "header_created"
	CommitLinesAttached CommitState = "lines_attached"
	CommitLinesPartial  CommitState = "lines_partial"
	CommitReconciled    CommitState = "reconciled"
)

func (s CommitState) IsTerminal() bool {
	return s == CommitLinesAttached || s == CommitReconciled
}

type Order struct {
	ID             uint            `gorm:"primaryKey"                          json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;index;not null;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null"         json:"amount"`
	Name           string          `gorm:"not null"                            json:"name"`
	Address        string          `gorm:"not null"                            json:"address"`
	PhoneNumber    string          `gorm:"not null"                            json:"phone_number"`
	Description    string          `gorm:"type:varchar(255)"                   json:"description"`
	Status         OrderStatus     `gorm:"not null;default:1"                  json:"status"`
	CommitState    CommitState     `gorm:"type:varchar(32);index;not null"     json:"commit_state"`
	ExpectedLines  int             `gorm:"not null"                            json:"expected_lines"`
	Snapshot       string          `gorm:"type:text;not null"                  json:"-"`
	IdempotencyKey string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_orders_user_idempotency" json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
	Lines          []OrderLine     `json:"lines,omitempty"`
}

type OrderLine struct {
	ID        uint            `gorm:"primaryKey"                                     json:"id"`
	OrderID   uint            `gorm:"not null;uniqueIndex:idx_order_product"         json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_product" json:"product_id"`
	Quantity  uint            `gorm:"not null;check:quantity>0"                      json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"unit_price"`
}

// SnapshotLine is one cart line as captured when an order is submitted.
type SnapshotLine struct {
	CartLineID uint            `json:"cart_line_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   uint            `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}
