package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderCreated struct {
	Type          string          `json:"type"`
	OrderID       uuid.UUID       `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PaymentMethod string          `json:"payment_method"`
	At            time.Time       `json:"at"`
}

type OrderStatusUpdated struct {
	Type        string    `json:"type"`
	OrderID     uuid.UUID `json:"order_id"`
	Status      string    `json:"status"`
	IsPaid      bool      `json:"is_paid"`
	IsDelivered bool      `json:"is_delivered"`
	At          time.Time `json:"at"`
}

type ProductChanged struct {
	Type      string    `json:"type"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name,omitempty"`
	At        time.Time `json:"at"`
}

type UserEvent struct {
	Type   string    `json:"type"`
	UserID uuid.UUID `json:"user_id"`
	At     time.Time `json:"at"`
}
