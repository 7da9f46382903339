package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses. Any status may follow any other; admins patch the field
// directly and there is no transition table.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// MoneyScale is the number of decimal places every stored amount carries.
const MoneyScale = 2

// IsMoney reports whether d fits the stored money columns without rounding.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

const (
	PaymentCard           = "card"
	PaymentCashOnDelivery = "cash_on_delivery"
)

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"    json:"order_id"`
	Position  int             `gorm:"not null"                    json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;index;not null"    json:"product_id"`
	Name      string          `gorm:"not null"                    json:"name"`
	Image     string          `gorm:"not null"                    json:"image"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null"                    json:"quantity"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"                          json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null"                      json:"user_id"`
	Owner           *User           `gorm:"foreignKey:UserID"                             json:"user,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"             json:"shipping_address"`
	PaymentMethod   string          `gorm:"not null"                                      json:"payment_method"`
	ItemsTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"                   json:"items_total"`
	TaxTotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"                   json:"tax_total"`
	ShippingTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null"                   json:"shipping_total"`
	GrandTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"                   json:"grand_total"`
	Status          string          `gorm:"not null;index"                                json:"status"`
	IsPaid          bool            `gorm:"not null;default:false"                        json:"is_paid"`
	IsDelivered     bool            `gorm:"not null;default:false"                        json:"is_delivered"`
	CreatedAt       time.Time       `gorm:"index"                                         json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func IsKnownStatus(s string) bool {
	return slices.Contains(OrderStatuses, s)
}

// All returns every model for AutoMigrate.
func All() []any {
	return []any{&User{}, &RefreshToken{}, &Product{}, &Order{}, &OrderItem{}}
}
