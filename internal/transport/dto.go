package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prockx/storefront/internal/models"
)

type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func OK(data any) Envelope { return Envelope{Status: "success", Data: data} }

type ErrorBody struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type PageMeta struct {
	Page    int   `json:"page"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// auth

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserSummary struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	AvatarURL string         `json:"avatar_url"`
	Address   models.Address `json:"address"`
	Phone     string         `json:"phone"`
}

func SummaryOf(u *models.User) UserSummary {
	return UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		Address:   u.Address,
		Phone:     u.Phone,
	}
}

type AuthResponse struct {
	User  UserSummary `json:"user"`
	Token string      `json:"token"`
}

// users

type UpdateProfileRequest struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Address   *models.Address `json:"address"`
	Phone     string          `json:"phone"`
	AvatarURL string          `json:"avatar_url"`
}

// products

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Images      []string        `json:"images"`
	Stock       int             `json:"stock"`
	Rating      float64         `json:"rating"`
	NumReviews  int             `json:"num_reviews"`
	Tags        []string        `json:"tags"`
	IsFeatured  bool            `json:"is_featured"`
	Discount    int             `json:"discount"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Brand       *string          `json:"brand"`
	Images      *[]string        `json:"images"`
	Stock       *int             `json:"stock"`
	Rating      *float64         `json:"rating"`
	NumReviews  *int             `json:"num_reviews"`
	Tags        *[]string        `json:"tags"`
	IsFeatured  *bool            `json:"is_featured"`
	Discount    *int             `json:"discount"`
}

type ProductQuery struct {
	Page     int
	Limit    int
	Category string
	Brand    string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Featured bool
}

type ProductList struct {
	Products   []models.Product `json:"products"`
	Pagination PageMeta         `json:"pagination"`
}

// orders

type LineItemInput struct {
	ProductID *uuid.UUID       `json:"product_id"`
	Name      string           `json:"name"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Quantity  int              `json:"quantity"`
	Image     string           `json:"image"`
}

type AddressInput struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// CreateOrderRequest is what the storefront submits at checkout. TotalPrice
// is accepted for compatibility and ignored.
type CreateOrderRequest struct {
	OrderItems      []LineItemInput  `json:"order_items"`
	ShippingAddress *AddressInput    `json:"shipping_address"`
	PaymentMethod   string           `json:"payment_method"`
	TaxPrice        *decimal.Decimal `json:"tax_price"`
	ShippingPrice   *decimal.Decimal `json:"shipping_price"`
	TotalPrice      *decimal.Decimal `json:"total_price"`
}

type UpdateOrderStatusRequest struct {
	Status      *string `json:"status"`
	IsPaid      *bool   `json:"is_paid"`
	IsDelivered *bool   `json:"is_delivered"`
}
