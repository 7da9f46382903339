package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var Categories = []string{"electronics", "clothing", "books", "home", "sports", "other"}

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"                 json:"id"`
	Name        string          `gorm:"size:100;not null"                    json:"name"`
	Description string          `gorm:"size:2000;not null"                   json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;index:idx_category_price,priority:2" json:"price"`
	Category    string          `gorm:"not null;index:idx_category_price,priority:1"                    json:"category"`
	Brand       string          `gorm:"not null"                             json:"brand"`
	Images      []string        `gorm:"serializer:json"                      json:"images"`
	Stock       int             `gorm:"not null;default:0"                   json:"stock"`
	Rating      float64         `gorm:"default:0"                            json:"rating"`
	NumReviews  int             `gorm:"default:0"                            json:"num_reviews"`
	Tags        []string        `gorm:"serializer:json"                      json:"tags"`
	IsFeatured  bool            `gorm:"default:false"                        json:"is_featured"`
	Discount    int             `gorm:"default:0"                            json:"discount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	DiscountedPrice decimal.Decimal `gorm:"-" json:"discounted_price"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Product) AfterFind(tx *gorm.DB) error {
	p.DiscountedPrice = p.PriceAfterDiscount()
	return nil
}

func (p *Product) AfterSave(tx *gorm.DB) error {
	p.DiscountedPrice = p.PriceAfterDiscount()
	return nil
}

// PriceAfterDiscount is price * (1 - discount/100), rounded to cents.
func (p *Product) PriceAfterDiscount() decimal.Decimal {
	factor := decimal.NewFromInt(100 - int64(p.Discount)).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}
