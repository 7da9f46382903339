package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProduct_PriceAfterDiscount(t *testing.T) {
	tests := []struct {
		price    string
		discount int
		want     string
	}{
		{"1000", 0, "1000"},
		{"1000", 15, "850"},
		{"19.99", 100, "0"},
		{"33.33", 33, "22.33"},
	}
	for _, tt := range tests {
		p := Product{Price: decimal.RequireFromString(tt.price), Discount: tt.discount}
		assert.True(t, decimal.RequireFromString(tt.want).Equal(p.PriceAfterDiscount()), "price %s discount %d got %s", tt.price, tt.discount, p.PriceAfterDiscount())
	}
}

func TestOrderItem_LineTotal(t *testing.T) {
	it := OrderItem{UnitPrice: decimal.RequireFromString("12.50"), Quantity: 3}
	assert.Equal(t, "37.5", it.LineTotal().String())
}

func TestIsKnownStatus(t *testing.T) {
	for _, s := range OrderStatuses {
		assert.True(t, IsKnownStatus(s))
	}
	assert.False(t, IsKnownStatus("refunded"))
	assert.False(t, IsKnownStatus(""))
}

func TestIsMoney(t *testing.T) {
	for in, want := range map[string]bool{
		"10":     true,
		"10.5":   true,
		"10.25":  true,
		"10.250": true,
		"10.251": false,
		"0.005":  false,
	} {
		assert.Equal(t, want, IsMoney(decimal.RequireFromString(in)), in)
	}
}
