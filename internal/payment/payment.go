// Package payment opens hosted checkout sessions with an external card
// processor.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	Name       string
	UnitAmount int64 // minor units
	Quantity   int64
}

type SessionRequest struct {
	OrderID    string
	Currency   string
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID       string            `json:"id"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata"`
}

// Provider creates checkout sessions. A nil Provider means card sessions
// are not configured.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// MinorUnits converts a major-unit amount to the provider's integer
// representation, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// CallbackURLs are where the processor sends the buyer back to.
func CallbackURLs(clientURL, orderID string) (success, cancel string) {
	base := strings.TrimRight(clientURL, "/")
	success = fmt.Sprintf("%s/orders/%s?status=success", base, orderID)
	cancel = fmt.Sprintf("%s/orders/%s?status=cancel", base, orderID)
	return success, cancel
}
