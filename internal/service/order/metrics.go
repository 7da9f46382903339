package order

import (
	"expvar"
	"sync"
)

const (
	CounterOrdersCreated          = "orders_created"
	CounterStockAdjusted          = "stock_adjusted"
	CounterStockMissingProduct    = "stock_missing_product"
	CounterStockNegative          = "stock_negative"
	CounterPaymentSessionsCreated = "payment_sessions_created"
	CounterPaymentSessionFailures = "payment_session_failures"
)

// Metrics counts checkout step outcomes. Oversold stock shows up in
// stock_negative.
type Metrics struct {
	m *expvar.Map
}

// NewMetrics returns counters that are not exported anywhere.
func NewMetrics() *Metrics {
	return &Metrics{m: new(expvar.Map).Init()}
}

var (
	publishOnce sync.Once
	published   *Metrics
)

// PublishedMetrics returns the process-wide counters served under
// "checkout" at /debug/vars.
func PublishedMetrics() *Metrics {
	publishOnce.Do(func() {
		published = &Metrics{m: expvar.NewMap("checkout")}
	})
	return published
}

func (m *Metrics) inc(name string) {
	if m == nil {
		return
	}
	m.m.Add(name, 1)
}

// Value reads a counter; unknown names are zero.
func (m *Metrics) Value(name string) int64 {
	if m == nil {
		return 0
	}
	v, ok := m.m.Get(name).(*expvar.Int)
	if !ok {
		return 0
	}
	return v.Value()
}
