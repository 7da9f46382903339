package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("CLIENT_URL", "https://shop.example")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("ES_URL", "")
	t.Setenv("PAYMENT_CURRENCY", "")
	t.Setenv("AUTH_RATE_LIMIT", "")

	cfg := FromEnv()

	assert.Equal(t, "https://shop.example", cfg.ClientURL)
	assert.Equal(t, []string{"https://shop.example"}, cfg.CORSOrigins)
	assert.Equal(t, "kzt", cfg.PaymentCurrency)
	assert.Equal(t, 15, cfg.AuthRateLimit)
	assert.False(t, cfg.PaymentsEnabled())
	assert.False(t, cfg.SearchEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")
	t.Setenv("ES_URL", "http://es:9200")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CSRF_ENABLED", "true")
	t.Setenv("API_RATE_LIMIT", "250")

	cfg := FromEnv()

	assert.True(t, cfg.PaymentsEnabled())
	assert.True(t, cfg.SearchEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.CSRFEnabled)
	assert.Equal(t, 250, cfg.APIRateLimit)
}
