package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ODOO_URL", " https://erp.example.com ")
	t.Setenv("ODOO_DB", "prod")
	t.Setenv("ODOO_USERNAME", "portal@example.com")
	t.Setenv("ODOO_API_KEY", "secret")
	t.Setenv("ODOO_PROTOCOL", "XMLRPC")
	t.Setenv("ODOO_TIMEOUT", "15s")
	t.Setenv("ODOO_SKIP_TLS_VERIFY", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com/, ,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://erp.example.com", cfg.Odoo.URL)
	assert.Equal(t, "prod", cfg.Odoo.DB)
	assert.Equal(t, "xmlrpc", cfg.Odoo.Protocol)
	assert.Equal(t, 15*time.Second, cfg.Odoo.Timeout)
	assert.True(t, cfg.Odoo.SkipTLSVerify)
	assert.Equal(t, "tour.passenger", cfg.Odoo.PassengerModel)
	assert.Equal(t, "tour.departure", cfg.Odoo.DepartureModel)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.NoError(t, cfg.Odoo.Validate())
}

func TestLoad_NegativeTimeout(t *testing.T) {
	t.Setenv("ODOO_TIMEOUT", "-1s")

	_, err := Load()
	require.Error(t, err)
}

func TestOdooConfig_ValidateNamesMissingKeys(t *testing.T) {
	err := OdooConfig{URL: "https://erp.example.com", Username: "u"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfig))
	assert.Contains(t, err.Error(), "ODOO_DB")
	assert.Contains(t, err.Error(), "ODOO_API_KEY")
	assert.NotContains(t, err.Error(), "ODOO_URL")
}

func TestCORSConfig_ResolvedDefaultOrigin(t *testing.T) {
	assert.Equal(t, "*", CORSConfig{}.ResolvedDefaultOrigin())
	assert.Equal(t, "https://a.example.com", CORSConfig{AllowedOrigins: []string{"https://a.example.com"}}.ResolvedDefaultOrigin())
	assert.Equal(t, "https://site.example.com", CORSConfig{
		AllowedOrigins: []string{"https://a.example.com"},
		DefaultOrigin:  "https://site.example.com",
	}.ResolvedDefaultOrigin())
}
