package config

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	log.SetOutput(io.Discard)
	t.Setenv("GATEWAY_TIMEOUT", "")
	t.Setenv("PRODUCT_SERVICE_BASEURL", "")
	t.Setenv("RUN_MIGRATIONS", "")
	t.Setenv("USER_SERVICE_LISTEN", "")

	cfg := Load()

	assert.Equal(t, ":8082", cfg.OrderSvcAddr)
	assert.Equal(t, ":50051", cfg.UserSvcListen)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, time.Hour, cfg.PrincipalCacheTTL)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.ProductSvcBaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	log.SetOutput(io.Discard)
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("PRINCIPAL_CACHE_TTL", "bogus")
	t.Setenv("PRODUCT_SERVICE_BASEURL", "http://product:8081/")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, time.Hour, cfg.PrincipalCacheTTL)
	assert.Equal(t, "http://product:8081", cfg.ProductSvcBaseURL)
	assert.False(t, cfg.RunMigrations)
}
