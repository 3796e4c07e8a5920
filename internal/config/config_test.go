package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OWNER_EMAILS", " boss@example.com , ,second@example.com")
	t.Setenv("ROLE_CACHE_TTL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 10*time.Minute, cfg.RoleCacheTTL)
	assert.Equal(t, []string{"boss@example.com", "second@example.com"}, cfg.OwnerEmails)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestExpenseLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{ExpenseTimezone: "Nowhere/Invalid"}
	assert.Equal(t, time.UTC, cfg.ExpenseLocation())
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 42, parseInt("42", 7))
	assert.Equal(t, 7, parseInt("x", 7))
	assert.Equal(t, 7, parseInt("-3", 7))
}
