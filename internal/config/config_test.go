package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Name: "coating_shop", User: "coating_shop"},
		Redis:    RedisConfig{Enabled: true, Host: "localhost"},
		JWT:      JWTConfig{Secret: strings.Repeat("s", 32)},
		Fulfillment: FulfillmentConfig{
			MinCancelReasonLength: 5,
			PaidTolerance:         "0.01",
			DefaultItemUnit:       "CX",
			DefaultItemMinimum:    "5",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT_SECRET"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "DB_DRIVER"},
		{"memory driver skips db host", func(c *Config) { c.Database.Driver = "memory"; c.Database.Host = "" }, ""},
		{"redis disabled skips host", func(c *Config) { c.Redis.Enabled = false; c.Redis.Host = "" }, ""},
		{"redis enabled needs host", func(c *Config) { c.Redis.Host = "" }, "REDIS_HOST"},
		{"bad tolerance", func(c *Config) { c.Fulfillment.PaidTolerance = "abc" }, "PAID_TOLERANCE"},
		{"zero reason length", func(c *Config) { c.Fulfillment.MinCancelReasonLength = 0 }, "CANCEL_REASON_MIN_LENGTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestPaidTolerance(t *testing.T) {
	cfg := validConfig()
	if got := cfg.PaidTolerance().String(); got != "0.01" {
		t.Fatalf("PaidTolerance() = %s", got)
	}
	if got := cfg.DefaultItemMinimum().String(); got != "5" {
		t.Fatalf("DefaultItemMinimum() = %s", got)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "x")
	t.Setenv("TEST_SLICE", "a,b")
	t.Setenv("TEST_FLOAT", "0.25")

	if got := getEnvAsInt("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvAsInt = %d", got)
	}
	if got := getEnvAsInt("TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt fallback = %d", got)
	}
	if got := getEnvAsSlice("TEST_SLICE", nil); len(got) != 2 || got[1] != "b" {
		t.Errorf("getEnvAsSlice = %v", got)
	}
	if got := getEnvAsFloat("TEST_FLOAT", 1); got != 0.25 {
		t.Errorf("getEnvAsFloat = %v", got)
	}
}
