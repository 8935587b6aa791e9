package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}
	if cfg.DB.Driver != DriverMySQL {
		t.Fatalf("expected default driver mysql, got %q", cfg.DB.Driver)
	}
	if cfg.Shop.OrderPrefix != "ORD" {
		t.Fatalf("unexpected order prefix %q", cfg.Shop.OrderPrefix)
	}
	if got := cfg.Shop.Threshold().String(); got != "5000" {
		t.Fatalf("unexpected free shipping threshold %s", got)
	}
	if got := cfg.Shop.ShippingFee().String(); got != "200" {
		t.Fatalf("unexpected flat fee %s", got)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_InvalidShippingFee(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvFlatShippingFee, "two hundred")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid shipping fee to fail")
	}
}

func TestLoad_BuildsMySQLDSNFromParts(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvDBDSN); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvDBDSN, err)
	}
	t.Setenv(EnvDBHost, "db")
	t.Setenv(EnvDBUser, "shop")
	t.Setenv(EnvDBPass, "secret")
	t.Setenv(EnvDBName, "resinart")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if !strings.HasPrefix(cfg.DB.DSN, "shop:secret@tcp(db:3306)/resinart?") {
		t.Fatalf("unexpected dsn %q", cfg.DB.DSN)
	}
	if !strings.Contains(cfg.DB.DSN, "parseTime=True") {
		t.Fatalf("expected parseTime in dsn %q", cfg.DB.DSN)
	}
}

func TestLoad_MissingDBParts(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvDBDSN); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvDBDSN, err)
	}

	_, err := Load()
	if err == nil {
		t.Fatal("expected missing db parts to fail")
	}
	if !strings.Contains(err.Error(), EnvDBHost) {
		t.Fatalf("expected error to name %s, got %v", EnvDBHost, err)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvDBDSN, "shop:pass@tcp(localhost:3306)/resinart?parseTime=True")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvJWTSecret, "secret")
	t.Setenv(EnvJWTIssuer, "resinart")
	t.Setenv(EnvJWTExpMins, "60")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "production"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}
