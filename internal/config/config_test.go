package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "test-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timezone != "Asia/Tokyo" {
		t.Fatalf("want Asia/Tokyo default, got %s", cfg.Timezone)
	}
	if cfg.LowStockThreshold != 10 {
		t.Fatalf("want threshold 10, got %v", cfg.LowStockThreshold)
	}
	if cfg.SendTimeout != 10*time.Second {
		t.Fatalf("want 10s send timeout, got %v", cfg.SendTimeout)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "Asia/Tokyo" {
		t.Fatalf("want Asia/Tokyo location, got %s", loc)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	// t.Setenv registers the restore; the variable must be absent, not empty.
	t.Setenv("BOT_TOKEN", "placeholder")
	_ = os.Unsetenv("BOT_TOKEN")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without BOT_TOKEN")
	}
}

func TestLoad_RejectsNonPositiveThreshold(t *testing.T) {
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("LOW_STOCK_THRESHOLD_DAYS", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}

func TestLocation_BadZone(t *testing.T) {
	cfg := Config{Timezone: "Mars/Olympus"}
	if _, err := cfg.Location(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
