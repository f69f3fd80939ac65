package cache

import (
	"testing"
	"time"

	"github.com/edulytic/mastery-service/internal/platform/config"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResultTTL(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		want    time.Duration
	}{
		{"configured", 30, 30 * time.Minute},
		{"zero falls back", 0, 15 * time.Minute},
		{"negative falls back", -5, 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultTTL(config.CacheConfig{ResultTTL: tt.minutes})
			if got != tt.want {
				t.Errorf("resultTTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, config.CacheConfig{URL: "redis://localhost:59999"})
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}
