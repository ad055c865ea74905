package cache

import (
	"context"
	"testing"

	"github.com/zacharykka/campaign-console/internal/config"
	"go.uber.org/zap"
)

func TestNewDisabledWithoutAddr(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{Addr: "  "}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error got %v", err)
	}
	if client != nil {
		t.Fatalf("expected nil client when redis is not configured")
	}
}

func TestHealthNilClient(t *testing.T) {
	if err := Health(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
