package turnlog

import (
	"context"
	"os"
	"testing"
	"time"
)

// Redis tests need a running server; set LIVIA_TEST_REDIS_ADDR to enable.
func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("LIVIA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LIVIA_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := OpenRedisStore(ctx, RedisConfig{
		Addr:       addr,
		Key:        "livia:test:turns:" + time.Now().Format("150405.000"),
		MaxEntries: 5,
		TTL:        time.Minute,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	for _, text := range []string{"a", "b", "c", "d", "e", "f"} {
		if err := s.AddTurn(ctx, Turn{Role: RoleSystem, Text: text, IsFinal: true}); err != nil {
			t.Fatalf("add turn: %v", err)
		}
	}
	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 5 || got[0].Text != "b" || got[4].Text != "f" {
		t.Fatalf("expected capped list, got %+v", got)
	}
}
