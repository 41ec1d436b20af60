// Replays a recorded toolCall batch through the dispatcher against the mock
// partner service, printing the response batch and the audit turns it left
// behind. Useful for checking handler payloads without a live connection:
//
//	go run scripts/replay_batch.go -batch batch.json -profile support
//
// The batch file holds a JSON array of function calls:
//
//	[{"id":"call-1","name":"get_voucher_status","args":{"voucherId":"VOUCHER123"}}]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hokaccha/go-prettyjson"

	backendmock "github.com/renandav/livia/pkg/backend/mock"
	"github.com/renandav/livia/pkg/dispatch"
	"github.com/renandav/livia/pkg/livia"
	"github.com/renandav/livia/pkg/tool"
	"github.com/renandav/livia/pkg/turnlog"
)

func main() {
	configPath := flag.String("config", "", "optional config yaml for dispatch settings")
	batchPath := flag.String("batch", "", "path to a JSON array of function calls; empty runs a sample batch")
	profile := flag.String("profile", "", "profile override; defaults to the config profile")
	latency := flag.Duration("latency", 0, "simulated partner latency")
	flag.Parse()

	cfg, err := livia.LoadConfig(*configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if *profile != "" {
		cfg.Profile = *profile
	}
	if !livia.KnownProfile(cfg.Profile) {
		fmt.Println("unknown profile:", cfg.Profile)
		os.Exit(1)
	}

	batch, err := loadBatch(*batchPath)
	if err != nil {
		fmt.Println("batch error:", err)
		os.Exit(1)
	}

	svc := backendmock.NewPartnerService(backendmock.Config{Latency: *latency})
	mux := livia.BuildHandlerMux(cfg.Profile, svc)
	store := turnlog.NewMemoryStore(0)
	d := dispatch.New(mux, nil, dispatch.Options{
		MaxConcurrency: cfg.Dispatch.MaxConcurrency,
		HandlerTimeout: cfg.Dispatch.HandlerTimeout,
		SessionID:      "replay",
		Store:          store,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results := d.Dispatch(ctx, batch)

	out, err := prettyjson.Marshal(results)
	if err != nil {
		fmt.Println("marshal error:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	turns, err := store.Recent(ctx, 0)
	if err == nil && len(turns) > 0 {
		fmt.Println("--- audit turns ---")
		for _, t := range turns {
			fmt.Printf("[%s] %s\n", t.Role, t.Text)
		}
	}
}

func loadBatch(path string) ([]tool.FunctionCall, error) {
	if path == "" {
		return sampleBatch(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batch []tool.FunctionCall
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	return batch, nil
}

func sampleBatch() []tool.FunctionCall {
	return []tool.FunctionCall{
		{ID: "call-1", Name: "get_voucher_status", Args: map[string]any{"voucherId": "VOUCHER123"}},
		{ID: "call-2", Name: "get_voucher_status", Args: map[string]any{"customerEmail": "expired@example.com"}},
		{ID: "call-3", Name: "insert_daily_report", Args: map[string]any{"issuedVouchers": 12, "issuesNote": "terminal offline 10:00-10:20"}},
		{ID: "call-4", Name: "render_chart", Args: map[string]any{"chartSpec": "{}"}},
	}
}
