package livia

import (
	"context"
	"testing"

	"github.com/renandav/livia/pkg/backend"
	backendmock "github.com/renandav/livia/pkg/backend/mock"
	"github.com/renandav/livia/pkg/support"
	"github.com/renandav/livia/pkg/tool"
)

func TestBuildRegistryGenericProfile(t *testing.T) {
	reg, err := BuildRegistry(ProfileGeneric, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("generic profile should declare only display tools, got %d", reg.Len())
	}
	d, ok := reg.Lookup(ToolRenderChart)
	if !ok || !d.Enabled {
		t.Fatalf("render_chart missing or disabled: %+v", d)
	}
	if d.Parameters == nil || d.Parameters.Properties["chartSpec"] == nil {
		t.Fatalf("render_chart schema missing chartSpec: %+v", d.Parameters)
	}
}

func TestBuildRegistrySupportProfileOrder(t *testing.T) {
	reg, err := BuildRegistry(ProfileSupport, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{ToolRenderChart, support.ToolVoucherStatus, support.ToolDailyReport}
	defs := reg.Definitions()
	if len(defs) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(defs))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Fatalf("tool %d: expected %q, got %q", i, name, defs[i].Name)
		}
	}
}

func TestBuildRegistryDisabledToolsKeepSlot(t *testing.T) {
	reg, err := BuildRegistry(ProfileSupport, []string{ToolRenderChart, " get_voucher_status "})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	decls := reg.Declarations()
	if len(decls) != 1 || decls[0].Name != support.ToolDailyReport {
		t.Fatalf("disabled tools leaked into declarations: %+v", decls)
	}
	// A stale model-side call must still resolve against the registry.
	if _, ok := reg.Lookup(ToolRenderChart); !ok {
		t.Fatal("disabled tool lost its registry slot")
	}
	if d, _ := reg.Lookup(support.ToolVoucherStatus); d.Enabled {
		t.Fatal("disabled tool still enabled")
	}
}

func TestBuildRegistryUnknownProfile(t *testing.T) {
	if _, err := BuildRegistry("concierge", nil); err == nil {
		t.Fatal("expected unknown profile to error")
	}
}

func TestBuildHandlerMuxPerProfile(t *testing.T) {
	svc := backendmock.NewPartnerService(backendmock.Config{Latency: 0})

	generic := BuildHandlerMux(ProfileGeneric, svc)
	if _, known := generic.Resolve(support.ToolVoucherStatus); known {
		t.Fatal("generic profile must not bind support handlers")
	}

	sup := BuildHandlerMux(ProfileSupport, svc)
	for _, name := range []string{support.ToolVoucherStatus, support.ToolDailyReport} {
		if _, known := sup.Resolve(name); !known {
			t.Fatalf("support profile missing handler for %s", name)
		}
	}
	// Display tools resolve to the fallback in every profile.
	h, known := sup.Resolve(ToolRenderChart)
	if known {
		t.Fatal("render_chart should stay on the fallback")
	}
	payload, err := h.Invoke(context.Background(), map[string]any{"chartSpec": "{}"})
	if err != nil {
		t.Fatalf("fallback invoke: %v", err)
	}
	if ack, ok := payload.(tool.AckPayload); !ok || ack.Result != "ok" {
		t.Fatalf("unexpected fallback payload: %#v", payload)
	}
}

func TestBuildHandlerMuxNilService(t *testing.T) {
	var svc backend.PartnerService
	mux := BuildHandlerMux(ProfileSupport, svc)
	if _, known := mux.Resolve(support.ToolVoucherStatus); known {
		t.Fatal("nil service must not be bound")
	}
}
