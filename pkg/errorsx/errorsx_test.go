package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonLiveConnect)
	if Reason(err) != ReasonLiveConnect {
		t.Fatalf("expected reason %s, got %s", ReasonLiveConnect, Reason(err))
	}
	if !HasReason(err, ReasonLiveConnect) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonBackendLookup)
	second := Wrap(first, ReasonToolTimeout)
	if Reason(second) != ReasonBackendLookup {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ReasonLiveSend) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
