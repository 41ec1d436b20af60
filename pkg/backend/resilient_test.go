package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/renandav/livia/pkg/resilience"
)

// flakyService fails lookups with the scripted errors before succeeding.
type flakyService struct {
	failures []error
	lookups  int
	reports  int
}

func (f *flakyService) LookupVoucher(ctx context.Context, q VoucherQuery) (VoucherStatus, error) {
	f.lookups++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return VoucherStatus{}, err
	}
	return VoucherStatus{Status: "active", Discount: "20%"}, nil
}

func (f *flakyService) SubmitDailyReport(ctx context.Context, r DailyReport) (ReportReceipt, error) {
	f.reports++
	return ReportReceipt{Status: "success", ReportID: "RPT-1"}, nil
}

func TestResilientRetriesTransientFailure(t *testing.T) {
	inner := &flakyService{failures: []error{
		resilience.UnavailableError{Service: "partner", Message: "503"},
	}}
	svc := NewResilient(inner, resilience.RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, nil)

	status, err := svc.LookupVoucher(context.Background(), VoucherQuery{Code: "VOUCHER123"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if status.Status != "active" {
		t.Fatalf("status = %q, want active", status.Status)
	}
	if inner.lookups != 2 {
		t.Fatalf("lookups = %d, want 2", inner.lookups)
	}
}

func TestResilientOpenCircuitShortCircuits(t *testing.T) {
	down := resilience.UnavailableError{Service: "partner", Message: "outage"}
	inner := &flakyService{failures: []error{down, down}}
	breaker := resilience.NewCircuitBreaker(2, time.Minute)
	svc := NewResilient(inner, resilience.RetryPolicy{}, breaker)

	for i := 0; i < 2; i++ {
		if _, err := svc.LookupVoucher(context.Background(), VoucherQuery{Code: "X"}); err == nil {
			t.Fatal("expected failure while partner is down")
		}
	}
	before := inner.lookups

	_, err := svc.LookupVoucher(context.Background(), VoucherQuery{Code: "X"})
	if !resilience.IsUnavailable(err) {
		t.Fatalf("open circuit must report unavailable, got %v", err)
	}
	if inner.lookups != before {
		t.Fatal("open circuit must not reach the partner")
	}
}

func TestResilientBusinessErrorPassesThrough(t *testing.T) {
	notFound := errors.New("voucher not found")
	inner := &flakyService{failures: []error{notFound}}
	breaker := resilience.NewCircuitBreaker(1, time.Minute)
	svc := NewResilient(inner, resilience.RetryPolicy{}, breaker)

	if _, err := svc.LookupVoucher(context.Background(), VoucherQuery{Code: "MISSING"}); !errors.Is(err, notFound) {
		t.Fatalf("unexpected error: %v", err)
	}
	if !breaker.Allow() {
		t.Fatal("business errors must not trip the breaker")
	}
}

func TestResilientSuccessResetsBreaker(t *testing.T) {
	down := resilience.UnavailableError{Service: "partner"}
	inner := &flakyService{failures: []error{down}}
	breaker := resilience.NewCircuitBreaker(2, time.Minute)
	svc := NewResilient(inner, resilience.RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond}, breaker)

	if _, err := svc.LookupVoucher(context.Background(), VoucherQuery{Code: "VOUCHER123"}); err != nil {
		t.Fatalf("lookup should recover on retry: %v", err)
	}
	if _, err := svc.SubmitDailyReport(context.Background(), DailyReport{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !breaker.Allow() {
		t.Fatal("breaker must stay closed after recovery")
	}
}
