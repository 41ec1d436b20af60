package backend

import (
	"context"

	"github.com/renandav/livia/pkg/resilience"
)

// Resilient decorates a PartnerService with retries and a circuit breaker so
// a flaky partner API degrades into error payloads instead of stalled tool
// calls. A zero retry policy runs each call once; a nil breaker disables the
// short circuit.
type Resilient struct {
	inner   PartnerService
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
}

var _ PartnerService = (*Resilient)(nil)

func NewResilient(inner PartnerService, retry resilience.RetryPolicy, breaker *resilience.CircuitBreaker) *Resilient {
	return &Resilient{inner: inner, retry: retry, breaker: breaker}
}

func (r *Resilient) LookupVoucher(ctx context.Context, q VoucherQuery) (VoucherStatus, error) {
	var out VoucherStatus
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.LookupVoucher(ctx, q)
		return err
	})
	if err != nil {
		return VoucherStatus{}, err
	}
	return out, nil
}

func (r *Resilient) SubmitDailyReport(ctx context.Context, report DailyReport) (ReportReceipt, error) {
	var out ReportReceipt
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.SubmitDailyReport(ctx, report)
		return err
	})
	if err != nil {
		return ReportReceipt{}, err
	}
	return out, nil
}

func (r *Resilient) call(ctx context.Context, fn func() error) error {
	if r.breaker != nil && !r.breaker.Allow() {
		return resilience.UnavailableError{Service: "partner", Message: "partner circuit open"}
	}
	err := r.retry.Do(ctx, fn)
	if r.breaker != nil {
		if err != nil {
			r.breaker.OnError(err)
		} else {
			r.breaker.OnSuccess()
		}
	}
	return err
}
