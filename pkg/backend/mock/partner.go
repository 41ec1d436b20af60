package mock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/renandav/livia/pkg/backend"
)

// Config tunes the simulated partner API.
type Config struct {
	// Latency is applied once per round trip. Zero disables the delay.
	Latency time.Duration
	// Now is the report-id clock. Defaults to time.Now.
	Now func() time.Time
}

// PartnerService simulates the voucher partner with a fixed dataset. Every
// operation pays one simulated round trip before answering, including
// rejections, so callers observe realistic timing.
type PartnerService struct {
	cfg Config
}

func NewPartnerService(cfg Config) *PartnerService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PartnerService{cfg: cfg}
}

var voucherCodes = map[string]backend.VoucherStatus{
	"VOUCHER123": {Status: "active", Discount: "25%", Expires: "2024-12-31"},
	"EXPIRED456": {Status: "expired", Reason: "Voucher has passed its expiry date."},
}

var customerVouchers = map[string]backend.VoucherStatus{
	"active@example.com":  {Status: "active", Program: "loyalty", Discount: "10%", Expires: "2024-12-31"},
	"expired@example.com": {Status: "expired", Program: "loyalty", Reason: "Loyalty voucher expired at the end of last quarter."},
}

// LookupVoucher matches the query against the fixed dataset. Codes and emails
// match case-insensitively; a query with neither identifier resolves to
// not_found on the partner side.
func (s *PartnerService) LookupVoucher(ctx context.Context, q backend.VoucherQuery) (backend.VoucherStatus, error) {
	if err := s.roundTrip(ctx); err != nil {
		return backend.VoucherStatus{}, err
	}
	if code := strings.TrimSpace(q.Code); code != "" {
		if st, ok := voucherCodes[strings.ToUpper(code)]; ok {
			return st, nil
		}
		return notFound("No voucher was found for that ID."), nil
	}
	if email := strings.TrimSpace(q.Email); email != "" {
		if st, ok := customerVouchers[strings.ToLower(email)]; ok {
			return st, nil
		}
		return notFound("No voucher is registered for that email address."), nil
	}
	return notFound("No voucher ID or customer email was provided."), nil
}

// SubmitDailyReport validates and files the report after the round trip, the
// way the real desk would reject a bad submission server-side.
func (s *PartnerService) SubmitDailyReport(ctx context.Context, r backend.DailyReport) (backend.ReportReceipt, error) {
	if err := s.roundTrip(ctx); err != nil {
		return backend.ReportReceipt{}, err
	}
	if r.IssuedVouchers == nil || *r.IssuedVouchers < 0 {
		return backend.ReportReceipt{
			Status:  "error",
			Message: "issuedVouchers must be a non-negative number.",
		}, nil
	}
	report := r
	return backend.ReportReceipt{
		Status:    "success",
		Message:   "Daily report submitted successfully.",
		ReportID:  fmt.Sprintf("RPT-%d", s.cfg.Now().UnixMilli()),
		Submitted: &report,
	}, nil
}

func (s *PartnerService) roundTrip(ctx context.Context) error {
	if s.cfg.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.cfg.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func notFound(message string) backend.VoucherStatus {
	return backend.VoucherStatus{Status: "not_found", Message: message}
}

var _ backend.PartnerService = (*PartnerService)(nil)
