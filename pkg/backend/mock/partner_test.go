package mock

import (
	"context"
	"testing"
	"time"

	"github.com/renandav/livia/pkg/backend"
)

func TestLookupVoucherByCodeAnyCase(t *testing.T) {
	svc := NewPartnerService(Config{})
	st, err := svc.LookupVoucher(context.Background(), backend.VoucherQuery{Code: "voucher123"})
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if st.Status != "active" || st.Discount != "25%" || st.Expires != "2024-12-31" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLookupVoucherExpiredCode(t *testing.T) {
	svc := NewPartnerService(Config{})
	st, err := svc.LookupVoucher(context.Background(), backend.VoucherQuery{Code: "EXPIRED456"})
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if st.Status != "expired" || st.Reason != "Voucher has passed its expiry date." {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLookupVoucherByEmailAnyCase(t *testing.T) {
	svc := NewPartnerService(Config{})
	st, err := svc.LookupVoucher(context.Background(), backend.VoucherQuery{Email: "ACTIVE@example.com"})
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if st.Status != "active" || st.Program != "loyalty" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLookupVoucherNoIdentifiers(t *testing.T) {
	svc := NewPartnerService(Config{})
	st, err := svc.LookupVoucher(context.Background(), backend.VoucherQuery{})
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if st.Status != "not_found" || st.Message == "" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestSubmitDailyReportRejectsNegative(t *testing.T) {
	svc := NewPartnerService(Config{})
	n := -1.0
	rcpt, err := svc.SubmitDailyReport(context.Background(), backend.DailyReport{IssuedVouchers: &n})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if rcpt.Status != "error" || rcpt.Message == "" {
		t.Fatalf("unexpected receipt: %+v", rcpt)
	}
}

func TestSubmitDailyReportSuccessEchoes(t *testing.T) {
	svc := NewPartnerService(Config{Now: func() time.Time { return time.UnixMilli(1700000000000) }})
	n := 5.0
	rcpt, err := svc.SubmitDailyReport(context.Background(), backend.DailyReport{IssuedVouchers: &n})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if rcpt.Status != "success" {
		t.Fatalf("unexpected receipt: %+v", rcpt)
	}
	if rcpt.ReportID != "RPT-1700000000000" {
		t.Fatalf("unexpected report id: %q", rcpt.ReportID)
	}
	if rcpt.Submitted == nil || rcpt.Submitted.IssuedVouchers == nil || *rcpt.Submitted.IssuedVouchers != 5 {
		t.Fatalf("expected submission echo, got %+v", rcpt.Submitted)
	}
}

func TestRoundTripHonorsCancellation(t *testing.T) {
	svc := NewPartnerService(Config{Latency: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.LookupVoucher(ctx, backend.VoucherQuery{Code: "VOUCHER123"}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
