// Package backend defines the voucher-partner service boundary the support
// tools call across. Handlers depend on the interface only; the shipped
// implementation under backend/mock simulates the partner API with fixed data
// and latency, and tests substitute deterministic fakes.
package backend

import "context"

// VoucherQuery identifies a voucher either by code or by the customer email
// it was issued against. Code wins when both are set.
type VoucherQuery struct {
	Code  string
	Email string
}

// VoucherStatus is the partner's answer to a voucher lookup. Status is one of
// active, expired, or not_found; the remaining fields are populated per
// outcome and dropped from payloads when empty.
type VoucherStatus struct {
	Status   string `json:"status"`
	Discount string `json:"discount,omitempty"`
	Expires  string `json:"expires,omitempty"`
	Program  string `json:"program,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

// DailyReport is one partner-desk submission. IssuedVouchers stays nil when
// the caller did not supply a usable number; the desk validates it after the
// round trip so a bad submission still costs a full network exchange.
type DailyReport struct {
	IssuedVouchers      *float64 `json:"issuedVouchers,omitempty"`
	PartnershipVouchers *float64 `json:"partnershipVouchers,omitempty"`
	IssuesNote          string   `json:"issuesNote,omitempty"`
}

// ReportReceipt acknowledges a daily report submission. Submitted echoes the
// accepted report back to the caller.
type ReportReceipt struct {
	Status    string       `json:"status"`
	Message   string       `json:"message,omitempty"`
	ReportID  string       `json:"reportId,omitempty"`
	Submitted *DailyReport `json:"submittedData,omitempty"`
}

// PartnerService is the external voucher-partner API. Implementations must
// honor ctx cancellation across their real or simulated round trips.
type PartnerService interface {
	LookupVoucher(ctx context.Context, q VoucherQuery) (VoucherStatus, error)
	SubmitDailyReport(ctx context.Context, r DailyReport) (ReportReceipt, error)
}
