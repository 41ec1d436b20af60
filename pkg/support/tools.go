// Package support carries the customer-support tool set: partner voucher
// lookups and the end-of-day report, backed by a backend.PartnerService.
package support

import (
	"github.com/renandav/livia/pkg/backend"
	"github.com/renandav/livia/pkg/schema"
	"github.com/renandav/livia/pkg/tool"
)

const (
	ToolVoucherStatus = "get_voucher_status"
	ToolDailyReport   = "insert_daily_report"
)

// Definitions returns the support tool declarations in wire order. Property
// names and required lists are fixed by the model contract; do not rename.
func Definitions() []tool.Definition {
	return []tool.Definition{
		{
			Name:        ToolVoucherStatus,
			Description: "Look up the current status of a partner voucher by voucher ID or customer email. Returns whether the voucher is active, expired, or unknown, with discount and expiry details.",
			Enabled:     true,
			Scheduling:  tool.SchedulingInterrupt,
			Parameters: schema.Object(map[string]*schema.Schema{
				"voucherId":     schema.String("The voucher code to look up, for example VOUCHER123."),
				"customerEmail": schema.String("The email address the voucher was issued to, used when no voucher ID is available."),
			}),
		},
		{
			Name:        ToolDailyReport,
			Description: "File the partner's end-of-day voucher report. Requires the number of vouchers issued today; optionally the number issued through partnerships and a free-form issues note.",
			Enabled:     true,
			Scheduling:  tool.SchedulingInterrupt,
			Parameters: schema.Object(map[string]*schema.Schema{
				"issuedVouchers":      schema.Number("Total vouchers issued today. Must be zero or more."),
				"partnershipVouchers": schema.Number("Vouchers issued through partner channels today."),
				"issuesNote":          schema.String("Free-form note describing any issues encountered today."),
			}, "issuedVouchers"),
		},
	}
}

// RegisterHandlers binds the support handlers to mux against svc.
func RegisterHandlers(mux *tool.HandlerMux, svc backend.PartnerService) {
	mux.Bind(ToolVoucherStatus, NewVoucherStatusHandler(svc))
	mux.Bind(ToolDailyReport, NewDailyReportHandler(svc))
}
