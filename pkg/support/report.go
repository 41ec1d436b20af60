package support

import (
	"context"

	"github.com/renandav/livia/pkg/backend"
	"github.com/renandav/livia/pkg/configutil"
	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/tool"
)

type reportArgs struct {
	IssuedVouchers      *float64 `mapstructure:"issuedVouchers"`
	PartnershipVouchers *float64 `mapstructure:"partnershipVouchers"`
	IssuesNote          string   `mapstructure:"issuesNote"`
}

// DailyReportHandler files insert_daily_report submissions with the partner
// desk. Numeric validation happens desk-side after the round trip, so a bad
// submission still pays the full exchange before its error receipt.
type DailyReportHandler struct {
	svc backend.PartnerService
}

func NewDailyReportHandler(svc backend.PartnerService) *DailyReportHandler {
	return &DailyReportHandler{svc: svc}
}

func (h *DailyReportHandler) Invoke(ctx context.Context, args map[string]any) (any, error) {
	var in reportArgs
	// A missing or garbled count stays nil and is rejected by the desk.
	_ = configutil.DecodeSettings(args, &in)

	rcpt, err := h.svc.SubmitDailyReport(ctx, backend.DailyReport{
		IssuedVouchers:      in.IssuedVouchers,
		PartnershipVouchers: in.PartnershipVouchers,
		IssuesNote:          in.IssuesNote,
	})
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonBackendSubmit)
	}
	return rcpt, nil
}

var _ tool.Handler = (*DailyReportHandler)(nil)
