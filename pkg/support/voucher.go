package support

import (
	"context"
	"strings"

	"github.com/renandav/livia/pkg/backend"
	"github.com/renandav/livia/pkg/configutil"
	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/tool"
)

type voucherArgs struct {
	VoucherID     string `mapstructure:"voucherId"`
	CustomerEmail string `mapstructure:"customerEmail"`
}

// VoucherStatusHandler resolves get_voucher_status calls against the partner
// service. Precedence: voucherId wins over customerEmail; with neither the
// lookup still runs and comes back not_found.
type VoucherStatusHandler struct {
	svc backend.PartnerService
}

func NewVoucherStatusHandler(svc backend.PartnerService) *VoucherStatusHandler {
	return &VoucherStatusHandler{svc: svc}
}

func (h *VoucherStatusHandler) Invoke(ctx context.Context, args map[string]any) (any, error) {
	var in voucherArgs
	// Garbled args degrade to an empty query rather than failing the call.
	_ = configutil.DecodeSettings(args, &in)

	q := backend.VoucherQuery{}
	if strings.TrimSpace(in.VoucherID) != "" {
		q.Code = in.VoucherID
	} else if strings.TrimSpace(in.CustomerEmail) != "" {
		q.Email = in.CustomerEmail
	}

	st, err := h.svc.LookupVoucher(ctx, q)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonBackendLookup)
	}
	return st, nil
}

var _ tool.Handler = (*VoucherStatusHandler)(nil)
