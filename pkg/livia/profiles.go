package livia

import (
	"fmt"
	"strings"

	"github.com/renandav/livia/pkg/backend"
	"github.com/renandav/livia/pkg/schema"
	"github.com/renandav/livia/pkg/support"
	"github.com/renandav/livia/pkg/tool"
)

// Deployment profiles. A profile selects which tools the widget declares to
// the model; the support profile layers the partner voucher tooling on top of
// the display tools every deployment carries.
const (
	ProfileGeneric = "generic"
	ProfileSupport = "support"
)

// ToolRenderChart is rendered widget-side; the backend only acknowledges it.
const ToolRenderChart = "render_chart"

// Profiles lists the known deployment profiles.
func Profiles() []string {
	return []string{ProfileGeneric, ProfileSupport}
}

// KnownProfile reports whether name is a supported deployment profile.
func KnownProfile(name string) bool {
	switch name {
	case ProfileGeneric, ProfileSupport:
		return true
	}
	return false
}

// displayTools are the declarations every profile carries. They have no local
// handler: the widget draws the result and the default ack tells the model
// the call landed.
func displayTools() []tool.Definition {
	return []tool.Definition{
		{
			Name:        ToolRenderChart,
			Description: "Render a chart in the widget from a Vega-Lite specification. Use it whenever a visualization helps answer the user.",
			Enabled:     true,
			Scheduling:  tool.SchedulingInterrupt,
			Parameters: schema.Object(map[string]*schema.Schema{
				"chartSpec": schema.String("A complete Vega-Lite chart specification, encoded as a JSON string."),
			}, "chartSpec"),
		},
	}
}

// BuildRegistry assembles the single tool registry for a deployment profile.
// Names listed in disabled keep their registry slot, so a stale model-side
// call still resolves, but are excluded from the setup declaration.
func BuildRegistry(profile string, disabled []string) (*tool.Registry, error) {
	var defs []tool.Definition
	switch profile {
	case ProfileGeneric:
		defs = displayTools()
	case ProfileSupport:
		defs = append(displayTools(), support.Definitions()...)
	default:
		return nil, fmt.Errorf("unknown profile: %q", profile)
	}

	if len(disabled) > 0 {
		off := make(map[string]struct{}, len(disabled))
		for _, name := range disabled {
			off[strings.TrimSpace(name)] = struct{}{}
		}
		for i := range defs {
			if _, ok := off[defs[i].Name]; ok {
				defs[i].Enabled = false
			}
		}
	}
	return tool.NewRegistry(defs...), nil
}

// BuildHandlerMux binds the local handlers a profile needs. Display tools are
// deliberately left unbound so they resolve to the default ack; only the
// support profile carries handlers with real work behind them.
func BuildHandlerMux(profile string, svc backend.PartnerService) *tool.HandlerMux {
	mux := tool.NewHandlerMux()
	if profile == ProfileSupport && svc != nil {
		support.RegisterHandlers(mux, svc)
	}
	return mux
}
