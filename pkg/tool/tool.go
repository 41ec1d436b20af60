// Package tool defines the declarative tool model shared by the registry,
// the dispatcher, and the live wire codec.
package tool

import "github.com/renandav/livia/pkg/schema"

// Scheduling hints how the model folds a pending response into generation.
// It is passed through in the declaration, never interpreted locally.
type Scheduling string

const (
	SchedulingInterrupt Scheduling = "INTERRUPT"
	SchedulingWhenIdle  Scheduling = "WHEN_IDLE"
	SchedulingSilent    Scheduling = "SILENT"
)

// Definition declares one callable tool: its wire name, a natural-language
// description for the model, and the argument schema. Definitions are fixed
// at process start and never mutated.
type Definition struct {
	Name        string
	Description string
	Parameters  *schema.Schema
	Enabled     bool
	Scheduling  Scheduling
}

// FunctionCall is one invocation requested by the model. ID is an opaque
// correlation token minted by the model; each call is consumed exactly once.
type FunctionCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ResponseBody carries the JSON-encoded handler payload. Result is always a
// string at the wire boundary even though it is structured JSON logically.
type ResponseBody struct {
	Result string `json:"result"`
}

// FunctionResponse answers one FunctionCall. ID must echo the originating
// request so the model can correlate answers within a batch.
type FunctionResponse struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Response ResponseBody `json:"response"`
}
