package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
)

// Redactor masks emails and phone numbers in logged text. It is injected into
// anything that writes conversation content to logs or stores; a nil Redactor
// passes text through unchanged.
type Redactor struct {
	enabled atomic.Bool
}

// New returns a Redactor with the given initial state.
func New(enabled bool) *Redactor {
	r := &Redactor{}
	r.enabled.Store(enabled)
	return r
}

// SetEnabled toggles PII redaction.
func (r *Redactor) SetEnabled(v bool) {
	r.enabled.Store(v)
}

// Enabled returns true when redaction is active.
func (r *Redactor) Enabled() bool {
	return r != nil && r.enabled.Load()
}

// Text redacts emails and phone numbers when enabled.
func (r *Redactor) Text(in string) string {
	if !r.Enabled() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}
