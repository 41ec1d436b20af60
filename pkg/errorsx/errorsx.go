// Package errorsx tags errors with stable reason codes. Loggers emit the code
// as the reason_code field, so a failure can be filtered and counted without
// parsing message prose. Codes ride along the error chain and survive further
// wrapping.
package errorsx

import "errors"

// ReasonCode labels a failure class. Dashboards and alerts key on these
// strings; treat renames as breaking.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Live connection lifecycle.
	ReasonLiveConnect ReasonCode = "live_connect"
	ReasonLiveSetup   ReasonCode = "live_setup"
	ReasonLiveSend    ReasonCode = "live_send"
	ReasonLiveClosed  ReasonCode = "live_closed"
	ReasonLiveDecode  ReasonCode = "live_decode"

	// Tool dispatch.
	ReasonToolTimeout ReasonCode = "tool_timeout"
	ReasonToolPanic   ReasonCode = "tool_panic"

	// Partner service round trips.
	ReasonBackendLookup ReasonCode = "backend_lookup"
	ReasonBackendSubmit ReasonCode = "backend_submit"

	// Transcript persistence.
	ReasonTurnlogAppend ReasonCode = "turnlog_append"
	ReasonTurnlogOpen   ReasonCode = "turnlog_open"

	ReasonAudioWrite ReasonCode = "audio_write"

	ReasonConfigInvalid ReasonCode = "config_invalid"
)

// ReasonedError carries the code attached closest to the failure site.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error {
	return e.Err
}

// Wrap tags err with reason. The first tag wins: re-wrapping a reasoned error
// keeps the original code, so outer layers cannot mask where a failure
// actually happened. Wrapping nil returns nil.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var tagged ReasonedError
	if errors.As(err, &tagged) {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason returns the code carried by err, or ReasonUnknown when err is nil or
// untagged.
func Reason(err error) ReasonCode {
	if err == nil {
		return ReasonUnknown
	}
	var tagged ReasonedError
	if errors.As(err, &tagged) {
		return tagged.Reason
	}
	return ReasonUnknown
}

// HasReason reports whether err carries the given code.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}
