package configutil

import (
	"errors"
	"sort"
	"strings"
)

// Schema declares the keys a provider's settings block accepts. Validation
// runs before decoding so a typo in livia.yaml fails at startup instead of
// silently falling back to a default.
type Schema struct {
	Required     []string
	Optional     []string
	AllowUnknown bool
}

// ValidateSettings checks a settings map against the schema. Key matching is
// case, underscore, and hyphen insensitive; messages list offending keys in
// sorted order under "missing:" and "unknown:".
func ValidateSettings(input map[string]any, schema Schema) error {
	type keyInfo struct {
		name     string
		required bool
	}
	known := make(map[string]keyInfo, len(schema.Required)+len(schema.Optional))
	for _, k := range schema.Optional {
		known[normalizeKey(k)] = keyInfo{name: k}
	}
	for _, k := range schema.Required {
		known[normalizeKey(k)] = keyInfo{name: k, required: true}
	}

	var missing, unknown []string
	present := make(map[string]bool, len(input))
	for raw, v := range input {
		nk := normalizeKey(raw)
		present[nk] = true
		info, ok := known[nk]
		switch {
		case !ok:
			if !schema.AllowUnknown {
				unknown = append(unknown, raw)
			}
		case info.required && isEmptyValue(v):
			missing = append(missing, info.name)
		}
	}
	for nk, info := range known {
		if info.required && !present[nk] {
			missing = append(missing, info.name)
		}
	}

	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unknown)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(unknown, ", "))
	}
	return errors.New(strings.Join(parts, "; "))
}

// isEmptyValue treats nil and blank strings as absent; a zero number or false
// bool is a deliberate setting, not a gap.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
