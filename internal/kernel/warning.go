package kernel

import (
	"fmt"
	"sort"
)

// Warning codes. Warnings are values attached to returned records, never
// raised as errors; the primary operation still succeeds.
const (
	WarnVersionFallback  = "VERSION_FALLBACK"
	WarnMissingData      = "MISSING_DATA"
	WarnUnresolvedRef    = "UNRESOLVED_REF"
	WarnSideEffectFailed = "SIDE_EFFECT_FAILED"
	WarnPatchMismatch    = "PATCH_MISMATCH"
)

type Warning struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

func Warningf(code, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}

// DedupeWarnings returns a new slice with duplicates removed and entries
// sorted by (code, message) so warning order is stable across generations.
func DedupeWarnings(warnings []Warning) []Warning {
	if len(warnings) == 0 {
		return nil
	}
	seen := make(map[Warning]struct{}, len(warnings))
	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Message < out[j].Message
	})
	return out
}
