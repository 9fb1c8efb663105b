package refdata

import (
	"strconv"
	"strings"
)

// compareVersions orders patch stamps as numeric dot-tuples. Missing and
// non-numeric components count as 0, so "2.0" == "2.0.0" and a malformed
// stamp never causes a failure.
func compareVersions(a, b string) int {
	at := parseVersion(a)
	bt := parseVersion(b)

	n := len(at)
	if len(bt) > n {
		n = len(bt)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(at) {
			av = at[i]
		}
		if i < len(bt) {
			bv = bt[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func parseVersion(v string) []int {
	parts := strings.Split(strings.TrimSpace(v), ".")
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			n = 0
		}
		out[i] = n
	}
	return out
}
