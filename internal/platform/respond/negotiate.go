package respond

import (
	"strconv"
	"strings"
)

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"
)

type problemFormat int

const (
	formatJSON problemFormat = iota
	formatCBOR
)

// mediaRanges maps the Accept entries this package understands to a problem
// format and a specificity used to break q-value ties.
var mediaRanges = map[string]struct {
	format      problemFormat
	specificity int
}{
	"application/problem+cbor": {formatCBOR, 3},
	"application/problem+json": {formatJSON, 3},
	"application/cbor":         {formatCBOR, 2},
	"application/json":         {formatJSON, 2},
	"application/*":            {formatJSON, 1},
	"*/*":                      {formatJSON, 0},
}

// negotiate picks the problem encoding for an Accept header. Entries are ranked
// by q-value, then specificity; JSON wins any remaining tie and is the default
// when nothing matches.
func negotiate(accept string) problemFormat {
	best := formatJSON
	bestQ, bestSpec := -1.0, -1
	for _, part := range strings.Split(accept, ",") {
		mediaType, q := parseMediaRange(part)
		r, ok := mediaRanges[mediaType]
		if !ok || q <= 0 {
			continue
		}
		switch {
		case q > bestQ,
			q == bestQ && r.specificity > bestSpec,
			q == bestQ && r.specificity == bestSpec && r.format == formatJSON:
			best, bestQ, bestSpec = r.format, q, r.specificity
		}
	}
	return best
}

// parseMediaRange splits "type/subtype;q=0.5" into a lowercase media type and
// its quality. A missing or malformed q parameter counts as 1.
func parseMediaRange(s string) (string, float64) {
	params := strings.Split(s, ";")
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	q := 1.0
	for _, p := range params[1:] {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "q") {
			continue
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			q = parsed
		}
	}
	return mediaType, q
}
