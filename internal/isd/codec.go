package isd

import (
	"regexp"
	"strconv"
	"strings"
)

// missingRe matches the ISD missing-value sentinel: an optionally signed
// run of 9s spanning the whole token. The rule is width-independent and
// takes precedence over scaling ("+9999" scaled by 10 is absent, not
// 999.9).
var missingRe = regexp.MustCompile(`^[+-]?9+$`)

// decodeText trims the token and applies the missing sentinel. Returns
// nil for absent values, the trimmed text otherwise.
func decodeText(raw string) *string {
	s := strings.TrimSpace(raw)
	if missingRe.MatchString(s) {
		return nil
	}
	return &s
}

// decodeScaled parses the token as a number and divides by scalingFactor.
// A parse failure on a non-sentinel token means the input does not follow
// the wire format and is an error, never a silent nil.
func decodeScaled(raw string, scalingFactor float64) (*float64, error) {
	s := decodeText(raw)
	if s == nil {
		return nil, nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil, err
	}
	v /= scalingFactor
	return &v, nil
}

// decodeInt parses the token as an unscaled integer, honoring the missing
// sentinel. Leading "+" signs are accepted, as in elevation fields.
func decodeInt(raw string) (*int, error) {
	s := decodeText(raw)
	if s == nil {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimPrefix(*s, "+"))
	if err != nil {
		return nil, err
	}
	return &v, nil
}
