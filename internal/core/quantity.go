package core

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidQuantity = errors.New("invalid quantity")

// ParseQuantity parses a non-negative decimal written with either a dot
// (2.5) or a comma (2,5) separator. Grouped thousands ("1.250,5") are
// accepted when both separators are present.
func ParseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidQuantity
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidQuantity
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidQuantity
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidQuantity
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidQuantity
	}
	return v, nil
}
