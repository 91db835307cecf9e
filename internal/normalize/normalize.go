// Package normalize converts raw scraped field strings into typed values.
// Every converter fails soft (returns nil) so one malformed field drops a
// single record instead of aborting a batch.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRe      = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	firstNumberRe = regexp.MustCompile(`([0-9]+\.?[0-9]*)`)
	kSuffixRe     = regexp.MustCompile(`([0-9]+\.?[0-9]*)K`)
	groupedIntRe  = regexp.MustCompile(`[0-9]{1,3}(?:,[0-9]{3})*`)
)

// Price converts a currency-prefixed price string (e.g. "PKR 84,676.80")
// to a float. Returns nil for empty input or when no numeral is found.
func Price(s string) *float64 {
	if s == "" {
		return nil
	}
	stripped := strings.ReplaceAll(s, ",", "")
	match := numberRe.FindString(stripped)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Weight converts a unit-suffixed weight string to pounds. Ounces are
// divided by 16. Empty input, the "No weight" sentinel, and unrecognized
// units all return nil.
func Weight(s string) *float64 {
	if s == "" || s == "No weight" {
		return nil
	}
	lowered := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(lowered, "pounds") || strings.Contains(lowered, "lb"):
		return firstNumber(lowered)
	case strings.Contains(lowered, "ounces") || strings.Contains(lowered, "oz"):
		ounces := firstNumber(lowered)
		if ounces == nil {
			return nil
		}
		pounds := *ounces / 16.0
		return &pounds
	}
	return nil
}

func firstNumber(s string) *float64 {
	match := firstNumberRe.FindStringSubmatch(s)
	if match == nil {
		return nil
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// ReviewCount converts a review-count string ("2.3K", "2,300", "210") to
// an integer. Fractional thousands truncate: "2.3K" becomes 2300, "1.23K"
// becomes 1230 via int(1.23*1000). Returns nil when nothing parses.
func ReviewCount(s string) *int {
	if s == "" {
		return nil
	}
	s = strings.TrimSpace(s)

	upper := strings.ToUpper(s)
	if strings.Contains(upper, "K") {
		if match := kSuffixRe.FindStringSubmatch(upper); match != nil {
			f, err := strconv.ParseFloat(match[1], 64)
			if err == nil {
				n := int(f * 1000)
				return &n
			}
		}
	}

	if match := groupedIntRe.FindString(s); match != "" {
		n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
		if err == nil {
			return &n
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// IsValidNumeric reports whether value passes validation for the given
// field. Ratings must parse as a float in [0, 5]; review counts must
// normalize to a non-negative integer. Any other field is invalid.
func IsValidNumeric(value, field string) bool {
	if value == "" {
		return false
	}
	switch field {
	case "rating":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		return v >= 0 && v <= 5
	case "review_count":
		n := ReviewCount(value)
		return n != nil && *n >= 0
	}
	return false
}
