package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	digitGroup  = regexp.MustCompile(`[\d,]+`)
	statsOnly   = regexp.MustCompile(`^[\d,\s]+$`)
	trailStats  = regexp.MustCompile(`^(.*?)\s{2,}([\d,]+(?:\s+[\d,]+){1,3})\s*$`)
	compactNum  = regexp.MustCompile(`^(\d[\d,]*(?:\.\d+)?|\.\d+)\s*([KkMmBb])?$`)
	privateUse  = regexp.MustCompile(`[\x{f000}-\x{f8ff}\x{f0000}-\x{ffffd}]`)
	multipliers = map[string]float64{"k": 1e3, "m": 1e6, "b": 1e9}
)

// StripIcons removes private-use glyphs that icon fonts render in front of counters.
func StripIcons(s string) string {
	return strings.TrimSpace(privateUse.ReplaceAllString(s, ""))
}

// Unquote strips one pair of surrounding double quotes and unescapes \" inside.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
	}
	return s
}

// IsStatsLine reports whether s holds only digit groups, commas and whitespace.
func IsStatsLine(s string) bool {
	return statsOnly.MatchString(s) && strings.ContainsAny(s, "0123456789")
}

// DigitTokens extracts digit groups left to right, dropping thousands separators.
// Groups that do not parse (e.g. a lone comma) are skipped.
func DigitTokens(s string) []int {
	var out []int
	for _, g := range digitGroup.FindAllString(s, -1) {
		n, err := strconv.Atoi(strings.ReplaceAll(g, ",", ""))
		if err != nil || n < 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}

// SplitTrailingStats separates counters appended to a text line with two or
// more spaces, e.g. "Some text  1   22  4,418". ok is false when there are none.
func SplitTrailingStats(s string) (text, stats string, ok bool) {
	m := trailStats.FindStringSubmatch(s)
	if m == nil {
		return s, "", false
	}
	return strings.TrimSpace(m[1]), m[2], true
}

// ParseCount parses "1,234", "12.3K" or "1.2M" into an integer, rounding to nearest.
func ParseCount(s string) (int, bool) {
	m := compactNum.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		f *= multipliers[strings.ToLower(m[2])]
	}
	f = math.Round(f)
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= float64(math.MaxInt) {
		return 0, false
	}
	return int(f), true
}
