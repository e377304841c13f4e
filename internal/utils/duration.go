package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	clockRegex   = regexp.MustCompile(`^(\d+):(\d{1,2})(?::(\d{1,2}))?$`)
	isoRegex     = regexp.MustCompile(`(?i)^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)
	numberRegex  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	unitRegex    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(小时|分钟|分|秒|hours?|hrs?|h|minutes?|mins?|m|seconds?|secs?|s)`)
	unitFactors  = map[string]int{"小时": 3600, "分钟": 60, "分": 60, "秒": 1}
	unitPrefixes = []struct {
		prefix string
		factor int
	}{
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}
)

// ParseDuration converts a scraped duration into seconds.
// Integers are seconds. Strings may carry units (98分钟, 1h 38min, 5880s),
// a clock form (1:38:00, 98:00), or ISO-8601 (PT1H38M). A bare numeric
// string is minutes. Anything unparseable or negative yields 0.
func ParseDuration(v any) int {
	switch d := v.(type) {
	case nil:
		return 0
	case int:
		return clampSeconds(float64(d))
	case int32:
		return clampSeconds(float64(d))
	case int64:
		return clampSeconds(float64(d))
	case float32:
		return clampSeconds(float64(d))
	case float64:
		return clampSeconds(d)
	case string:
		return parseDurationString(d)
	default:
		return 0
	}
}

func parseDurationString(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "-") {
		return 0
	}

	if numberRegex.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return clampSeconds(f * 60)
	}

	if m := clockRegex.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if m[3] == "" {
			return a*60 + b
		}
		c, _ := strconv.Atoi(m[3])
		return a*3600 + b*60 + c
	}

	if m := isoRegex.FindStringSubmatch(s); m != nil && s != "PT" {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])
		return h*3600 + min*60 + sec
	}

	total := 0.0
	for _, m := range unitRegex.FindAllStringSubmatch(s, -1) {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		total += f * float64(unitFactor(m[2]))
	}
	return clampSeconds(total)
}

func unitFactor(unit string) int {
	if f, ok := unitFactors[unit]; ok {
		return f
	}
	lower := strings.ToLower(unit)
	for _, u := range unitPrefixes {
		if strings.HasPrefix(lower, u.prefix) {
			return u.factor
		}
	}
	return 0
}

func clampSeconds(f float64) int {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}
