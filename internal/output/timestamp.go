package output

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// millis rounds seconds to the nearest millisecond. Negative and non-finite
// values clamp to zero.
func millis(seconds float64) int64 {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}

func splitMillis(total int64) (hours, minutes, secs, ms int64) {
	hours = total / 3_600_000
	total %= 3_600_000
	minutes = total / 60_000
	total %= 60_000
	return hours, minutes, total / 1_000, total % 1_000
}

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm.
func FormatSRTTimestamp(seconds float64) string {
	h, m, s, ms := splitMillis(millis(seconds))
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatVTTTimestamp renders seconds as MM:SS.mmm, adding an hours field
// only for times past one hour. Exactly one hour is "60:00.000".
func FormatVTTTimestamp(seconds float64) string {
	total := millis(seconds)
	if total == 3_600_000 {
		return "60:00.000"
	}
	h, m, s, ms := splitMillis(total)
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}

// ParseSRTTimestamp parses HH:MM:SS,mmm. A period is accepted in place of
// the comma.
func ParseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return assemble(value, hms[0], hms[1], hms[2], timeParts[1])
}

// ParseVTTTimestamp parses MM:SS.mmm or HH:MM:SS.mmm.
func ParseVTTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	clock, frac, ok := strings.Cut(value, ".")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	parts := strings.Split(clock, ":")
	switch len(parts) {
	case 2:
		if parts[0] == "60" && parts[1] == "00" && frac == "000" {
			return 3600, nil
		}
		return assemble(value, "0", parts[0], parts[1], frac)
	case 3:
		return assemble(value, parts[0], parts[1], parts[2], frac)
	default:
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
}

func assemble(raw, h, m, s, ms string) (float64, error) {
	hours, errH := strconv.Atoi(h)
	minutes, errM := strconv.Atoi(m)
	seconds, errS := strconv.Atoi(s)
	msValue, errMS := strconv.Atoi(ms)
	if errH != nil || errM != nil || errS != nil || errMS != nil || len(ms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}
	if minutes > 59 || seconds > 59 || hours < 0 || minutes < 0 || seconds < 0 || msValue < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(msValue)/1000, nil
}
