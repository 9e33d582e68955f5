package markmon

import (
	"regexp"
	"strconv"
)

// The alert messages arrive as free text composed inside Pine script, so the
// extraction patterns below are deliberately loose. Fallback order for card 1
// is labeled extraction first, then positional tokens.

var (
	// "87%" or "87.5 %"
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	// "SAHM:0.63", "sahm : .63"
	sahmPattern = regexp.MustCompile(`(?i)SAHM\s*:\s*([0-9]*\.?[0-9]+)`)
	// "CYCLE: COMMODITIES" / "REGIME:EQUITIES"
	cycleLabelPattern = regexp.MustCompile(`(?i)\b(?:CYCLE|REGIME)\s*:\s*([A-Za-z0-9_\-]+)`)
	// "VOL: ELEVATED" / "VOLATILITY:STABLE"
	volLabelPattern = regexp.MustCompile(`(?i)\b(?:VOLATILITY|VOL)\s*:\s*([A-Za-z0-9_\-]+)`)
)

// parsePercent extracts the first percentage figure from msg.
func parsePercent(msg string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseSahm extracts a "SAHM:<number>" labeled value from msg.
func parseSahm(msg string) (float64, bool) {
	m := sahmPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseCycleLabel extracts a "CYCLE:"/"REGIME:" labeled value from msg.
func parseCycleLabel(msg string) (string, bool) {
	m := cycleLabelPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// parseVolLabel extracts a "VOL:"/"VOLATILITY:" labeled value from msg.
func parseVolLabel(msg string) (string, bool) {
	m := volLabelPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return m[1], true
}
