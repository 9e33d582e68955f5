package markmon

import (
	"fmt"
	"strings"
)

// War thresholds. The flag trips when institutional hedging collapses (low
// vix level) or gold volatility leaves its normal band (gvz level at either
// extreme).
const (
	warVixMaxLevel  = 4
	warGvzLowLevel  = 3
	warGvzHighLevel = 8
)

// recomputeWar rederives the war flag from the vix and gvz levels. It is
// idempotent and overwrites War unconditionally; nothing else may write War.
func (s *Secret) recomputeWar() {
	var reasons []string
	if s.Vix != nil && s.Vix.Level != nil && *s.Vix.Level <= warVixMaxLevel {
		reasons = append(reasons, fmt.Sprintf("Institutional X: %d", *s.Vix.Level))
	}
	if s.Gvz != nil && s.Gvz.Level != nil {
		if lvl := *s.Gvz.Level; lvl <= warGvzLowLevel || lvl >= warGvzHighLevel {
			reasons = append(reasons, fmt.Sprintf("Institutional Y: %d", lvl))
		}
	}
	s.War = WarStatus{Active: len(reasons) > 0, Reason: strings.Join(reasons, ", ")}
}
