package markmon

import (
	"math"
	"strings"
)

// Dialect labels recorded per accepted payload.
const (
	DialectTyped = "typed"
	DialectCard  = "card"
	DialectFlat  = "flat"
)

// ApplyResult summarises one normalization pass over a payload.
type ApplyResult struct {
	// Dialects lists the payload shapes that contributed writes, in the
	// order they were applied.
	Dialects []string
	// SecretTouched reports whether any instrument lane was stored.
	SecretTouched bool
}

// ApplyPayload merges a decoded payload into the state. The three dialects
// are tried independently: typed first, numbered-card second, flat-field
// last, so flat keys win per field when a payload carries several shapes.
// Field-level coercion failures are swallowed; ApplyPayload never fails.
func (s *CanonicalState) ApplyPayload(data map[string]any) ApplyResult {
	var res ApplyResult
	if _, present := data["type"]; present {
		if s.applyTyped(data, &res) {
			res.Dialects = append(res.Dialects, DialectTyped)
		}
	}
	if card, ok := intValue(data["card"]); ok {
		s.applyCard(card, data, &res)
		res.Dialects = append(res.Dialects, DialectCard)
	}
	if s.applyFlat(data) {
		res.Dialects = append(res.Dialects, DialectFlat)
	}
	return res
}

func (s *CanonicalState) setCycleLabel(v string) {
	up := strings.ToUpper(strings.TrimSpace(v))
	s.Cycle = &up
}

func (s *CanonicalState) setVol(v string) {
	up := strings.ToUpper(strings.TrimSpace(v))
	s.Vol = &up
}

func (s *CanonicalState) setFlow(v string) {
	t := strings.TrimSpace(v)
	s.Flow = &t
}

func (s *CanonicalState) setCount(v int) {
	n := clampInt(v, 0, 100)
	s.Count = &n
}

// setCycleValue stores the 0-120 clock position and re-derives the legacy
// percentage: count = round(cycle/120*100).
func (s *CanonicalState) setCycleValue(v int) {
	n := clampInt(v, 0, 120)
	s.CycleValue = &n
	derived := int(math.Round(float64(n) / 120 * 100))
	s.Count = &derived
}

// --- Typed dialect -------------------------------------------------------

// applyTyped dispatches on the upper-cased type key. Unrecognized types are
// ignored silently and do not count as a typed-dialect match.
func (s *CanonicalState) applyTyped(data map[string]any, res *ApplyResult) bool {
	typ, ok := stringValue(data["type"])
	if !ok {
		return false
	}
	switch strings.ToUpper(strings.TrimSpace(typ)) {
	case "MACRO", "MASTER":
		s.mergeRegimeVol(data)
		if v, ok := firstInt(data, "cycle"); ok {
			s.setCycleValue(v)
		}
		if v, ok := firstFloat(data, "sahm"); ok {
			s.Sahm = &v
		}
		s.mergeDrawdown(data)
	case "CARD1", "REGIME_VOL":
		s.mergeRegimeVol(data)
	case "CARD2", "CAPITAL_ROTATION":
		s.mergeCard2(data)
	case "CARD3", "CYCLE_CLOCK":
		s.mergeCycleClock(data)
	case "CARD4", "RECESSION_PULSE":
		if v, ok := firstFloat(data, "sahm", "sahm_value", "sahm_trigger"); ok {
			s.Sahm = &v
		}
		s.mergeDrawdown(data)
	case "VIX":
		s.storeInstrument(InstrumentVix, "VIX", data, res)
	case "GVZ":
		s.storeInstrument(InstrumentGvz, "GVZ", data, res)
	case "BUY":
		s.storeInstrument(InstrumentBuy, "BUY", data, res)
	case "SELL":
		s.storeInstrument(InstrumentSell, "SELL", data, res)
	case "VOLD":
		s.storeInstrument(InstrumentVold, "VOLD", data, res)
	default:
		return false
	}
	return true
}

func (s *CanonicalState) mergeRegimeVol(data map[string]any) {
	if v, ok := firstString(data, "regime", "card1", "cycle_regime"); ok {
		s.setCycleLabel(v)
	}
	if v, ok := firstString(data, "vol", "volatility"); ok {
		s.setVol(v)
	}
}

func (s *CanonicalState) mergeDrawdown(data map[string]any) {
	if v, ok := firstFloat(data, "spx_dd", "spxDrawdown", "dd", "drawdown", "spx_dd_pct"); ok {
		s.SpxDD = &v
	}
}

// mergeCard2 updates the capital-rotation lane and mirrors it into the flat
// card2_state/card2_text keys plus the legacy flow field.
func (s *CanonicalState) mergeCard2(data map[string]any) {
	if v, ok := firstString(data, "card2_state", "state", "bias", "signal", "colour", "color"); ok {
		up := strings.ToUpper(v)
		s.Card2State = &up
		s.Card2.State = clonePtr(&up)
	}
	if v, ok := firstString(data, "card2_text", "text", "msg", "message", "flow"); ok {
		s.Card2Text = &v
		s.Card2.Text = clonePtr(&v)
		s.setFlow(v)
	}
	if v, ok := firstString(data, "time"); ok {
		s.Card2.Time = &v
	}
	if v, ok := firstString(data, "tf"); ok {
		s.Card2.TF = &v
	}
	if v, ok := firstString(data, "ref_id"); ok {
		s.Card2.RefID = &v
	}
}

// mergeCycleClock accepts either the legacy 0-100 percentage or the explicit
// 0-120 cycle position. A value inside [0,100] with no cycle key present is
// the legacy form and leaves CycleValue untouched.
func (s *CanonicalState) mergeCycleClock(data map[string]any) {
	_, hasCycle := data["cycle"]
	var v int
	var ok bool
	if hasCycle {
		v, ok = firstInt(data, "cycle")
	} else {
		v, ok = firstInt(data, "count", "maturity", "cycle_maturity")
	}
	if !ok {
		return
	}
	if !hasCycle && v >= 0 && v <= 100 {
		s.setCount(v)
		return
	}
	s.setCycleValue(v)
}

// storeInstrument replaces one secret lane wholesale and rederives the war
// flag. The vold lane keeps only state and level.
func (s *CanonicalState) storeInstrument(key, name string, data map[string]any, res *ApplyResult) {
	var state *string
	if v, ok := packString(data, "state"); ok {
		up := strings.ToUpper(v)
		state = &up
	}
	var level *int
	if v, ok := packInt(data, "level"); ok {
		level = &v
	}

	if key == InstrumentVold {
		s.Secret.Vold = &VoldPack{State: state, Level: level}
	} else {
		pack := &Instrument{Name: name, State: state, Level: level}
		if v, ok := packString(data, "symbol"); ok {
			pack.Symbol = &v
		}
		if v, ok := packFloat(data, "value"); ok {
			pack.Value = &v
		}
		switch key {
		case InstrumentVix:
			s.Secret.Vix = pack
		case InstrumentGvz:
			s.Secret.Gvz = pack
		case InstrumentBuy:
			s.Secret.Buy = pack
		case InstrumentSell:
			s.Secret.Sell = pack
		}
	}

	s.Secret.recomputeWar()
	if res != nil {
		res.SecretTouched = true
	}
}

// --- Numbered-card dialect -----------------------------------------------

// applyCard handles the historical card 1-9 payloads. Card numbers map to
// fixed meanings; anything else is ignored.
func (s *CanonicalState) applyCard(card int, data map[string]any, res *ApplyResult) {
	msg := ""
	if v, ok := stringValue(data["msg"]); ok {
		msg = strings.TrimSpace(v)
	}

	switch card {
	case 1:
		cycle, okCycle := parseCycleLabel(msg)
		vol, okVol := parseVolLabel(msg)
		if okCycle {
			s.setCycleLabel(cycle)
		}
		if okVol {
			s.setVol(vol)
		}
		if !okCycle || !okVol {
			// Legacy messages like "COMMODITIES ABOVE SMA (RISING) ELEVATED":
			// first token is the regime, last token is the vol state.
			tokens := strings.Fields(msg)
			if len(tokens) > 0 {
				if !okCycle {
					s.setCycleLabel(tokens[0])
				}
				if !okVol {
					s.setVol(tokens[len(tokens)-1])
				}
			}
		}
	case 2:
		if msg != "" {
			s.setFlow(msg)
		}
	case 3:
		if pct, ok := parsePercent(msg); ok {
			s.setCount(int(pct))
		}
		if v, ok := firstString(data, "regime", "cycle"); ok {
			s.setCycleLabel(v)
		}
	case 4:
		if v, ok := parseSahm(msg); ok {
			s.Sahm = &v
		}
	case 5:
		s.storeInstrument(InstrumentVix, "VIX", data, res)
	case 6:
		s.storeInstrument(InstrumentGvz, "GVZ", data, res)
	case 7:
		s.storeInstrument(InstrumentBuy, "BUY", data, res)
	case 8:
		s.storeInstrument(InstrumentSell, "SELL", data, res)
	case 9:
		s.storeInstrument(InstrumentVold, "VOLD", data, res)
	}
}

// --- Flat-field dialect --------------------------------------------------

// applyFlat is the catch-all merge, always attempted last. Canonical keys
// beat their aliases; aliases are consulted only when the canonical key is
// absent. Returns whether anything was written.
func (s *CanonicalState) applyFlat(data map[string]any) bool {
	applied := false
	if v, ok := firstString(data, "cycle", "regime", "cycle_regime"); ok {
		// A numeric cycle belongs to the 0-120 clock lane, not the string
		// classification lane (the two representations coexist).
		if numericString(v) {
			if n, ok := intValue(v); ok {
				s.setCycleValue(n)
				applied = true
			}
		} else {
			s.setCycleLabel(v)
			applied = true
		}
	}
	if v, ok := firstString(data, "vol", "volatility", "vix_state"); ok {
		s.setVol(v)
		applied = true
	}
	if v, ok := firstString(data, "flow", "rotation", "capital_rotation"); ok {
		s.setFlow(v)
		applied = true
	}
	if v, ok := firstInt(data, "count", "maturity", "cycle_maturity"); ok {
		s.setCount(v)
		applied = true
	}
	if v, ok := firstFloat(data, "sahm", "sahm_value", "sahm_trigger"); ok {
		s.Sahm = &v
		applied = true
	}
	return applied
}
