package markmon

import "time"

// Instrument keys inside the secret block.
const (
	InstrumentVix  = "vix"
	InstrumentGvz  = "gvz"
	InstrumentBuy  = "buy"
	InstrumentSell = "sell"
	InstrumentVold = "vold"
)

// CanonicalState is the single authoritative record pushed to every dashboard
// subscriber. All fields start null and are only written when an inbound
// payload supplies a present, non-empty value (sparse merge).
//
// The cycle concept appears twice on purpose: Cycle holds the string
// classification label ("COMMODITIES" / "EQUITIES"), CycleValue holds the
// 0-120 clock position some feeders send instead. Count is the legacy 0-100
// percentage and is re-derived whenever CycleValue is written.
type CanonicalState struct {
	Cycle      *string  `json:"cycle"`
	Vol        *string  `json:"vol"`
	Flow       *string  `json:"flow"`
	Count      *int     `json:"count"`
	CycleValue *int     `json:"cycle_value"`
	Sahm       *float64 `json:"sahm"`
	SpxDD      *float64 `json:"spx_dd"`

	// Flat mirrors kept for older dashboard builds that read top-level keys.
	Card2State *string `json:"card2_state"`
	Card2Text  *string `json:"card2_text"`
	Card2      Card2   `json:"card2"`

	Secret Secret `json:"secret"`

	// Last-seen bookkeeping. Monitor is keyed by feeder ref id, Nodes by
	// ticker symbol. Neither carries invariants.
	Monitor map[string]TrackerEntry `json:"monitor"`
	Nodes   map[string]TrackerEntry `json:"nodes"`

	ServerTS *int64 `json:"_server_ts"`
}

// Card2 is the capital-rotation lane. Text preserves original casing.
type Card2 struct {
	State *string `json:"state"`
	Text  *string `json:"text"`
	Time  *string `json:"time"`
	TF    *string `json:"tf"`
	RefID *string `json:"ref_id"`
}

// Instrument is the fixed-shape pack for a secondary market indicator.
type Instrument struct {
	Name   string   `json:"name"`
	Symbol *string  `json:"symbol"`
	State  *string  `json:"state"`
	Level  *int     `json:"level"`
	Value  *float64 `json:"value"`
}

// VoldPack is the reduced pack for the volume-delta lane.
type VoldPack struct {
	State *string `json:"state"`
	Level *int    `json:"level"`
}

// WarStatus is derived from the vix and gvz levels and never set directly.
type WarStatus struct {
	Active bool   `json:"active"`
	Reason string `json:"reason"`
}

// Secret groups the five instrument lanes plus the derived war flag.
type Secret struct {
	Vix  *Instrument `json:"vix"`
	Gvz  *Instrument `json:"gvz"`
	Buy  *Instrument `json:"buy"`
	Sell *Instrument `json:"sell"`
	Vold *VoldPack   `json:"vold"`
	War  WarStatus   `json:"war"`
}

// TrackerEntry records when a given source was last heard from.
type TrackerEntry struct {
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

// NewCanonicalState returns an empty state with allocated tracker maps.
func NewCanonicalState() *CanonicalState {
	return &CanonicalState{
		Monitor: make(map[string]TrackerEntry),
		Nodes:   make(map[string]TrackerEntry),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (c Card2) clone() Card2 {
	return Card2{
		State: clonePtr(c.State),
		Text:  clonePtr(c.Text),
		Time:  clonePtr(c.Time),
		TF:    clonePtr(c.TF),
		RefID: clonePtr(c.RefID),
	}
}

func (i *Instrument) clone() *Instrument {
	if i == nil {
		return nil
	}
	return &Instrument{
		Name:   i.Name,
		Symbol: clonePtr(i.Symbol),
		State:  clonePtr(i.State),
		Level:  clonePtr(i.Level),
		Value:  clonePtr(i.Value),
	}
}

func (p *VoldPack) clone() *VoldPack {
	if p == nil {
		return nil
	}
	return &VoldPack{State: clonePtr(p.State), Level: clonePtr(p.Level)}
}

func (s Secret) clone() Secret {
	return Secret{
		Vix:  s.Vix.clone(),
		Gvz:  s.Gvz.clone(),
		Buy:  s.Buy.clone(),
		Sell: s.Sell.clone(),
		Vold: s.Vold.clone(),
		War:  s.War,
	}
}

// Clone produces an independent deep copy suitable for publication after the
// state lock has been released.
func (s *CanonicalState) Clone() *CanonicalState {
	cloned := &CanonicalState{
		Cycle:      clonePtr(s.Cycle),
		Vol:        clonePtr(s.Vol),
		Flow:       clonePtr(s.Flow),
		Count:      clonePtr(s.Count),
		CycleValue: clonePtr(s.CycleValue),
		Sahm:       clonePtr(s.Sahm),
		SpxDD:      clonePtr(s.SpxDD),
		Card2State: clonePtr(s.Card2State),
		Card2Text:  clonePtr(s.Card2Text),
		Card2:      s.Card2.clone(),
		Secret:     s.Secret.clone(),
		Monitor:    make(map[string]TrackerEntry, len(s.Monitor)),
		Nodes:      make(map[string]TrackerEntry, len(s.Nodes)),
		ServerTS:   clonePtr(s.ServerTS),
	}
	for k, v := range s.Monitor {
		cloned.Monitor[k] = v
	}
	for k, v := range s.Nodes {
		cloned.Nodes[k] = v
	}
	return cloned
}

// Stamp records the ingestion time in milliseconds since epoch.
func (s *CanonicalState) Stamp(now time.Time) int64 {
	ts := now.UnixMilli()
	s.ServerTS = &ts
	return ts
}

// trackSource updates the monitor/nodes last-seen maps from payload metadata.
func (s *CanonicalState) trackSource(data map[string]any, ts int64) {
	kind, _ := firstString(data, "type", "card")
	if s.Monitor == nil {
		s.Monitor = make(map[string]TrackerEntry)
	}
	if s.Nodes == nil {
		s.Nodes = make(map[string]TrackerEntry)
	}
	if ref, ok := firstString(data, "ref_id"); ok {
		s.Monitor[ref] = TrackerEntry{Timestamp: ts, Type: kind}
	}
	if sym, ok := firstString(data, "symbol", "ticker"); ok {
		s.Nodes[sym] = TrackerEntry{Timestamp: ts, Type: kind}
	}
}
