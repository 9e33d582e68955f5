package markmon

import "testing"

func TestFloatValue(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(87), 87, true},
		{"87.5", 87.5, true},
		{" 12 ", 12, true},
		{int(3), 3, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := floatValue(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("floatValue(%v) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestIntValueTruncates(t *testing.T) {
	if got, ok := intValue(87.9); !ok || got != 87 {
		t.Errorf("intValue(87.9) = %v,%v want 87,true", got, ok)
	}
	if got, ok := intValue("3.7"); !ok || got != 3 {
		t.Errorf("intValue(\"3.7\") = %v,%v want 3,true", got, ok)
	}
}

func TestFirstStringSkipsEmptyAndAbsent(t *testing.T) {
	data := map[string]any{"a": "  ", "b": "value", "c": "other"}
	if got, ok := firstString(data, "missing", "a", "b", "c"); !ok || got != "value" {
		t.Errorf("firstString = %q,%v want value,true", got, ok)
	}
	if _, ok := firstString(data, "missing", "a"); ok {
		t.Errorf("firstString should miss when only empty values exist")
	}
}

func TestPackAbsentSentinels(t *testing.T) {
	for _, s := range []string{"", "None", "NA", " na ", "none"} {
		if !packAbsent(s) {
			t.Errorf("packAbsent(%q) should be true", s)
		}
	}
	for _, s := range []string{"0", "NORMAL", "n/a?"} {
		if packAbsent(s) {
			t.Errorf("packAbsent(%q) should be false", s)
		}
	}
}

func TestPackHelpers(t *testing.T) {
	data := map[string]any{"level": "3", "state": "None", "value": 13.1}
	if got, ok := packInt(data, "level"); !ok || got != 3 {
		t.Errorf("packInt = %v,%v want 3,true", got, ok)
	}
	if _, ok := packString(data, "state"); ok {
		t.Errorf("packString should treat None as absent")
	}
	if got, ok := packFloat(data, "value"); !ok || got != 13.1 {
		t.Errorf("packFloat = %v,%v want 13.1,true", got, ok)
	}
	if _, ok := packInt(data, "missing"); ok {
		t.Errorf("packInt should miss on absent key")
	}
}

func TestClampInt(t *testing.T) {
	if got := clampInt(150, 0, 100); got != 100 {
		t.Errorf("clampInt(150) = %d", got)
	}
	if got := clampInt(-5, 0, 100); got != 0 {
		t.Errorf("clampInt(-5) = %d", got)
	}
	if got := clampInt(42, 0, 100); got != 42 {
		t.Errorf("clampInt(42) = %d", got)
	}
}

func TestNumericString(t *testing.T) {
	if !numericString(" 84.5 ") {
		t.Errorf("84.5 should read numeric")
	}
	if numericString("SILVER") {
		t.Errorf("SILVER should not read numeric")
	}
}
