package model

import "testing"

func TestSignalKindOptionType(t *testing.T) {
	ceKinds := []SignalKind{SignalGapUp, SignalBreakoutHigh, SignalReentryCE}
	for _, k := range ceKinds {
		if k.OptionType() != OptionCE {
			t.Errorf("%s should map to CE", k)
		}
	}
	peKinds := []SignalKind{SignalGapDown, SignalBreakoutLow, SignalReentryPE}
	for _, k := range peKinds {
		if k.OptionType() != OptionPE {
			t.Errorf("%s should map to PE", k)
		}
	}
}

func TestSignalKindClassification(t *testing.T) {
	if !SignalGapUp.IsGap() || !SignalGapDown.IsGap() {
		t.Error("gap kinds should classify as gaps")
	}
	if SignalBreakoutHigh.IsGap() || SignalReentryCE.IsGap() {
		t.Error("non-gap kinds must not classify as gaps")
	}
	if !SignalReentryCE.IsReentry() || !SignalReentryPE.IsReentry() {
		t.Error("reentry kinds should classify as reentries")
	}
	if SignalGapUp.IsReentry() {
		t.Error("gap kinds must not classify as reentries")
	}
}

func TestLevelsValid(t *testing.T) {
	if (Levels{}).Valid() {
		t.Error("zero levels must be invalid")
	}
	if (Levels{High: 19800, Low: 20000}).Valid() {
		t.Error("inverted levels must be invalid")
	}
	if !(Levels{High: 20000, Low: 19800}).Valid() {
		t.Error("normal levels should be valid")
	}
}
