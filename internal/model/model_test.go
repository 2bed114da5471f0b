package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewPageSnapshot(t *testing.T) {
	t.Parallel()

	s := NewPageSnapshot("https://example.com")

	t.Run("sets url", func(t *testing.T) {
		t.Parallel()
		if s.URL != "https://example.com" {
			t.Errorf("got %q, expected https://example.com", s.URL)
		}
	})

	t.Run("serializes empty collections as arrays", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		for _, key := range []string{`"forms":[]`, `"buttons":[]`, `"links":[]`, `"cookieNotices":[]`, `"pricingElements":[]`} {
			if !strings.Contains(string(data), key) {
				t.Errorf("expected %s in %s", key, data)
			}
		}
	})

	t.Run("is empty", func(t *testing.T) {
		t.Parallel()
		if !s.IsEmpty() {
			t.Error("expected new snapshot to be empty")
		}
	})
}

func TestTruncateUTF8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{name: "shorter than limit", input: "abc", max: 10, expected: "abc"},
		{name: "exact limit", input: "abc", max: 3, expected: "abc"},
		{name: "ascii cut", input: "abcdef", max: 4, expected: "abcd"},
		{name: "does not split rune", input: "aé", max: 2, expected: "a"},
		{name: "multi byte rune", input: "日本語", max: 7, expected: "日本"},
		{name: "zero limit", input: "abc", max: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TruncateUTF8(tt.input, tt.max)
			if got != tt.expected {
				t.Errorf("got %q, expected %q", got, tt.expected)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result %q is not valid UTF-8", got)
			}
		})
	}
}

func TestModalVisible(t *testing.T) {
	t.Parallel()

	if got := (Modal{Count: 3, HiddenCount: 1}).Visible(); got != 2 {
		t.Errorf("got %d, expected 2", got)
	}
	if got := (Modal{Count: 1, HiddenCount: 2}).Visible(); got != 0 {
		t.Errorf("got %d, expected 0", got)
	}
}

func TestPatternType(t *testing.T) {
	t.Parallel()

	for _, pt := range PatternTypes() {
		if !pt.Valid() {
			t.Errorf("expected %q to be valid", pt)
		}
		if pt.Label() == "Unknown patterns" {
			t.Errorf("expected label for %q", pt)
		}
	}
	if PatternType("black").Valid() {
		t.Error("expected unknown type to be invalid")
	}
}

func TestImpactMoreSevere(t *testing.T) {
	t.Parallel()

	if !ImpactHigh.MoreSevere(ImpactMedium) {
		t.Error("high should be more severe than medium")
	}
	if !ImpactLow.MoreSevere(ImpactPositive) {
		t.Error("low should be more severe than positive")
	}
	if ImpactMedium.MoreSevere(ImpactMedium) {
		t.Error("equal impacts are not more severe")
	}
}

func TestFindingHelpers(t *testing.T) {
	t.Parallel()

	findings := []Finding{
		{RuleID: "a", PatternType: PatternWhite, Impact: ImpactPositive, Confidence: 90},
		{RuleID: "b", PatternType: PatternGrey, Impact: ImpactLow, Confidence: 60},
		{RuleID: "c", PatternType: PatternDark, Impact: ImpactHigh, Confidence: 85},
		{RuleID: "d", PatternType: PatternGrey, Impact: ImpactMedium, Confidence: 65},
	}

	t.Run("counts by type", func(t *testing.T) {
		t.Parallel()
		counts := CountByType(findings)
		if counts[PatternDark] != 1 || counts[PatternGrey] != 2 || counts[PatternWhite] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
	})

	t.Run("filters by type preserving order", func(t *testing.T) {
		t.Parallel()
		grey := FilterByType(findings, PatternGrey)
		if len(grey) != 2 || grey[0].RuleID != "b" || grey[1].RuleID != "d" {
			t.Errorf("unexpected filter result %v", grey)
		}
	})

	t.Run("sorts by severity without mutating input", func(t *testing.T) {
		t.Parallel()
		sorted := SortedBySeverity(findings)
		order := make([]string, 0, len(sorted))
		for _, f := range sorted {
			order = append(order, f.RuleID)
		}
		if got := strings.Join(order, ""); got != "cdba" {
			t.Errorf("got order %q, expected cdba", got)
		}
		if findings[0].RuleID != "a" {
			t.Error("input slice was modified")
		}
	})

	t.Run("key combines rule and selector", func(t *testing.T) {
		t.Parallel()
		f := Finding{RuleID: "confirmshaming", ElementSelector: "button"}
		if f.Key() != "confirmshaming|button" {
			t.Errorf("got %q", f.Key())
		}
	})
}

func TestFindingJSONTags(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Finding{PatternType: PatternDark, Impact: ImpactHigh})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"pattern_type":"dark"`, `"element_selector"`, `"impact":"high"`, `"rule_id"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}

func TestAuditReport(t *testing.T) {
	t.Parallel()

	r := NewAuditReport("https://example.com")
	if r.DateScanned.IsZero() {
		t.Error("expected DateScanned to be set")
	}
	if r.Failed() {
		t.Error("new report should not be failed")
	}
	if r.Score() != (OverallScore{}) {
		t.Error("expected zero score before analysis")
	}

	r.SetError(errors.New("boom"))
	if !r.Failed() || r.ErrorMessage != "boom" {
		t.Errorf("expected failed report with message, got %q", r.ErrorMessage)
	}
	r.SetError(nil)
	if r.Failed() {
		t.Error("expected error to be cleared")
	}

	r.Analysis = &AnalysisResult{OverallScore: OverallScore{DarkPatterns: 1, TotalScore: 85}}
	if r.Score().TotalScore != 85 || r.Score().Total() != 1 {
		t.Errorf("unexpected score %+v", r.Score())
	}
}
