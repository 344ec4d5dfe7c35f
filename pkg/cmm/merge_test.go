package cmm

import (
	"reflect"
	"testing"
)

func TestBackfill(t *testing.T) {
	t.Run("merges_unlabeled_into_default_language", func(t *testing.T) {
		input := map[string][]string{
			NoLanguage: {"unlabeled"},
			"en":       {"english"},
			"fi":       {"finnish"},
		}
		result := Backfill(input, "en", ConcatLists[string], true)

		if _, ok := result[NoLanguage]; ok {
			t.Fatal("Expected empty-language key to be removed")
		}
		if !reflect.DeepEqual(result["en"], []string{"english", "unlabeled"}) {
			t.Errorf("Expected merged english list, got %v", result["en"])
		}
		if !reflect.DeepEqual(result["fi"], []string{"finnish"}) {
			t.Errorf("Expected finnish untouched, got %v", result["fi"])
		}
	})

	t.Run("creates_default_language_entry", func(t *testing.T) {
		input := map[string]string{NoLanguage: "Title"}
		result := Backfill(input, "de", FirstWins[string], true)
		if result["de"] != "Title" {
			t.Errorf("Expected backfilled title, got %q", result["de"])
		}
		if len(result) != 1 {
			t.Errorf("Expected 1 entry, got %d", len(result))
		}
	})

	t.Run("first_wins_keeps_existing", func(t *testing.T) {
		input := map[string]string{NoLanguage: "Unlabeled", "en": "Labeled"}
		result := Backfill(input, "en", FirstWins[string], true)
		if result["en"] != "Labeled" {
			t.Errorf("Expected existing value to win, got %q", result["en"])
		}
	})

	t.Run("abstracts_joined_with_break", func(t *testing.T) {
		input := map[string]string{NoLanguage: "Second", "en": "First"}
		result := Backfill(input, "en", JoinWithBreak, true)
		if result["en"] != "First<br>Second" {
			t.Errorf("Expected joined abstract, got %q", result["en"])
		}
	})

	t.Run("disabled_drops_unlabeled", func(t *testing.T) {
		input := map[string]string{NoLanguage: "Unlabeled", "en": "Labeled"}
		result := Backfill(input, "en", FirstWins[string], false)
		if _, ok := result[NoLanguage]; ok {
			t.Fatal("Expected empty-language key to be dropped")
		}
		if len(result) != 1 || result["en"] != "Labeled" {
			t.Errorf("Expected only the labeled entry, got %v", result)
		}
	})

	t.Run("no_default_language_drops_unlabeled", func(t *testing.T) {
		input := map[string]string{NoLanguage: "Unlabeled"}
		result := Backfill(input, NoLanguage, FirstWins[string], true)
		if len(result) != 0 {
			t.Errorf("Expected empty result, got %v", result)
		}
	})

	t.Run("input_not_modified", func(t *testing.T) {
		input := map[string][]string{NoLanguage: {"a"}, "en": {"b"}}
		_ = Backfill(input, "en", ConcatLists[string], true)
		if len(input) != 2 || len(input["en"]) != 1 {
			t.Errorf("Expected input unchanged, got %v", input)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		input := map[string][]string{NoLanguage: {"a"}, "en": {"b"}}
		once := Backfill(input, "en", ConcatLists[string], true)
		twice := Backfill(once, "en", ConcatLists[string], true)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Expected second backfill to be a no-op, got %v vs %v", once, twice)
		}
	})

	t.Run("nil_map", func(t *testing.T) {
		if result := Backfill[string](nil, "en", FirstWins[string], true); result != nil {
			t.Errorf("Expected nil, got %v", result)
		}
	})
}

func TestMergeUniverse(t *testing.T) {
	merged := MergeUniverse(
		Universe{Inclusion: "Adults"},
		Universe{Inclusion: "Residents", Exclusion: "Prisoners"},
	)
	if merged.Inclusion != "Adults\nResidents" {
		t.Errorf("Expected joined inclusion, got %q", merged.Inclusion)
	}
	if merged.Exclusion != "Prisoners" {
		t.Errorf("Expected exclusion from unlabeled, got %q", merged.Exclusion)
	}
}

func TestCleanCharacterReturns(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Line one\nLine two", "Line one Line two"},
		{"Windows\r\nbreak", "Windows break"},
		{"  padded\r", "padded"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := CleanCharacterReturns(tt.input); got != tt.expected {
			t.Errorf("CleanCharacterReturns(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
