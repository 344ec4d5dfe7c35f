package extract

import (
	"testing"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

func TestClassifyAccessValue(t *testing.T) {
	tests := []struct {
		value    string
		expected cmm.DataAccess
		known    bool
	}{
		{"openAccess", cmm.DataAccessOpen, true},
		{"info:eu-repo/semantics/openAccess", cmm.DataAccessOpen, true},
		{" closedAccess ", cmm.DataAccessRestricted, true},
		{"info:eu-repo/semantics/embargoedAccess", cmm.DataAccessRestricted, true},
		{"restrictedAccess", cmm.DataAccessRestricted, true},
		{"OpenAccess", "", false},
		{"free for all", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ClassifyAccessValue(tt.value)
			if ok != tt.known || got != tt.expected {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.expected, tt.known, got, ok)
			}
		})
	}
}

func TestDataAccessCategory(t *testing.T) {
	fsd := AccessMapping{
		"restrctn": {
			{Content: "restricted", Category: cmm.DataAccessRestricted},
			{Content: "Freely available", Category: cmm.DataAccessOpen},
		},
	}
	freeTexts := map[string][]string{"restrctn": {"  Restricted "}}

	t.Run("recognised_value_wins", func(t *testing.T) {
		got := DataAccessCategory([]string{"unknown", "openAccess", "closedAccess"}, freeTexts, fsd)
		if got != cmm.DataAccessOpen {
			t.Errorf("Expected Open, got %s", got)
		}
	})

	t.Run("free_text_mapping_fallback", func(t *testing.T) {
		got := DataAccessCategory(nil, freeTexts, fsd)
		if got != cmm.DataAccessRestricted {
			t.Errorf("Expected Restricted, got %s", got)
		}
	})

	t.Run("repository_without_mapping", func(t *testing.T) {
		got := DataAccessCategory(nil, freeTexts, nil)
		if got != cmm.DataAccessUncategorized {
			t.Errorf("Expected Uncategorized, got %s", got)
		}
	})

	t.Run("unmatched_free_text", func(t *testing.T) {
		got := DataAccessCategory(nil, map[string][]string{"restrctn": {"ask the archive"}}, fsd)
		if got != cmm.DataAccessUncategorized {
			t.Errorf("Expected Uncategorized, got %s", got)
		}
	})
}
