package extract

import (
	"testing"
)

func TestNodeHelpers(t *testing.T) {
	doc := parseFixture(t, `<root xmlns:r="ddi:reusable:3_2">
  <r:Citation xml:lang="fi" r:type="ignored" type="kept">
    outer   text
    <r:Title><r:String xml:lang="en">  A   title </r:String></r:Title>
  </r:Citation>
</root>`)
	citation := findFirst(t, doc, "Citation")

	t.Run("lang", func(t *testing.T) {
		if Lang(citation) != "fi" {
			t.Errorf("Expected fi, got %q", Lang(citation))
		}
		if Lang(nil) != "" {
			t.Error("Expected empty language for nil node")
		}
	})

	t.Run("attr_ignores_prefixed", func(t *testing.T) {
		if Attr(citation, "type") != "kept" {
			t.Errorf("Expected unprefixed attribute, got %q", Attr(citation, "type"))
		}
	})

	t.Run("own_text_excludes_children", func(t *testing.T) {
		if OwnText(citation) != "outer text" {
			t.Errorf("Expected 'outer text', got %q", OwnText(citation))
		}
	})

	t.Run("path_and_ancestor", func(t *testing.T) {
		title := Path(citation, "Title", "String")
		if Text(title) != "A title" {
			t.Errorf("Expected normalised title, got %q", Text(title))
		}
		if Ancestor(title, "Citation") != citation {
			t.Error("Expected Citation ancestor")
		}
		if Path(citation, "Missing", "String") != nil {
			t.Error("Expected nil for missing path")
		}
	})
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"absolute_https", "https://example.org/study/1", false},
		{"urn", "urn:nbn:fi:fsd:T-FSD1234", false},
		{"relative", "/study/1", true},
		{"whitespace", "https://example.org/a b", true},
		{"empty", "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURI(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURI(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"2005", 2005, false},
		{"2005-06", 2005, false},
		{"2005-06-01", 2005, false},
		{"2005-06-01T10:30:00Z", 2005, false},
		{"2005-06-01T10:30:00", 2005, false},
		{" 1998 ", 1998, false},
		{"not a date", 0, true},
		{"12-25", 0, true},
		{"15", 0, true},
		{"10:30", 0, true},
		{"1.3.2021", 0, true},
		{"0000", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseYear(tt.input)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseYear(%q) = %d, %v", tt.input, got, err)
			}
		})
	}
}

func TestParseDateIgnoresCurrentTime(t *testing.T) {
	tests := map[string]string{
		"2021":                 "2021-01-01",
		"2021-03":              "2021-03-01",
		"2021-03-15":           "2021-03-15",
		"2021-03-15T00:00:00Z": "2021-03-15",
	}
	for input, want := range tests {
		got, err := ParseDate(input)
		if err != nil {
			t.Errorf("ParseDate(%q) failed: %v", input, err)
			continue
		}
		if got.Format("2006-01-02") != want || got.Hour() != 0 || got.Minute() != 0 {
			t.Errorf("Expected ParseDate(%q) = %s at midnight, got %v", input, want, got)
		}
	}
}
