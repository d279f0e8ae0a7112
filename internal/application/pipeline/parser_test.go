package pipeline

import (
	"reflect"
	"testing"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		num       int
		wantTitle string
		wantBody  string
	}{
		{
			name:      "markdown heading with echoed chapter prefix",
			raw:       "# Chapter 3: The Long Road\n\nThe rain had not stopped for days.",
			num:       3,
			wantTitle: "The Long Road",
			wantBody:  "The rain had not stopped for days.",
		},
		{
			name:      "plain title line",
			raw:       "The Hollow Crown\nKaelen stood at the gate.",
			num:       1,
			wantTitle: "The Hollow Crown",
			wantBody:  "Kaelen stood at the gate.",
		},
		{
			name:      "empty title falls back to synthesized label",
			raw:       "Chapter 2\nShe woke before dawn.",
			num:       2,
			wantTitle: "Chapter 2",
			wantBody:  "She woke before dawn.",
		},
		{
			name:      "single line keeps full text as body",
			raw:       "A lone sentence with no break.",
			num:       5,
			wantTitle: "A lone sentence with no break.",
			wantBody:  "A lone sentence with no break.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := ExtractTitle(tt.raw, tt.num)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestParseVerdictApproved(t *testing.T) {
	v := ParseVerdict("APPROVED\n\nThe original content follows unchanged.")
	if !v.Passed {
		t.Fatal("expected passed verdict")
	}
	if len(v.Issues) != 0 || len(v.Fixes) != 0 {
		t.Fatalf("expected empty issue/fix lists, got %v / %v", v.Issues, v.Fixes)
	}
	if v.RevisedContent != "" {
		t.Fatalf("expected no revised content, got %q", v.RevisedContent)
	}
}

func TestParseVerdictWithIssuesAndRevision(t *testing.T) {
	response := `ISSUES_FOUND:
- Timeline jumps from night to noon without transition
- Mira knows the password before it is revealed

FIXES_NEEDED:
- Add a scene break before the market sequence
- Move the password reveal to the tavern scene

REVISED_CONTENT:
The corrected chapter begins here with a proper dawn transition.`

	v := ParseVerdict(response)
	if v.Passed {
		t.Fatal("expected not-passed verdict")
	}
	wantIssues := []string{
		"- Timeline jumps from night to noon without transition",
		"- Mira knows the password before it is revealed",
	}
	if !reflect.DeepEqual(v.Issues, wantIssues) {
		t.Errorf("issues = %v, want %v", v.Issues, wantIssues)
	}
	if len(v.Fixes) != 2 {
		t.Errorf("fixes = %v, want 2 entries", v.Fixes)
	}
	if v.RevisedContent != "The corrected chapter begins here with a proper dawn transition." {
		t.Errorf("revised = %q", v.RevisedContent)
	}
}

func TestParseVerdictNonePlaceholderFiltered(t *testing.T) {
	response := `ISSUES_FOUND:
None

FIXES_NEEDED:
- Tighten the opening paragraph`

	v := ParseVerdict(response)
	if !v.Passed {
		t.Fatal("empty issue list should parse as passed")
	}
	if len(v.Issues) != 0 {
		t.Fatalf("placeholder 'None' should be filtered, got %v", v.Issues)
	}
	if len(v.Fixes) != 1 {
		t.Fatalf("fixes = %v, want 1 entry", v.Fixes)
	}
}

func TestParseVerdictMissingMarkers(t *testing.T) {
	// 无任何标记的响应按无问题处理，不崩溃
	v := ParseVerdict("The chapter reads well overall.")
	if !v.Passed {
		t.Fatal("markerless response should default to passed")
	}
	if len(v.Issues) != 0 || v.RevisedContent != "" {
		t.Fatalf("unexpected extraction: %+v", v)
	}
}
