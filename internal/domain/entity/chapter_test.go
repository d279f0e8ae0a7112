package entity

import (
	"reflect"
	"testing"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"simple sentence", "the rain had not stopped", 5},
		{"mixed whitespace", "one\ntwo\t three  four", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.in); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetContentRecountsWords(t *testing.T) {
	ch := NewChapter("p1", 1, "One", "five words make this sentence")
	if ch.WordCount != 5 {
		t.Fatalf("initial word count = %d", ch.WordCount)
	}
	ch.SetContent("two words")
	if ch.WordCount != 2 {
		t.Errorf("word count after SetContent = %d, want 2", ch.WordCount)
	}
}

func TestParagraphs(t *testing.T) {
	ch := NewChapter("p1", 1, "One", "First paragraph line one.\nStill first.\n\nSecond paragraph.\n\n\n\nThird.")
	want := []string{
		"First paragraph line one.\nStill first.",
		"Second paragraph.",
		"Third.",
	}
	if got := ch.Paragraphs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Paragraphs() = %q, want %q", got, want)
	}
}

func TestProjectValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Project)
		wantErr error
	}{
		{"valid", func(p *Project) {}, nil},
		{"blank title", func(p *Project) { p.Title = "   " }, ErrMissingTitle},
		{"zero chapters", func(p *Project) { p.TargetChapters = 0 }, ErrInvalidChapterCount},
		{"negative word target", func(p *Project) { p.TargetWordsPerChapter = -1 }, ErrInvalidWordTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProject("A Story", 3, 500)
			tt.mutate(p)
			if err := p.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
