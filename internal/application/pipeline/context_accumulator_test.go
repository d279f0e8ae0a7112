package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"storyforge-api/internal/domain/entity"
)

func testChapters(n int) []*entity.Chapter {
	chapters := make([]*entity.Chapter, 0, n)
	for i := 1; i <= n; i++ {
		chapters = append(chapters, &entity.Chapter{
			Number:  i,
			Title:   "Title " + strings.Repeat("x", i),
			Content: strings.Repeat("word ", 100),
		})
	}
	return chapters
}

func TestProseChapterSummaryWindow(t *testing.T) {
	acc := NewAccumulator(testPipelineConfig().Context)
	chapters := testChapters(5)

	summary := acc.ProseChapterSummary(chapters)

	// 只包含最近 2 章
	if strings.Contains(summary, "Chapter 3:") {
		t.Error("summary should not include chapter 3")
	}
	for _, want := range []string{"Chapter 4:", "Chapter 5:"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestCheckerChapterSummaryWindow(t *testing.T) {
	acc := NewAccumulator(testPipelineConfig().Context)
	chapters := testChapters(5)

	summary := acc.CheckerChapterSummary(chapters)

	if strings.Contains(summary, "Chapter 2:") {
		t.Error("summary should not include chapter 2")
	}
	for _, want := range []string{"Chapter 3:", "Chapter 4:", "Chapter 5:"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestCheckerChapterSummaryEmpty(t *testing.T) {
	acc := NewAccumulator(testPipelineConfig().Context)
	if got := acc.CheckerChapterSummary(nil); got != "No previous chapters." {
		t.Errorf("empty summary = %q", got)
	}
}

func TestSummaryDeterministic(t *testing.T) {
	acc := NewAccumulator(testPipelineConfig().Context)
	chapters := testChapters(4)

	first := acc.ProseChapterSummary(chapters)
	for i := 0; i < 10; i++ {
		if got := acc.ProseChapterSummary(chapters); got != first {
			t.Fatal("summary not deterministic across invocations")
		}
	}
}

func TestContentPrefixTruncation(t *testing.T) {
	cfg := testPipelineConfig().Context
	acc := NewAccumulator(cfg)
	long := strings.Repeat("a", 1000)
	chapters := []*entity.Chapter{{Number: 1, Title: "One", Content: long}}

	summary := acc.ProseChapterSummary(chapters)
	if strings.Contains(summary, strings.Repeat("a", cfg.ProseTailChars+1)) {
		t.Errorf("content not truncated to %d chars", cfg.ProseTailChars)
	}
	if !strings.Contains(summary, strings.Repeat("a", cfg.ProseTailChars)+"...") {
		t.Error("truncated content should end with ellipsis")
	}
}

func TestContentPrefixTruncationRuneBoundary(t *testing.T) {
	cfg := testPipelineConfig().Context
	acc := NewAccumulator(cfg)
	// 3 字节 rune，预算 200 落在字符中间，截断需回退到完整边界
	long := strings.Repeat("雪", 200)
	chapters := []*entity.Chapter{{Number: 1, Title: "One", Content: long}}

	summary := acc.ProseChapterSummary(chapters)
	if !utf8.ValidString(summary) {
		t.Fatal("truncated summary contains invalid UTF-8")
	}
	if strings.Contains(summary, "�") {
		t.Error("truncated summary contains replacement character")
	}
	want := strings.Repeat("雪", cfg.ProseTailChars/3) + "..."
	if !strings.Contains(summary, want) {
		t.Errorf("summary missing rune-aligned prefix %q", want)
	}
}

func TestProfilesJSONTruncationRuneBoundary(t *testing.T) {
	acc := NewAccumulator(testPipelineConfig().Context)
	profiles := map[string]*CharacterProfile{
		"Kaelen": {Profile: strings.Repeat("盐风之门", 200)},
	}

	out := acc.ProfilesJSON(profiles)
	if !utf8.ValidString(out) {
		t.Fatal("truncated profiles json contains invalid UTF-8")
	}
	if !strings.HasSuffix(out, "...") {
		t.Error("truncated profiles should end with ellipsis")
	}
}

func TestProfilesJSONTruncation(t *testing.T) {
	acc := NewAccumulator(testPipelineConfig().Context)
	profiles := map[string]*CharacterProfile{
		"Kaelen": {Profile: strings.Repeat("long profile text ", 200)},
	}

	out := acc.ProfilesJSON(profiles)
	if len(out) > 1000+len("...") {
		t.Errorf("profiles json length = %d, want <= %d", len(out), 1000+len("..."))
	}
	if !strings.HasSuffix(out, "...") {
		t.Error("truncated profiles should end with ellipsis")
	}

	// 截断是确定性的
	if acc.ProfilesJSON(profiles) != out {
		t.Error("profile truncation not deterministic")
	}
}
