package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
)

// StageContext 一次运行内逐阶段累积的上游上下文
// 仅在运行期间存活，由编排器独占持有，不落库
type StageContext struct {
	WorldBible     string
	Profiles       map[string]*CharacterProfile
	MainCharacters []string
	PlotStructure  string
	ChapterCount   int
}

// CharacterProfile 角色阶段产出的单角色档案
type CharacterProfile struct {
	Profile   string                `json:"profile"`
	Input     entity.CharacterInput `json:"input"`
	Archetype string                `json:"archetype,omitempty"`
	Voice     string                `json:"voice,omitempty"`
}

// Accumulator 为各阶段构建有界上下文
// 外部文本服务的输入预算有限，这里的截断是既定的有损策略：
// 连续性依赖近期上下文而非完整历史，截断静默发生，不报错
type Accumulator struct {
	cfg config.ContextConfig
}

// NewAccumulator 创建上下文累积器
func NewAccumulator(cfg config.ContextConfig) *Accumulator {
	return &Accumulator{cfg: cfg}
}

// ProseChapterSummary 为正文生成构建前章摘要
// 只取最近 ProseWindow 章，每章只保留开头 ProseTailChars 个字符
func (a *Accumulator) ProseChapterSummary(chapters []*entity.Chapter) string {
	if len(chapters) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("PREVIOUS CHAPTERS SUMMARY:\n")
	for _, ch := range tail(chapters, a.cfg.ProseWindow) {
		fmt.Fprintf(&b, "Chapter %d: %s\n", ch.Number, ch.Title)
		fmt.Fprintf(&b, "Key events: %s...\n\n", prefix(ch.Content, a.cfg.ProseTailChars))
	}
	return b.String()
}

// CheckerChapterSummary 为审校阶段构建前章摘要
// 窗口更宽（CheckerWindow 章）但每章前缀更短（CheckerTailChars 字符）
func (a *Accumulator) CheckerChapterSummary(chapters []*entity.Chapter) string {
	if len(chapters) == 0 {
		return "No previous chapters."
	}

	var b strings.Builder
	for _, ch := range tail(chapters, a.cfg.CheckerWindow) {
		fmt.Fprintf(&b, "Chapter %d: %s\n", ch.Number, ch.Title)
		fmt.Fprintf(&b, "Key events: %s...\n\n", prefix(ch.Content, a.cfg.CheckerTailChars))
	}
	return b.String()
}

// ProfilesJSON 把角色档案序列化后截断到固定字符预算
func (a *Accumulator) ProfilesJSON(profiles map[string]*CharacterProfile) string {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return "{}"
	}
	s := string(data)
	if len(s) > a.cfg.ProfileLimitChars {
		return prefix(s, a.cfg.ProfileLimitChars) + "..."
	}
	return s
}

// tail 返回切片末尾最多 n 个元素
func tail(chapters []*entity.Chapter, n int) []*entity.Chapter {
	if n <= 0 || len(chapters) <= n {
		return chapters
	}
	return chapters[len(chapters)-n:]
}

// prefix 返回字符串开头最多 n 个字节，截断点回退到完整 rune 边界
func prefix(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
