package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// 审校响应中的区块标记
const (
	markerApproved = "APPROVED"
	markerIssues   = "ISSUES_FOUND:"
	markerFixes    = "FIXES_NEEDED:"
	markerRevised  = "REVISED_CONTENT:"
)

// ExtractTitle 从生成的原始文本中提取章节标题和正文
// 首行作为候选标题：剥掉 Markdown 井号、回显的 "Chapter" 字样、
// 章节号和冒号；提取结果为空时回退到合成标题
func ExtractTitle(raw string, chapterNum int) (title, body string) {
	raw = strings.TrimSpace(raw)

	first, rest, found := strings.Cut(raw, "\n")
	title = strings.TrimSpace(first)
	title = strings.ReplaceAll(title, "#", "")
	title = strings.ReplaceAll(title, "Chapter", "")
	title = strings.ReplaceAll(title, strconv.Itoa(chapterNum), "")
	title = strings.ReplaceAll(title, ":", "")
	title = strings.TrimSpace(title)

	if title == "" {
		title = fmt.Sprintf("Chapter %d", chapterNum)
	}

	if found {
		body = strings.TrimSpace(rest)
	}
	if body == "" {
		body = raw
	}
	return title, body
}

// Verdict 审校阶段的结构化结论
type Verdict struct {
	Passed         bool
	Issues         []string
	Fixes          []string
	RevisedContent string
}

// ParseVerdict 解析审校响应
// 显式的 APPROVED 标记视为无问题；否则按区块标记切分问题列表、
// 修正列表和可选的替换正文。尽力而为的提取：缺失的区块取空值，
// 只有问题列表解析为空时才判定通过
func ParseVerdict(response string) *Verdict {
	if strings.Contains(response, markerApproved) {
		return &Verdict{
			Passed: true,
			Issues: []string{},
			Fixes:  []string{},
		}
	}

	issues := extractLines(section(response, markerIssues, markerFixes), true)
	fixes := extractLines(section(response, markerFixes, markerRevised), false)

	var revised string
	if _, after, found := strings.Cut(response, markerRevised); found {
		revised = strings.TrimSpace(after)
	}

	return &Verdict{
		Passed:         len(issues) == 0,
		Issues:         issues,
		Fixes:          fixes,
		RevisedContent: revised,
	}
}

// section 取 start 标记之后、end 标记之前的文本；start 不存在时返回空串
func section(s, start, end string) string {
	_, after, found := strings.Cut(s, start)
	if !found {
		return ""
	}
	if before, _, ok := strings.Cut(after, end); ok {
		return before
	}
	return after
}

// extractLines 按行切分并去空白；dropNone 时过滤占位的 "none" 行
func extractLines(s string, dropNone bool) []string {
	lines := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if dropNone && strings.EqualFold(line, "none") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
