// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// Chapter 章节实体
// 由正文生成阶段创建，审校阶段至多修改一次，随后不可变地追加到项目章节序列
type Chapter struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	WordCount   int       `json:"word_count"`
	CheckPassed bool      `json:"check_passed"`
	IssuesFound []string  `json:"issues_found"`
	IssuesFixed []string  `json:"issues_fixed"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewChapter 创建新章节
func NewChapter(projectID string, number int, title, content string) *Chapter {
	return &Chapter{
		ProjectID:   projectID,
		Number:      number,
		Title:       title,
		Content:     content,
		WordCount:   CountWords(content),
		IssuesFound: []string{},
		IssuesFixed: []string{},
		CreatedAt:   time.Now(),
	}
}

// SetContent 替换正文并重新计算字数
func (c *Chapter) SetContent(content string) {
	c.Content = content
	c.WordCount = CountWords(content)
}

// Paragraphs 按空行切分正文，供渲染器确定段落边界
func (c *Chapter) Paragraphs() []string {
	blocks := strings.Split(c.Content, "\n\n")
	paragraphs := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if p := strings.TrimSpace(b); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// CountWords 统计空白分隔的词元数量
func CountWords(s string) int {
	return len(strings.Fields(s))
}
