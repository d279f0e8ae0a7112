// Package entity 定义领域实体
package entity

import "errors"

// 输入校验错误
var (
	ErrMissingTitle        = errors.New("project title is required")
	ErrInvalidChapterCount = errors.New("target chapter count must be at least 1")
	ErrInvalidWordTarget   = errors.New("target words per chapter must be at least 1")
)
