package model

import (
	"time"

	baseModel "neosixty/pkg/model"
)

// 故事媒体类型
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaText  = "text"
)

// IsValidMediaType 校验媒体类型
func IsValidMediaType(t string) bool {
	return t == MediaImage || t == MediaVideo || t == MediaText
}

// Story 24 小时后过期的短内容。作者快照与帖子同一套级联机制。
type Story struct {
	baseModel.BaseModel
	AuthorID string `gorm:"index;type:uuid" json:"authorId"`

	AuthorName     string `json:"authorName"`
	AuthorUsername string `json:"authorUsername"`
	AuthorAvatar   string `json:"authorAvatar"`
	AuthorVersion  int64  `gorm:"default:0" json:"-"`

	MediaURL  string `json:"mediaUrl,omitempty"`
	MediaType string `gorm:"default:'image'" json:"mediaType"`
	Caption   string `json:"caption,omitempty"`
	// 纯文字故事的背景样式
	Background string `json:"background,omitempty"`

	ViewCount int64 `gorm:"default:0" json:"viewCount"`

	// ExpiresAt 过期后对读路径不可见，物理清理由后台任务完成
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
}

// IsExpired 是否已过期
func (s *Story) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
