package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	baseModel "neosixty/pkg/model"
)

// 反应类型（六种，固定集合）
const (
	ReactionLike  = "like"
	ReactionLove  = "love"
	ReactionHaha  = "haha"
	ReactionWow   = "wow"
	ReactionAngry = "angry"
	ReactionSad   = "sad"
)

// ReactionKinds 所有反应类型，序列化顺序固定
var ReactionKinds = []string{
	ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionAngry, ReactionSad,
}

// IsValidReactionKind 校验反应类型
func IsValidReactionKind(kind string) bool {
	for _, k := range ReactionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ReactionEntry 单种反应的计数和用户列表
type ReactionEntry struct {
	Count int64    `json:"count"`
	Users []string `json:"users"`
}

// ReactionSummary 帖子的反应汇总，整体存成一列 jsonb。
// 不变式：每种 Count == len(Users)；一个用户同时最多出现在一种反应里。
type ReactionSummary map[string]*ReactionEntry

// NewReactionSummary 初始化六种反应的空汇总
func NewReactionSummary() ReactionSummary {
	s := make(ReactionSummary, len(ReactionKinds))
	for _, k := range ReactionKinds {
		s[k] = &ReactionEntry{Count: 0, Users: []string{}}
	}
	return s
}

// 反应动作（指标打点用）
const (
	ReactionActionAdded   = "added"
	ReactionActionRemoved = "removed"
	ReactionActionMoved   = "moved"
)

// Apply 用户对帖子做一次反应：
//   - 已经是同种反应 → 取消（toggle）
//   - 已有其他反应 → 移动到新反应
//   - 没有反应 → 添加
//
// 返回实际发生的动作。
func (s ReactionSummary) Apply(userID, kind string) (string, error) {
	if !IsValidReactionKind(kind) {
		return "", fmt.Errorf("unknown reaction kind %q", kind)
	}
	s.normalize()

	previous := s.findUser(userID)
	if previous == kind {
		s.remove(previous, userID)
		return ReactionActionRemoved, nil
	}
	if previous != "" {
		s.remove(previous, userID)
		s.add(kind, userID)
		return ReactionActionMoved, nil
	}
	s.add(kind, userID)
	return ReactionActionAdded, nil
}

// findUser 返回用户当前的反应类型，没有则返回空串
func (s ReactionSummary) findUser(userID string) string {
	for _, k := range ReactionKinds {
		for _, u := range s[k].Users {
			if u == userID {
				return k
			}
		}
	}
	return ""
}

func (s ReactionSummary) add(kind, userID string) {
	entry := s[kind]
	entry.Users = append(entry.Users, userID)
	entry.Count = int64(len(entry.Users))
}

func (s ReactionSummary) remove(kind, userID string) {
	entry := s[kind]
	for i, u := range entry.Users {
		if u == userID {
			entry.Users = append(entry.Users[:i], entry.Users[i+1:]...)
			break
		}
	}
	entry.Count = int64(len(entry.Users))
}

// Total 所有反应数之和
func (s ReactionSummary) Total() int64 {
	var total int64
	for _, k := range ReactionKinds {
		if e, ok := s[k]; ok {
			total += e.Count
		}
	}
	return total
}

// normalize 补齐缺失的类型并修正计数，容忍历史脏数据
func (s ReactionSummary) normalize() {
	for _, k := range ReactionKinds {
		if s[k] == nil {
			s[k] = &ReactionEntry{Count: 0, Users: []string{}}
			continue
		}
		if s[k].Users == nil {
			s[k].Users = []string{}
		}
		s[k].Count = int64(len(s[k].Users))
	}
}

// Value 实现 driver.Valuer，整列写 jsonb
func (s ReactionSummary) Value() (driver.Value, error) {
	if s == nil {
		s = NewReactionSummary()
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner
func (s *ReactionSummary) Scan(value interface{}) error {
	if value == nil {
		*s = NewReactionSummary()
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported reaction summary type %T", value)
	}

	if err := json.Unmarshal(raw, s); err != nil {
		return err
	}
	s.normalize()
	return nil
}

// Post 帖子。作者信息反范式化冗余存储，读列表不 join 用户表。
type Post struct {
	baseModel.BaseModel
	AuthorID string `gorm:"index;type:uuid" json:"authorId"`

	// 作者快照，用户改名/换头像后由级联任务刷新
	AuthorName     string `json:"authorName"`
	AuthorUsername string `json:"authorUsername"`
	AuthorAvatar   string `json:"authorAvatar"`
	AuthorVersion  int64  `gorm:"default:0" json:"-"`

	Content  string `gorm:"type:text" json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty"`
	// IsHTML 为 false 时内容在写入前做 HTML 转义
	IsHTML bool `gorm:"default:false" json:"isHtml"`

	Mentions json.RawMessage `gorm:"type:jsonb" json:"mentions,omitempty"`
	Tags     json.RawMessage `gorm:"type:jsonb" json:"tags,omitempty"`

	Reactions    ReactionSummary `gorm:"type:jsonb" json:"reactions"`
	CommentCount int64           `gorm:"default:0" json:"commentCount"`
	ShareCount   int64           `gorm:"default:0" json:"shareCount"`
}

// Comment 评论，同样冗余作者快照
type Comment struct {
	baseModel.BaseModel
	PostID   string `gorm:"index;type:uuid" json:"postId"`
	AuthorID string `gorm:"index;type:uuid" json:"authorId"`

	AuthorName     string `json:"authorName"`
	AuthorUsername string `json:"authorUsername"`
	AuthorAvatar   string `json:"authorAvatar"`
	AuthorVersion  int64  `gorm:"default:0" json:"-"`

	Content   string `gorm:"type:text" json:"content"`
	ImageURL  string `json:"imageUrl,omitempty"`
	VideoURL  string `json:"videoUrl,omitempty"`
	LikeCount int64  `gorm:"default:0" json:"likeCount"`
}

// CommentLike 评论点赞行，(comment_id, user_id) 唯一
type CommentLike struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	CommentID string `gorm:"uniqueIndex:idx_comment_user;type:uuid" json:"commentId"`
	UserID    string `gorm:"uniqueIndex:idx_comment_user;type:uuid" json:"userId"`
}
