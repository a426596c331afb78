package model

import (
	"encoding/json"

	baseModel "neosixty/pkg/model"
)

// 用户角色
const (
	RoleUser      = "user"
	RoleEditor    = "editor"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User 用户模型
type User struct {
	baseModel.BaseModel
	Name        string `json:"name"`
	Username    string `gorm:"unique" json:"username"`
	AvatarURL   string `json:"avatarUrl"`
	PhoneNumber string `gorm:"index" json:"phoneNumber,omitempty"`
	Email       string `gorm:"index" json:"email,omitempty"`
	// 密码只存 bcrypt 哈希，不返回给前端
	PasswordHash string `json:"-"`

	Role string `gorm:"default:'user'" json:"role"` // user, editor, moderator, admin

	FollowerCount  int64 `gorm:"default:0" json:"followerCount"`
	FollowingCount int64 `gorm:"default:0" json:"followingCount"`

	// IsVerified 粉丝数达标后自动置位（单向锁存，只有管理员能取消）
	IsVerified          bool `gorm:"default:false" json:"isVerified"`
	IsActive            bool `gorm:"default:true" json:"isActive"`
	IsProfessional      bool `gorm:"default:false" json:"isProfessional"`
	MonetizationEnabled bool `gorm:"default:false" json:"monetizationEnabled"`

	// ProfileVersion 每次改名/换头像递增，级联更新用它判断快照新旧
	ProfileVersion int64 `gorm:"default:0" json:"-"`

	Profile *Profile `json:"profile,omitempty"`
}

// IsValidRole 校验角色取值
func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleEditor, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Profile 用户资料子记录
type Profile struct {
	baseModel.BaseModel
	UserID string `gorm:"uniqueIndex;type:uuid" json:"userId"`

	Bio                string `json:"bio"`
	CoverURL           string `json:"coverUrl"`
	Location           string `json:"location"`
	Website            string `json:"website"`
	ContactPhone       string `json:"contactPhone"`
	ContactEmail       string `json:"contactEmail"`
	Birthday           string `json:"birthday"`
	RelationshipStatus string `json:"relationshipStatus"`

	// 有序列表统一存 jsonb
	Work        json.RawMessage `gorm:"type:jsonb" json:"work,omitempty"`
	Education   json.RawMessage `gorm:"type:jsonb" json:"education,omitempty"`
	Interests   json.RawMessage `gorm:"type:jsonb" json:"interests,omitempty"`
	Languages   json.RawMessage `gorm:"type:jsonb" json:"languages,omitempty"`
	SocialLinks json.RawMessage `gorm:"type:jsonb" json:"socialLinks,omitempty"`

	// Version 乐观并发控制：带着旧版本号的更新会被拒绝
	Version int64 `gorm:"default:0" json:"version"`
}

// AdminSettings 全局开关（单行表）
type AdminSettings struct {
	ID                  uint    `gorm:"primaryKey" json:"-"`
	AppName             string  `gorm:"default:'Neo sixty'" json:"appName"`
	AllowRegistration   bool    `gorm:"default:true" json:"allowRegistration"`
	AllowPosts          bool    `gorm:"default:true" json:"allowPosts"`
	AllowStories        bool    `gorm:"default:true" json:"allowStories"`
	AllowComments       bool    `gorm:"default:true" json:"allowComments"`
	AllowReactions      bool    `gorm:"default:true" json:"allowReactions"`
	ModerationEnabled   bool    `gorm:"default:false" json:"moderationEnabled"`
	MonetizationEnabled bool    `gorm:"default:true" json:"monetizationEnabled"`
	MinimumWithdrawal   float64 `gorm:"default:30" json:"minimumWithdrawal"`
	AdRevenueShare      int     `gorm:"default:70" json:"adRevenueShare"` // 创作者分成百分比
}
