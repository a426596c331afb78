package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	baseModel "neosixty/pkg/model"
)

// 投放状态
const (
	StatusPending   = "pending" // 待支付
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed" // 预算耗尽或到期
	StatusRejected  = "rejected"
)

// Targeting 投放定向条件，整体存一列 jsonb
type Targeting struct {
	AgeMin    int      `json:"ageMin,omitempty"`
	AgeMax    int      `json:"ageMax,omitempty"`
	Gender    string   `json:"gender,omitempty"` // male, female, all
	Interests []string `json:"interests,omitempty"`
	Locations []string `json:"locations,omitempty"`
}

// Value 实现 driver.Valuer
func (t Targeting) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan 实现 sql.Scanner
func (t *Targeting) Scan(value interface{}) error {
	if value == nil {
		*t = Targeting{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported targeting type %T", value)
	}
}

// AdCampaign 广告投放。按点击计费，花完预算自动结束。
type AdCampaign struct {
	baseModel.BaseModel
	AdvertiserID string `gorm:"index;type:uuid" json:"advertiserId"`

	Title    string `json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty"`
	// TargetURL 点击跳转地址
	TargetURL string `json:"targetUrl"`

	Targeting Targeting `gorm:"type:jsonb" json:"targeting"`

	Budget       float64 `json:"budget"`
	DailyBudget  float64 `gorm:"default:0" json:"dailyBudget,omitempty"`
	DurationDays int     `gorm:"default:0" json:"durationDays"`
	Spent        float64 `gorm:"default:0" json:"spent"`
	CostPerClick float64 `json:"costPerClick"`

	Status string `gorm:"default:'pending';index" json:"status"`
	// IsFreeTrial 免费试用投放，无需支付直接激活
	IsFreeTrial bool `gorm:"default:false" json:"isFreeTrial"`

	Impressions int64 `gorm:"default:0" json:"impressions"`
	Clicks      int64 `gorm:"default:0" json:"clicks"`

	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
	// CompletedAt 预算耗尽自动结束的时刻
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	RejectReason string `json:"rejectReason,omitempty"`
}

// IsServable 是否可投放
func (c *AdCampaign) IsServable(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return c.Spent < c.Budget
}
