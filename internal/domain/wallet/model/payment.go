package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	baseModel "neosixty/pkg/model"
)

// 支付方式（本地移动钱包）
const (
	MethodBkash = "bkash"
	MethodNagad = "nagad"
)

// IsValidMethod 校验支付方式
func IsValidMethod(method string) bool {
	return method == MethodBkash || method == MethodNagad
}

// 交易状态
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// 交易类型
const (
	TypeAdPayment  = "ad_payment"
	TypeWithdrawal = "withdrawal"
)

// PaymentTransaction 支付交易。两阶段：创建时 pending，
// 网关回调验签通过后流转到 completed / failed。
type PaymentTransaction struct {
	baseModel.BaseModel
	TxnNo  string `gorm:"uniqueIndex" json:"txnNo"`
	UserID string `gorm:"index;type:uuid" json:"userId"`

	Method string  `json:"method"` // bkash, nagad
	Type   string  `json:"type"`   // ad_payment, withdrawal
	Status string  `gorm:"default:'pending';index" json:"status"`
	Amount float64 `json:"amount"`

	// CampaignID 广告支付关联的投放
	CampaignID  string `gorm:"index" json:"campaignId,omitempty"`
	SenderPhone string `json:"senderPhone,omitempty"`

	// GatewayTxnID 网关侧交易号，回调时写入
	GatewayTxnID string     `json:"gatewayTxnId,omitempty"`
	FailReason   string     `json:"failReason,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`

	// ExtraParams 网关侧附加参数（deep link、商户号等）
	ExtraParams ExtraParams `gorm:"type:jsonb" json:"extraParams,omitempty"`
}

// ExtraParams 网关附加参数，jsonb 存储
type ExtraParams map[string]string

func (p ExtraParams) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *ExtraParams) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return errors.New("extra params: unsupported scan type")
	}
	return json.Unmarshal(data, p)
}

// Earnings 创作者收益账户，乐观并发控制
type Earnings struct {
	baseModel.BaseModel
	UserID string `gorm:"uniqueIndex;type:uuid" json:"userId"`

	Balance        float64 `gorm:"default:0" json:"balance"`
	TotalEarned    float64 `gorm:"default:0" json:"totalEarned"`
	TotalWithdrawn float64 `gorm:"default:0" json:"totalWithdrawn"`

	Version int64 `gorm:"default:0" json:"-"`
}
