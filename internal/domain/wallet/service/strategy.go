package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"neosixty/internal/domain/wallet/model"
	"neosixty/internal/pkg/config"
	"neosixty/pkg/errs"
)

// PaymentInstruction 返回给前端的付款指引：
// 本地钱包没有跳转收银台，用户在钱包 App 里给商户号转账并回填交易号。
type PaymentInstruction struct {
	Method        string  `json:"method"`
	MerchantPhone string  `json:"merchantPhone"`
	Amount        float64 `json:"amount"`
	Reference     string  `json:"reference"`
	// DeepLink 拉起钱包 App 的链接
	DeepLink string `json:"deepLink"`
}

// CallbackPayload 网关回调报文
type CallbackPayload struct {
	TxnNo        string  `json:"txnNo" binding:"required"`
	GatewayTxnID string  `json:"gatewayTxnId" binding:"required"`
	Amount       float64 `json:"amount" binding:"required"`
	Status       string  `json:"status" binding:"required"` // success, failure
	Reason       string  `json:"reason"`
	Signature    string  `json:"signature" binding:"required"`
}

// PaymentStrategy 支付策略接口，每种钱包一个实现
type PaymentStrategy interface {
	Name() string
	// Pay 生成付款指引
	Pay(txn *model.PaymentTransaction) (*PaymentInstruction, error)
	// VerifyCallback 验证回调签名
	VerifyCallback(payload CallbackPayload) error
}

// signPayload 回调签名：HMAC-SHA256(txnNo|gatewayTxnId|amount|status)
func signPayload(secret string, payload CallbackPayload) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s|%.2f|%s",
		payload.TxnNo, payload.GatewayTxnID, payload.Amount, payload.Status)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret string, payload CallbackPayload) error {
	if secret == "" {
		return errs.Gatewayf("callback secret is not configured")
	}
	expected := signPayload(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		return errs.Forbiddenf("invalid callback signature")
	}
	return nil
}

// bkashStrategy bKash 钱包
type bkashStrategy struct {
	cfg config.WalletGatewayConfig
}

func NewBkashStrategy(cfg config.WalletGatewayConfig) PaymentStrategy {
	return &bkashStrategy{cfg: cfg}
}

func (s *bkashStrategy) Name() string { return model.MethodBkash }

func (s *bkashStrategy) Pay(txn *model.PaymentTransaction) (*PaymentInstruction, error) {
	if s.cfg.MerchantPhone == "" {
		return nil, errs.Gatewayf("bkash merchant is not configured")
	}
	return &PaymentInstruction{
		Method:        model.MethodBkash,
		MerchantPhone: s.cfg.MerchantPhone,
		Amount:        txn.Amount,
		Reference:     txn.TxnNo,
		DeepLink: fmt.Sprintf("bkash://payment?merchant=%s&amount=%.2f&reference=%s",
			s.cfg.MerchantPhone, txn.Amount, txn.TxnNo),
	}, nil
}

func (s *bkashStrategy) VerifyCallback(payload CallbackPayload) error {
	return verifySignature(s.cfg.CallbackSecret, payload)
}

// nagadStrategy Nagad 钱包
type nagadStrategy struct {
	cfg config.WalletGatewayConfig
}

func NewNagadStrategy(cfg config.WalletGatewayConfig) PaymentStrategy {
	return &nagadStrategy{cfg: cfg}
}

func (s *nagadStrategy) Name() string { return model.MethodNagad }

func (s *nagadStrategy) Pay(txn *model.PaymentTransaction) (*PaymentInstruction, error) {
	if s.cfg.MerchantPhone == "" {
		return nil, errs.Gatewayf("nagad merchant is not configured")
	}
	return &PaymentInstruction{
		Method:        model.MethodNagad,
		MerchantPhone: s.cfg.MerchantPhone,
		Amount:        txn.Amount,
		Reference:     txn.TxnNo,
		DeepLink: fmt.Sprintf("nagad://payment?merchant=%s&amount=%.2f&reference=%s",
			s.cfg.MerchantPhone, txn.Amount, txn.TxnNo),
	}, nil
}

func (s *nagadStrategy) VerifyCallback(payload CallbackPayload) error {
	return verifySignature(s.cfg.CallbackSecret, payload)
}
