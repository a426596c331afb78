package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	usermodel "neosixty/internal/domain/user/model"
	"neosixty/internal/domain/wallet/model"
	"neosixty/internal/domain/wallet/repository"
	"neosixty/pkg/cache"
	"neosixty/pkg/errs"
	"neosixty/pkg/logger"
	"neosixty/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CampaignActivator 广告模块注入的激活回调。
// wallet 先于 ads 初始化，环形依赖用 setter 打破。
type CampaignActivator interface {
	ActivateCampaign(campaignID string) error
}

// UserGate wallet 模块对用户模块的依赖面
type UserGate interface {
	GetUser(id string) (*usermodel.User, error)
	GetSettings() (*usermodel.AdminSettings, error)
}

// WalletService 支付/收益服务接口
type WalletService interface {
	// CreateAdPayment 创建广告支付（两阶段第一步，交易置 pending）
	CreateAdPayment(userID, campaignID string, amount float64, method, senderPhone, idempotencyKey string) (*model.PaymentTransaction, *PaymentInstruction, error)
	// HandleGatewayCallback 网关回调（两阶段第二步，验签后流转终态）
	HandleGatewayCallback(method string, payload CallbackPayload) error

	RequestWithdrawal(userID string, amount float64, method, phone, idempotencyKey string) (*model.PaymentTransaction, error)

	// CreditEarnings 创作者收益入账（广告模块分成时调用）
	CreditEarnings(userID string, amount float64) error
	GetEarnings(userID string) (*model.Earnings, error)

	GetTransaction(userID, txnNo string) (*model.PaymentTransaction, error)
	ListTransactions(userID string, page, limit int) ([]model.PaymentTransaction, int64, error)
	ListPendingTransactions(page, limit int) ([]model.PaymentTransaction, int64, error)

	SetCampaignActivator(a CampaignActivator)
}

type walletService struct {
	repo       repository.WalletRepository
	users      UserGate
	cache      cache.CacheService
	strategies map[string]PaymentStrategy
	activator  CampaignActivator
}

func NewWalletService(repo repository.WalletRepository, users UserGate, c cache.CacheService, strategies ...PaymentStrategy) WalletService {
	m := make(map[string]PaymentStrategy, len(strategies))
	for _, s := range strategies {
		m[s.Name()] = s
	}
	return &walletService{repo: repo, users: users, cache: c, strategies: m}
}

func (s *walletService) SetCampaignActivator(a CampaignActivator) {
	s.activator = a
}

func (s *walletService) strategy(method string) (PaymentStrategy, error) {
	strat, ok := s.strategies[method]
	if !ok {
		return nil, errs.Validationf("unsupported payment method %q", method)
	}
	return strat, nil
}

// newTxnNo 生成交易号
func newTxnNo() string {
	return fmt.Sprintf("NS%d%s", time.Now().Unix(),
		strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10]))
}

const idempotencyTTL = 24 * time.Hour

// claimIdempotencyKey 用 SetNX 把幂等键绑定到交易号。重复请求返回
// 首次绑定的交易号，调用方据此返回原始交易而不是重复落单。
func (s *walletService) claimIdempotencyKey(key, txnNo string) (string, error) {
	if key == "" {
		return "", nil
	}
	ctx := context.Background()
	ok, err := s.cache.SetNX(ctx, "idem:"+key, txnNo, idempotencyTTL)
	if err != nil {
		logger.Log.Warn("Idempotency check unavailable", zap.Error(err))
		return "", nil
	}
	if ok {
		return "", nil
	}

	var existing string
	if err := s.cache.Get(ctx, "idem:"+key, &existing); err != nil || existing == "" {
		return "", errs.Conflictf("duplicate request (idempotency key %s)", key)
	}
	return existing, nil
}

// CreateAdPayment 创建广告支付
func (s *walletService) CreateAdPayment(userID, campaignID string, amount float64, method, senderPhone, idempotencyKey string) (*model.PaymentTransaction, *PaymentInstruction, error) {
	if amount <= 0 {
		return nil, nil, errs.Validationf("amount must be positive")
	}
	strat, err := s.strategy(method)
	if err != nil {
		return nil, nil, err
	}

	txn := &model.PaymentTransaction{
		TxnNo:       newTxnNo(),
		UserID:      userID,
		Method:      method,
		Type:        model.TypeAdPayment,
		Status:      model.StatusPending,
		Amount:      amount,
		CampaignID:  campaignID,
		SenderPhone: senderPhone,
	}

	// 重复请求返回原始交易，绝不重复落单
	existingTxnNo, err := s.claimIdempotencyKey(idempotencyKey, txn.TxnNo)
	if err != nil {
		return nil, nil, err
	}
	if existingTxnNo != "" {
		existing, err := s.repo.GetByTxnNo(existingTxnNo)
		if err != nil {
			return nil, nil, errs.Conflictf("duplicate request (idempotency key %s)", idempotencyKey)
		}
		instruction, err := strat.Pay(existing)
		if err != nil {
			return nil, nil, err
		}
		return existing, instruction, nil
	}

	instruction, err := strat.Pay(txn)
	if err != nil {
		return nil, nil, err
	}
	txn.ExtraParams = model.ExtraParams{
		"merchantPhone": instruction.MerchantPhone,
		"deepLink":      instruction.DeepLink,
	}
	if err := s.repo.CreateTransaction(txn); err != nil {
		return nil, nil, err
	}

	metrics.Default.RecordPayment(method, model.TypeAdPayment, model.StatusPending)
	logger.Log.Info("Ad payment created",
		zap.String("txn_no", txn.TxnNo),
		zap.String("campaign_id", campaignID),
		zap.Float64("amount", amount),
	)
	return txn, instruction, nil
}

// HandleGatewayCallback 验签 → 幂等检查 → 状态流转 → 副作用。
// 已到终态的交易重复回调直接成功返回。
func (s *walletService) HandleGatewayCallback(method string, payload CallbackPayload) error {
	strat, err := s.strategy(method)
	if err != nil {
		return err
	}
	if err := strat.VerifyCallback(payload); err != nil {
		return err
	}

	txn, err := s.repo.GetByTxnNo(payload.TxnNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFoundf("transaction %s", payload.TxnNo)
		}
		return err
	}
	if txn.Method != method {
		return errs.Validationf("transaction %s does not belong to %s", payload.TxnNo, method)
	}

	target := model.StatusFailed
	if payload.Status == "success" {
		target = model.StatusCompleted
	}
	if txn.Status != model.StatusPending {
		if txn.Status == target {
			// 网关重试同一结果，终态已定
			return nil
		}
		return errs.Conflictf("transaction %s is already %s", txn.TxnNo, txn.Status)
	}
	if txn.Amount != payload.Amount {
		return errs.Validationf("callback amount mismatch for %s", payload.TxnNo)
	}

	callbackKey := fmt.Sprintf("callback:%s:%s", payload.TxnNo, payload.GatewayTxnID)
	if _, err := s.claimIdempotencyKey(callbackKey, payload.TxnNo); err != nil {
		return nil
	}

	if target == model.StatusCompleted {
		if err := s.repo.TransitionStatus(txn.TxnNo, model.StatusCompleted, payload.GatewayTxnID, ""); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		metrics.Default.RecordPayment(method, txn.Type, model.StatusCompleted)

		// 广告支付成功后激活对应的投放
		if txn.Type == model.TypeAdPayment && s.activator != nil {
			if err := s.activator.ActivateCampaign(txn.CampaignID); err != nil {
				logger.Log.Error("Campaign activation failed after payment",
					zap.String("txn_no", txn.TxnNo),
					zap.String("campaign_id", txn.CampaignID),
					zap.Error(err),
				)
			}
		}
		return nil
	}

	if err := s.repo.TransitionStatus(txn.TxnNo, model.StatusFailed, payload.GatewayTxnID, payload.Reason); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	metrics.Default.RecordPayment(method, txn.Type, model.StatusFailed)

	// 提现失败把扣掉的余额退回去，冲回的是 total_withdrawn
	// 而不是 total_earned，退款不是收入
	if txn.Type == model.TypeWithdrawal {
		if err := s.repo.RefundEarnings(txn.UserID, txn.Amount); err != nil {
			logger.Log.Error("Withdrawal refund failed",
				zap.String("txn_no", txn.TxnNo), zap.Error(err))
			return err
		}
	}
	return nil
}

// RequestWithdrawal 提现：先扣余额再建 pending 交易，网关失败时退回
func (s *walletService) RequestWithdrawal(userID string, amount float64, method, phone, idempotencyKey string) (*model.PaymentTransaction, error) {
	if _, err := s.strategy(method); err != nil {
		return nil, err
	}

	txnNo := newTxnNo()
	existingTxnNo, err := s.claimIdempotencyKey(idempotencyKey, txnNo)
	if err != nil {
		return nil, err
	}
	if existingTxnNo != "" {
		existing, err := s.repo.GetByTxnNo(existingTxnNo)
		if err != nil {
			return nil, errs.Conflictf("duplicate request (idempotency key %s)", idempotencyKey)
		}
		return existing, nil
	}

	user, err := s.users.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if !user.MonetizationEnabled {
		return nil, errs.Forbiddenf("monetization is not enabled for this account")
	}

	settings, err := s.users.GetSettings()
	if err != nil {
		return nil, err
	}
	if amount < settings.MinimumWithdrawal {
		return nil, errs.Validationf("minimum withdrawal amount is %.2f", settings.MinimumWithdrawal)
	}

	earnings, err := s.repo.GetEarnings(userID)
	if err != nil {
		return nil, err
	}
	if earnings.Balance < amount {
		return nil, errs.Validationf("insufficient balance (%.2f available)", earnings.Balance)
	}

	if err := s.repo.DebitEarnings(userID, amount, earnings.Version); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Conflictf("balance changed concurrently, retry the withdrawal")
		}
		return nil, err
	}

	txn := &model.PaymentTransaction{
		TxnNo:       txnNo,
		UserID:      userID,
		Method:      method,
		Type:        model.TypeWithdrawal,
		Status:      model.StatusPending,
		Amount:      amount,
		SenderPhone: phone,
	}
	if err := s.repo.CreateTransaction(txn); err != nil {
		// 交易落库失败必须把钱退回去
		if refundErr := s.repo.RefundEarnings(userID, amount); refundErr != nil {
			logger.Log.Error("Withdrawal rollback failed",
				zap.String("user_id", userID), zap.Error(refundErr))
		}
		return nil, err
	}

	metrics.Default.RecordPayment(method, model.TypeWithdrawal, model.StatusPending)
	return txn, nil
}

func (s *walletService) CreditEarnings(userID string, amount float64) error {
	if amount <= 0 {
		return errs.Validationf("credit amount must be positive")
	}
	return s.repo.CreditEarnings(userID, amount)
}

func (s *walletService) GetEarnings(userID string) (*model.Earnings, error) {
	return s.repo.GetEarnings(userID)
}

func (s *walletService) GetTransaction(userID, txnNo string) (*model.PaymentTransaction, error) {
	txn, err := s.repo.GetByTxnNo(txnNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("transaction %s", txnNo)
		}
		return nil, err
	}
	if txn.UserID != userID {
		return nil, errs.Forbiddenf("transaction belongs to another user")
	}
	return txn, nil
}

func (s *walletService) ListTransactions(userID string, page, limit int) ([]model.PaymentTransaction, int64, error) {
	offset, limit := pageOffset(page, limit)
	return s.repo.ListByUser(userID, offset, limit)
}

func (s *walletService) ListPendingTransactions(page, limit int) ([]model.PaymentTransaction, int64, error) {
	offset, limit := pageOffset(page, limit)
	return s.repo.ListByStatus(model.StatusPending, offset, limit)
}

func pageOffset(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit
}
