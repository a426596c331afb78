package repository

import (
	"errors"
	"time"

	"neosixty/internal/domain/wallet/model"

	"gorm.io/gorm"
)

// WalletRepository 交易/收益存储
type WalletRepository interface {
	CreateTransaction(txn *model.PaymentTransaction) error
	GetByTxnNo(txnNo string) (*model.PaymentTransaction, error)
	// TransitionStatus 只允许从 pending 流转到终态
	TransitionStatus(txnNo, status, gatewayTxnID, failReason string) error
	ListByUser(userID string, offset, limit int) ([]model.PaymentTransaction, int64, error)
	ListByStatus(status string, offset, limit int) ([]model.PaymentTransaction, int64, error)

	// GetEarnings 不存在时惰性建账户
	GetEarnings(userID string) (*model.Earnings, error)
	// CreditEarnings 原子入账
	CreditEarnings(userID string, amount float64) error
	// DebitEarnings 乐观并发扣款，余额不足或版本不匹配时失败
	DebitEarnings(userID string, amount float64, expectedVersion int64) error
	// RefundEarnings 提现失败回滚，退回余额并冲回累计提现
	RefundEarnings(userID string, amount float64) error
}

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) CreateTransaction(txn *model.PaymentTransaction) error {
	return r.db.Create(txn).Error
}

func (r *walletRepository) GetByTxnNo(txnNo string) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	if err := r.db.Where("txn_no = ?", txnNo).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// TransitionStatus 条件更新保证终态不可覆盖，重复回调天然幂等
func (r *walletRepository) TransitionStatus(txnNo, status, gatewayTxnID, failReason string) error {
	updates := map[string]interface{}{
		"status":         status,
		"gateway_txn_id": gatewayTxnID,
		"fail_reason":    failReason,
	}
	if status == model.StatusCompleted {
		updates["completed_at"] = time.Now()
	}
	result := r.db.Model(&model.PaymentTransaction{}).
		Where("txn_no = ? AND status = ?", txnNo, model.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *walletRepository) ListByUser(userID string, offset, limit int) ([]model.PaymentTransaction, int64, error) {
	var txns []model.PaymentTransaction
	var total int64

	q := r.db.Model(&model.PaymentTransaction{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *walletRepository) ListByStatus(status string, offset, limit int) ([]model.PaymentTransaction, int64, error) {
	var txns []model.PaymentTransaction
	var total int64

	q := r.db.Model(&model.PaymentTransaction{}).Where("status = ?", status)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *walletRepository) GetEarnings(userID string) (*model.Earnings, error) {
	var earnings model.Earnings
	err := r.db.Where("user_id = ?", userID).First(&earnings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		earnings = model.Earnings{UserID: userID}
		if err := r.db.Create(&earnings).Error; err != nil {
			return nil, err
		}
		return &earnings, nil
	}
	if err != nil {
		return nil, err
	}
	return &earnings, nil
}

// CreditEarnings 单条 UPDATE 原子入账，账户不存在时先建
func (r *walletRepository) CreditEarnings(userID string, amount float64) error {
	if _, err := r.GetEarnings(userID); err != nil {
		return err
	}
	return r.db.Model(&model.Earnings{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"total_earned": gorm.Expr("total_earned + ?", amount),
			"version":      gorm.Expr("version + 1"),
		}).Error
}

// DebitEarnings 带版本号和余额下限的条件扣款
func (r *walletRepository) DebitEarnings(userID string, amount float64, expectedVersion int64) error {
	result := r.db.Model(&model.Earnings{}).
		Where("user_id = ? AND version = ? AND balance >= ?", userID, expectedVersion, amount).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance - ?", amount),
			"total_withdrawn": gorm.Expr("total_withdrawn + ?", amount),
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RefundEarnings 是 DebitEarnings 的逆操作：余额退回、total_withdrawn
// 冲回。total_earned 不动，生命周期累计只记真实发生的收入和提现。
func (r *walletRepository) RefundEarnings(userID string, amount float64) error {
	result := r.db.Model(&model.Earnings{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", amount),
			"total_withdrawn": gorm.Expr("total_withdrawn - ?", amount),
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
