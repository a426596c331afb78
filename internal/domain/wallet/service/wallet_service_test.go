package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	usermodel "neosixty/internal/domain/user/model"
	"neosixty/internal/domain/wallet/model"
	"neosixty/internal/pkg/config"
	"neosixty/pkg/cache"
	"neosixty/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockWalletRepository struct {
	mock.Mock
}

func (m *mockWalletRepository) CreateTransaction(txn *model.PaymentTransaction) error {
	return m.Called(txn).Error(0)
}

func (m *mockWalletRepository) GetByTxnNo(txnNo string) (*model.PaymentTransaction, error) {
	args := m.Called(txnNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentTransaction), args.Error(1)
}

func (m *mockWalletRepository) TransitionStatus(txnNo, status, gatewayTxnID, failReason string) error {
	return m.Called(txnNo, status, gatewayTxnID, failReason).Error(0)
}

func (m *mockWalletRepository) ListByUser(userID string, offset, limit int) ([]model.PaymentTransaction, int64, error) {
	args := m.Called(userID, offset, limit)
	return args.Get(0).([]model.PaymentTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *mockWalletRepository) ListByStatus(status string, offset, limit int) ([]model.PaymentTransaction, int64, error) {
	args := m.Called(status, offset, limit)
	return args.Get(0).([]model.PaymentTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *mockWalletRepository) GetEarnings(userID string) (*model.Earnings, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Earnings), args.Error(1)
}

func (m *mockWalletRepository) CreditEarnings(userID string, amount float64) error {
	return m.Called(userID, amount).Error(0)
}

func (m *mockWalletRepository) DebitEarnings(userID string, amount float64, expectedVersion int64) error {
	return m.Called(userID, amount, expectedVersion).Error(0)
}

func (m *mockWalletRepository) RefundEarnings(userID string, amount float64) error {
	return m.Called(userID, amount).Error(0)
}

type mockUserGate struct {
	mock.Mock
}

func (m *mockUserGate) GetUser(id string) (*usermodel.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usermodel.User), args.Error(1)
}

func (m *mockUserGate) GetSettings() (*usermodel.AdminSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usermodel.AdminSettings), args.Error(1)
}

// memoryCache 只实现测试需要的 SetNX / Get 语义
type memoryCache struct {
	vals map[string]string
}

func newMemoryCache() *memoryCache { return &memoryCache{vals: make(map[string]string)} }

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := c.vals[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	if s, ok := dest.(*string); ok {
		*s = v
		return nil
	}
	return cache.ErrCacheMiss
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.vals[key] = fmt.Sprint(value)
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.vals, key)
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.vals[key]
	return ok, nil
}

func (c *memoryCache) InvalidatePattern(ctx context.Context, pattern string) error { return nil }

func (c *memoryCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if _, ok := c.vals[key]; ok {
		return false, nil
	}
	c.vals[key] = fmt.Sprint(value)
	return true, nil
}

type mockActivator struct {
	mock.Mock
}

func (m *mockActivator) ActivateCampaign(campaignID string) error {
	return m.Called(campaignID).Error(0)
}

const testSecret = "test-callback-secret"

func testGatewayConfig() config.WalletGatewayConfig {
	return config.WalletGatewayConfig{
		MerchantPhone:  "01700000000",
		CallbackSecret: testSecret,
	}
}

func newTestService(repo *mockWalletRepository, users *mockUserGate) WalletService {
	return NewWalletService(repo, users, newMemoryCache(),
		NewBkashStrategy(testGatewayConfig()),
		NewNagadStrategy(testGatewayConfig()),
	)
}

func signedPayload(txnNo, gatewayTxnID string, amount float64, status string) CallbackPayload {
	p := CallbackPayload{
		TxnNo:        txnNo,
		GatewayTxnID: gatewayTxnID,
		Amount:       amount,
		Status:       status,
	}
	p.Signature = signPayload(testSecret, p)
	return p
}

func TestStrategySignature(t *testing.T) {
	strat := NewBkashStrategy(testGatewayConfig())

	t.Run("valid signature passes", func(t *testing.T) {
		payload := signedPayload("NS1", "GW1", 50, "success")
		assert.NoError(t, strat.VerifyCallback(payload))
	})

	t.Run("tampered amount fails", func(t *testing.T) {
		payload := signedPayload("NS1", "GW1", 50, "success")
		payload.Amount = 500

		err := strat.VerifyCallback(payload)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("missing secret fails closed", func(t *testing.T) {
		bare := NewBkashStrategy(config.WalletGatewayConfig{})
		err := bare.VerifyCallback(signedPayload("NS1", "GW1", 50, "success"))
		assert.ErrorIs(t, err, errs.ErrGateway)
	})
}

func TestCreateAdPayment(t *testing.T) {
	t.Run("creates pending transaction with instruction", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		repo.On("CreateTransaction", mock.AnythingOfType("*model.PaymentTransaction")).Return(nil)

		svc := newTestService(repo, users)
		txn, instruction, err := svc.CreateAdPayment("u1", "camp-1", 50, model.MethodBkash, "017", "")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPending, txn.Status)
		assert.Equal(t, model.TypeAdPayment, txn.Type)
		assert.Equal(t, "camp-1", txn.CampaignID)
		assert.NotEmpty(t, txn.TxnNo)
		assert.Equal(t, "01700000000", instruction.MerchantPhone)
		assert.Contains(t, instruction.DeepLink, txn.TxnNo)
		assert.Equal(t, instruction.DeepLink, txn.ExtraParams["deepLink"])
	})

	t.Run("duplicate idempotency key returns the original transaction", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		var original *model.PaymentTransaction
		repo.On("CreateTransaction", mock.AnythingOfType("*model.PaymentTransaction")).
			Run(func(args mock.Arguments) {
				original = args.Get(0).(*model.PaymentTransaction)
			}).Return(nil)

		svc := newTestService(repo, users)
		first, _, err := svc.CreateAdPayment("u1", "camp-1", 50, model.MethodBkash, "017", "key-1")
		assert.NoError(t, err)

		repo.On("GetByTxnNo", first.TxnNo).Return(original, nil)
		second, _, err := svc.CreateAdPayment("u1", "camp-1", 50, model.MethodBkash, "017", "key-1")
		assert.NoError(t, err)
		assert.Equal(t, first.TxnNo, second.TxnNo)
		repo.AssertNumberOfCalls(t, "CreateTransaction", 1)
	})

	t.Run("unsupported method rejected", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)

		svc := newTestService(repo, users)
		_, _, err := svc.CreateAdPayment("u1", "camp-1", 50, "paypal", "", "")

		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestHandleGatewayCallback(t *testing.T) {
	pendingTxn := func() *model.PaymentTransaction {
		return &model.PaymentTransaction{
			TxnNo:      "NS1",
			UserID:     "u1",
			Method:     model.MethodBkash,
			Type:       model.TypeAdPayment,
			Status:     model.StatusPending,
			Amount:     50,
			CampaignID: "camp-1",
		}
	}

	t.Run("success completes and activates campaign", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		activator := new(mockActivator)
		repo.On("GetByTxnNo", "NS1").Return(pendingTxn(), nil)
		repo.On("TransitionStatus", "NS1", model.StatusCompleted, "GW1", "").Return(nil)
		activator.On("ActivateCampaign", "camp-1").Return(nil)

		svc := newTestService(repo, users)
		svc.SetCampaignActivator(activator)

		err := svc.HandleGatewayCallback(model.MethodBkash, signedPayload("NS1", "GW1", 50, "success"))

		assert.NoError(t, err)
		repo.AssertExpectations(t)
		activator.AssertExpectations(t)
	})

	t.Run("replayed callback with the same outcome is a no-op", func(t *testing.T) {
		completed := pendingTxn()
		completed.Status = model.StatusCompleted
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		activator := new(mockActivator)
		repo.On("GetByTxnNo", "NS1").Return(completed, nil)

		svc := newTestService(repo, users)
		svc.SetCampaignActivator(activator)

		err := svc.HandleGatewayCallback(model.MethodBkash, signedPayload("NS1", "GW1", 50, "success"))

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		activator.AssertNotCalled(t, "ActivateCampaign", mock.Anything)
	})

	t.Run("callback contradicting a settled state conflicts", func(t *testing.T) {
		completed := pendingTxn()
		completed.Status = model.StatusCompleted
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		repo.On("GetByTxnNo", "NS1").Return(completed, nil)

		svc := newTestService(repo, users)
		err := svc.HandleGatewayCallback(model.MethodBkash, signedPayload("NS1", "GW2", 50, "failure"))

		assert.ErrorIs(t, err, errs.ErrConflict)
		repo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad signature rejected", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)

		payload := signedPayload("NS1", "GW1", 50, "success")
		payload.Signature = "forged"

		svc := newTestService(repo, users)
		err := svc.HandleGatewayCallback(model.MethodBkash, payload)

		assert.ErrorIs(t, err, errs.ErrForbidden)
		repo.AssertNotCalled(t, "GetByTxnNo", mock.Anything)
	})

	t.Run("amount mismatch rejected", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		repo.On("GetByTxnNo", "NS1").Return(pendingTxn(), nil)

		svc := newTestService(repo, users)
		err := svc.HandleGatewayCallback(model.MethodBkash, signedPayload("NS1", "GW1", 500, "success"))

		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("failed withdrawal refunds the balance without touching earnings", func(t *testing.T) {
		withdrawal := pendingTxn()
		withdrawal.Type = model.TypeWithdrawal
		withdrawal.CampaignID = ""
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		repo.On("GetByTxnNo", "NS1").Return(withdrawal, nil)
		repo.On("TransitionStatus", "NS1", model.StatusFailed, "GW1", "").Return(nil)
		// 退款必须冲回 total_withdrawn，不能当成新收入入账
		repo.On("RefundEarnings", "u1", float64(50)).Return(nil)

		svc := newTestService(repo, users)
		err := svc.HandleGatewayCallback(model.MethodBkash, signedPayload("NS1", "GW1", 50, "failure"))

		assert.NoError(t, err)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "CreditEarnings", mock.Anything, mock.Anything)
	})
}

func TestRequestWithdrawal(t *testing.T) {
	creator := func() *usermodel.User {
		u := &usermodel.User{MonetizationEnabled: true}
		u.ID = "u1"
		return u
	}
	settings := &usermodel.AdminSettings{MinimumWithdrawal: 30, MonetizationEnabled: true}

	t.Run("below minimum rejected", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		users.On("GetUser", "u1").Return(creator(), nil)
		users.On("GetSettings").Return(settings, nil)

		svc := newTestService(repo, users)
		_, err := svc.RequestWithdrawal("u1", 10, model.MethodNagad, "018", "")

		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("insufficient balance rejected", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		users.On("GetUser", "u1").Return(creator(), nil)
		users.On("GetSettings").Return(settings, nil)
		repo.On("GetEarnings", "u1").Return(&model.Earnings{UserID: "u1", Balance: 20}, nil)

		svc := newTestService(repo, users)
		_, err := svc.RequestWithdrawal("u1", 50, model.MethodNagad, "018", "")

		assert.ErrorIs(t, err, errs.ErrValidation)
		repo.AssertNotCalled(t, "DebitEarnings", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("monetization required", func(t *testing.T) {
		plain := creator()
		plain.MonetizationEnabled = false
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		users.On("GetUser", "u1").Return(plain, nil)

		svc := newTestService(repo, users)
		_, err := svc.RequestWithdrawal("u1", 50, model.MethodNagad, "018", "")

		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("debits balance and creates pending transaction", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		users.On("GetUser", "u1").Return(creator(), nil)
		users.On("GetSettings").Return(settings, nil)
		repo.On("GetEarnings", "u1").Return(&model.Earnings{UserID: "u1", Balance: 100, Version: 2}, nil)
		repo.On("DebitEarnings", "u1", float64(50), int64(2)).Return(nil)
		repo.On("CreateTransaction", mock.AnythingOfType("*model.PaymentTransaction")).Return(nil)

		svc := newTestService(repo, users)
		txn, err := svc.RequestWithdrawal("u1", 50, model.MethodNagad, "018", "")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPending, txn.Status)
		assert.Equal(t, model.TypeWithdrawal, txn.Type)
		repo.AssertExpectations(t)
	})

	t.Run("storage failure rolls the debit back", func(t *testing.T) {
		repo := new(mockWalletRepository)
		users := new(mockUserGate)
		users.On("GetUser", "u1").Return(creator(), nil)
		users.On("GetSettings").Return(settings, nil)
		repo.On("GetEarnings", "u1").Return(&model.Earnings{UserID: "u1", Balance: 100, Version: 2}, nil)
		repo.On("DebitEarnings", "u1", float64(50), int64(2)).Return(nil)
		repo.On("CreateTransaction", mock.AnythingOfType("*model.PaymentTransaction")).Return(assert.AnError)
		repo.On("RefundEarnings", "u1", float64(50)).Return(nil)

		svc := newTestService(repo, users)
		_, err := svc.RequestWithdrawal("u1", 50, model.MethodNagad, "018", "")

		assert.Error(t, err)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "CreditEarnings", mock.Anything, mock.Anything)
	})
}
