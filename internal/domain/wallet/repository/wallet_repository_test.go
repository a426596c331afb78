package repository

import (
	"testing"

	"neosixty/internal/domain/wallet/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestGetByTxnNo(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	rows := sqlmock.NewRows([]string{"id", "txn_no", "user_id", "method", "type", "status", "amount"}).
		AddRow("id-1", "NS100", "user-1", model.MethodBkash, model.TypeAdPayment, model.StatusPending, 500.0)
	mock.ExpectQuery(`SELECT \* FROM "payment_transactions" WHERE txn_no = \$1`).
		WithArgs("NS100", 1).
		WillReturnRows(rows)

	txn, err := repo.GetByTxnNo("NS100")

	assert.NoError(t, err)
	assert.Equal(t, "NS100", txn.TxnNo)
	assert.Equal(t, model.StatusPending, txn.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionStatus(t *testing.T) {
	t.Run("pending transaction moves to a terminal state", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWalletRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "payment_transactions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.TransitionStatus("NS100", model.StatusCompleted, "GW-1", "")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal transaction is untouchable", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWalletRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "payment_transactions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.TransitionStatus("NS100", model.StatusFailed, "GW-2", "late retry")

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebitEarnings(t *testing.T) {
	t.Run("matching version debits the balance", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWalletRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "earnings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.DebitEarnings("user-1", 100, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version or short balance touches nothing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWalletRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "earnings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.DebitEarnings("user-1", 100, 2)

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRefundEarnings(t *testing.T) {
	t.Run("reverses the withdrawal accrual, not total_earned", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWalletRepository(db)

		mock.ExpectBegin()
		// total_earned 绝不能出现在退款语句里
		mock.ExpectExec(`UPDATE "earnings" SET "balance"=balance \+ \$1,"total_withdrawn"=total_withdrawn - \$2`).
			WithArgs(50.0, 50.0, sqlmock.AnyArg(), "user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.RefundEarnings("user-1", 50))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account surfaces not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWalletRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "earnings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.RefundEarnings("user-1", 50)

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
