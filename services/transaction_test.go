package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Blukstak/OxideExpo-sub000/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTransactionManager is a mock implementation of TransactionManager
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// MockTransaction is a mock implementation of Transaction
type MockTransaction struct {
	mock.Mock
	committed  bool
	rolledback bool
}

func (m *MockTransaction) Commit() error {
	args := m.Called()
	m.committed = true
	return args.Error(0)
}

func (m *MockTransaction) Rollback() error {
	args := m.Called()
	m.rolledback = true
	return args.Error(0)
}

func (m *MockTransaction) Context() context.Context {
	args := m.Called()
	return args.Get(0).(context.Context)
}

func TestWithTransactionResult(t *testing.T) {
	opErr := errors.New("insert user failed")

	tests := []struct {
		name         string
		beginErr     error
		fnErr        error
		commitErr    error
		rollbackErr  error
		wantResult   int
		wantErrParts []string
		wantIs       error
		committed    bool
		rolledBack   bool
	}{
		{
			name:       "commits on success",
			wantResult: 42,
			committed:  true,
		},
		{
			name:       "rolls back when fn fails",
			fnErr:      opErr,
			wantIs:     opErr,
			rolledBack: true,
		},
		{
			name:         "begin failure",
			beginErr:     errors.New("connection refused"),
			wantErrParts: []string{"failed to begin transaction", "connection refused"},
		},
		{
			name:         "commit failure keeps result",
			commitErr:    errors.New("serialization failure"),
			wantResult:   42,
			wantErrParts: []string{"failed to commit transaction"},
			committed:    true,
		},
		{
			name:         "rollback failure reports both errors",
			fnErr:        opErr,
			rollbackErr:  errors.New("connection reset"),
			wantErrParts: []string{"transaction error", opErr.Error(), "rollback error"},
			rolledBack:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			txMgr := new(MockTransactionManager)
			tx := new(MockTransaction)

			if tt.beginErr != nil {
				txMgr.On("Begin", ctx).Return(nil, tt.beginErr)
			} else {
				txMgr.On("Begin", ctx).Return(tx, nil)
				tx.On("Context").Return(ctx)
				if tt.fnErr != nil {
					tx.On("Rollback").Return(tt.rollbackErr)
				} else {
					tx.On("Commit").Return(tt.commitErr)
				}
			}

			result, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, _ repositories.Transaction) (int, error) {
				if tt.fnErr != nil {
					return 0, tt.fnErr
				}
				return 42, nil
			})

			assert.Equal(t, tt.wantResult, result)
			switch {
			case tt.wantIs != nil:
				assert.Equal(t, tt.wantIs, err)
			case len(tt.wantErrParts) > 0:
				assert.Error(t, err)
				for _, part := range tt.wantErrParts {
					assert.Contains(t, err.Error(), part)
				}
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.committed, tx.committed)
			assert.Equal(t, tt.rolledBack, tx.rolledback)
			txMgr.AssertExpectations(t)
			tx.AssertExpectations(t)
		})
	}
}

func TestWithTransaction_DelegatesToResult(t *testing.T) {
	ctx := context.Background()
	txMgr := new(MockTransactionManager)
	tx := new(MockTransaction)
	opErr := errors.New("update failed")

	txMgr.On("Begin", ctx).Return(tx, nil)
	tx.On("Context").Return(ctx)
	tx.On("Rollback").Return(nil)

	err := WithTransaction(ctx, txMgr, func(context.Context, repositories.Transaction) error {
		return opErr
	})

	assert.Equal(t, opErr, err)
	assert.True(t, tx.rolledback)
}

type txKey struct{}

func TestWithTransaction_PassesTransactionContext(t *testing.T) {
	ctx := context.Background()
	txCtx := context.WithValue(ctx, txKey{}, "tx")
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(txCtx)
	mockTx.On("Commit").Return(nil)

	var seen interface{}
	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
		seen = ctx.Value(txKey{})
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "tx", seen)
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(ctx)
	mockTx.On("Rollback").Return(nil)

	assert.PanicsWithValue(t, "boom", func() {
		_ = WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
			panic("boom")
		})
	})
	assert.True(t, mockTx.rolledback)
	assert.False(t, mockTx.committed)
}
