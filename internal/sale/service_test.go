package sale

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Sale), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, s *Sale) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepository) AddLine(ctx context.Context, saleID int64, p *Product, qty decimal.Decimal) error {
	return m.Called(ctx, saleID, p, qty).Error(0)
}

func (m *MockRepository) SetParty(ctx context.Context, saleID, partyID int64) error {
	return m.Called(ctx, saleID, partyID).Error(0)
}

func (m *MockRepository) SetShipmentAddress(ctx context.Context, saleID, addressID int64) error {
	return m.Called(ctx, saleID, addressID).Error(0)
}

func (m *MockRepository) SetInvoiceAddress(ctx context.Context, saleID, addressID int64) error {
	return m.Called(ctx, saleID, addressID).Error(0)
}

func (m *MockRepository) SetComment(ctx context.Context, saleID int64, comment string) error {
	return m.Called(ctx, saleID, comment).Error(0)
}

func (m *MockRepository) Confirm(ctx context.Context, saleID int64, accessCode *string) error {
	return m.Called(ctx, saleID, accessCode).Error(0)
}

func (m *MockRepository) ListByParty(ctx context.Context, partyID int64, limit, offset int) ([]Summary, int64, error) {
	args := m.Called(ctx, partyID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]Summary), args.Get(1).(int64), args.Error(2)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("Create", ctx, mock.MatchedBy(func(s *Sale) bool {
		return s.PartyID == 1 && s.State == StateDraft && s.Currency == "USD"
	})).Run(func(args mock.Arguments) { args.Get(1).(*Sale).ID = 77 }).Return(nil)

	s, err := NewService(repo, "USD").Create(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(77), s.ID)
}

func TestService_AddProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		p := &Product{ID: 3, Name: "Product 1", ListPrice: decimal.NewFromInt(10)}
		qty := decimal.NewFromInt(5)
		repo.On("GetProduct", ctx, int64(3)).Return(p, nil)
		repo.On("AddLine", ctx, int64(1), p, qty).Return(nil)

		require.NoError(t, NewService(repo, "USD").AddProduct(ctx, 1, 3, qty))
		repo.AssertExpectations(t)
	})

	t.Run("NonPositiveQuantity", func(t *testing.T) {
		repo := new(MockRepository)
		err := NewService(repo, "USD").AddProduct(ctx, 1, 3, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		repo.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetProduct", ctx, int64(9)).Return(nil, ErrProductNotFound)
		err := NewService(repo, "USD").AddProduct(ctx, 1, 9, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestService_AddComment(t *testing.T) {
	ctx := context.Background()

	t.Run("Confirmed", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("SetComment", ctx, int64(1), "Leave at door").Return(nil)

		err := NewService(repo, "USD").AddComment(ctx, &Sale{ID: 1, State: StateConfirmed}, " Leave at door ")
		assert.NoError(t, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		repo := new(MockRepository)
		err := NewService(repo, "USD").AddComment(ctx, &Sale{ID: 1, State: StateCancel}, "hi")
		assert.ErrorIs(t, err, ErrCommentNotAllowed)
		repo.AssertNotCalled(t, "SetComment", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_ListOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("ThirdPage", func(t *testing.T) {
		repo := new(MockRepository)
		orders := []Summary{{ID: 31, State: StateConfirmed}}
		repo.On("ListByParty", ctx, int64(4), OrdersPerPage, 20).Return(orders, int64(21), nil)

		p, err := NewService(repo, "USD").ListOrders(ctx, 4, 3)
		require.NoError(t, err)
		assert.Equal(t, orders, p.Orders)
		assert.Equal(t, 3, p.Pages())
		assert.True(t, p.HasPrev())
		assert.False(t, p.HasNext())
		repo.AssertExpectations(t)
	})

	t.Run("PageBelowOneReadsFirst", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByParty", ctx, int64(4), OrdersPerPage, 0).Return(nil, int64(0), nil)

		p, err := NewService(repo, "USD").ListOrders(ctx, 4, -2)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Page)
		assert.Empty(t, p.Orders)
		assert.False(t, p.HasPrev())
		assert.False(t, p.HasNext())
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByParty", ctx, int64(4), OrdersPerPage, 0).Return(nil, int64(0), assert.AnError)

		_, err := NewService(repo, "USD").ListOrders(ctx, 4, 1)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
