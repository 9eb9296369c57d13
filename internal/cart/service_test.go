package cart

import (
	"context"
	"errors"
	"testing"

	"storefront-be/internal/sale"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindBySession(ctx context.Context, sessionID string) (*Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Cart), args.Error(1)
}

func (m *MockRepository) FindByUser(ctx context.Context, userID int64) (*Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Cart), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, c *Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockRepository) SetSale(ctx context.Context, cartID, saleID int64) error {
	return m.Called(ctx, cartID, saleID).Error(0)
}

func (m *MockRepository) SetUser(ctx context.Context, cartID, userID int64) error {
	return m.Called(ctx, cartID, userID).Error(0)
}

type MockSaleService struct {
	mock.Mock
	sale.Service
}

func (m *MockSaleService) Create(ctx context.Context, partyID int64) (*sale.Sale, error) {
	args := m.Called(ctx, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

func (m *MockSaleService) AddProduct(ctx context.Context, saleID, productID int64, qty decimal.Decimal) error {
	return m.Called(ctx, saleID, productID, qty).Error(0)
}

// --- Tests ---

func TestService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("UserCartWins", func(t *testing.T) {
		repo := new(MockRepository)
		uid := int64(4)
		repo.On("FindByUser", ctx, uid).Return(&Cart{ID: 2, UserID: &uid}, nil)

		c, err := NewService(repo, nil).Open(ctx, "sess-1", &uid)
		require.NoError(t, err)
		assert.Equal(t, int64(2), c.ID)
		repo.AssertNotCalled(t, "FindBySession", mock.Anything, mock.Anything)
	})

	t.Run("FallsBackToSession", func(t *testing.T) {
		repo := new(MockRepository)
		uid := int64(4)
		repo.On("FindByUser", ctx, uid).Return(nil, ErrCartNotFound)
		repo.On("FindBySession", ctx, "sess-1").Return(&Cart{ID: 3, SessionID: "sess-1"}, nil)

		c, err := NewService(repo, nil).Open(ctx, "sess-1", &uid)
		require.NoError(t, err)
		assert.Equal(t, int64(3), c.ID)
	})

	t.Run("CreatesOnFirstVisit", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindBySession", ctx, "sess-1").Return(nil, ErrCartNotFound)
		repo.On("Create", ctx, mock.MatchedBy(func(c *Cart) bool { return c.SessionID == "sess-1" })).
			Run(func(args mock.Arguments) { args.Get(1).(*Cart).ID = 8 }).
			Return(nil)

		c, err := NewService(repo, nil).Open(ctx, "sess-1", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(8), c.ID)
	})

	t.Run("LookupError", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindBySession", ctx, "sess-1").Return(nil, errors.New("db down"))

		_, err := NewService(repo, nil).Open(ctx, "sess-1", nil)
		assert.Error(t, err)
	})
}

func TestService_AddProduct(t *testing.T) {
	ctx := context.Background()
	qty := decimal.NewFromInt(5)

	t.Run("OpensSaleOnFirstProduct", func(t *testing.T) {
		repo := new(MockRepository)
		sales := new(MockSaleService)
		c := &Cart{ID: 3}

		sales.On("Create", ctx, int64(1)).Return(&sale.Sale{ID: 9}, nil)
		repo.On("SetSale", ctx, int64(3), int64(9)).Return(nil)
		sales.On("AddProduct", ctx, int64(9), int64(100), qty).Return(nil)

		require.NoError(t, NewService(repo, sales).AddProduct(ctx, c, 1, 100, qty))
		require.NotNil(t, c.SaleID)
		assert.Equal(t, int64(9), *c.SaleID)
	})

	t.Run("ReusesExistingSale", func(t *testing.T) {
		repo := new(MockRepository)
		sales := new(MockSaleService)
		saleID := int64(9)
		c := &Cart{ID: 3, SaleID: &saleID}

		sales.On("AddProduct", ctx, int64(9), int64(100), qty).Return(nil)

		require.NoError(t, NewService(repo, sales).AddProduct(ctx, c, 1, 100, qty))
		sales.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_AttachUser(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("SetUser", ctx, int64(3), int64(4)).Return(nil).Once()

	svc := NewService(repo, nil)
	c := &Cart{ID: 3}

	require.NoError(t, svc.AttachUser(ctx, c, 4))
	require.NoError(t, svc.AttachUser(ctx, c, 4))
	repo.AssertExpectations(t)
}
