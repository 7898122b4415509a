package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laptopshop/order-service/internal/order"
	"github.com/laptopshop/order-service/internal/product"
	"github.com/laptopshop/order-service/internal/user"
)

type mockOrderRepository struct {
	created        []*order.Order
	createFunc     func(ctx context.Context, ord *order.Order) (*order.Order, error)
	getAllByUserID func(ctx context.Context, userID uuid.UUID) ([]order.Order, error)
}

func (m *mockOrderRepository) Create(ctx context.Context, ord *order.Order) (*order.Order, error) {
	m.created = append(m.created, ord)
	if m.createFunc != nil {
		return m.createFunc(ctx, ord)
	}
	ord.ID = uuid.Must(uuid.NewV4())
	for i := range ord.Items {
		ord.Items[i].ID = uuid.Must(uuid.NewV4())
		ord.Items[i].OrderID = ord.ID
	}
	return ord, nil
}

func (m *mockOrderRepository) GetAllByUserID(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	return m.getAllByUserID(ctx, userID)
}

type mockUserRepository struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*user.User, error)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.getByIDFunc(ctx, id)
}

type mockProductRepository struct {
	products map[uuid.UUID]*product.Product
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, product.ErrNotFound
}

type mockReceiptGenerator struct {
	generated    int
	generateFunc func(ord *order.Order, username string) (string, error)
}

func (m *mockReceiptGenerator) Generate(ord *order.Order, username string) (string, error) {
	m.generated++
	if m.generateFunc != nil {
		return m.generateFunc(ord, username)
	}
	return "receipts/User_" + username + ".pdf", nil
}

type mockNotifier struct {
	sent           []string
	sendFunc       func(to, subject, body string) error
	attachmentFunc func(to, subject, body, path string) error
}

func (m *mockNotifier) Send(to, subject, body string) error {
	m.sent = append(m.sent, "plain:"+to)
	if m.sendFunc != nil {
		return m.sendFunc(to, subject, body)
	}
	return nil
}

func (m *mockNotifier) SendWithAttachment(to, subject, body, path string) error {
	m.sent = append(m.sent, "attachment:"+to)
	if m.attachmentFunc != nil {
		return m.attachmentFunc(to, subject, body, path)
	}
	return nil
}

var (
	testUserID    = uuid.Must(uuid.FromString("123e4567-e89b-12d3-a456-426614174000"))
	testProductID = uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))
)

func testUser() *user.User {
	return &user.User{
		ID:       testUserID,
		Username: "alice",
		Email:    "alice@example.com",
	}
}

func foundUserRepo() *mockUserRepository {
	return &mockUserRepository{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
			if id == testUserID {
				return testUser(), nil
			}
			return nil, user.ErrNotFound
		},
	}
}

func catalog() *mockProductRepository {
	return &mockProductRepository{
		products: map[uuid.UUID]*product.Product{
			testProductID: {
				ID:    testProductID,
				Name:  "Laptop Pro 15",
				Price: decimal.RequireFromString("1499.99"),
			},
		},
	}
}

func TestService_CreateOrderFromCart(t *testing.T) {
	cart := &order.Cart{
		TotalPrice: decimal.RequireFromString("2999.98"),
		Items: []order.CartItem{
			{ProductID: testProductID, Quantity: 2},
		},
	}

	tests := []struct {
		name        string
		cart        *order.Cart
		userID      uuid.UUID
		callerEmail string
		wantErrIs   error
		wantCreates int
	}{
		{
			name:        "success",
			cart:        cart,
			userID:      testUserID,
			callerEmail: "alice@example.com",
			wantCreates: 1,
		},
		{
			name:        "unknown_user",
			cart:        cart,
			userID:      uuid.Must(uuid.NewV4()),
			callerEmail: "alice@example.com",
			wantErrIs:   order.ErrUserNotFound,
		},
		{
			name:        "foreign_identity",
			cart:        cart,
			userID:      testUserID,
			callerEmail: "mallory@example.com",
			wantErrIs:   order.ErrAccessDenied,
		},
		{
			name:        "missing_identity",
			cart:        cart,
			userID:      testUserID,
			callerEmail: "",
			wantErrIs:   order.ErrAccessDenied,
		},
		{
			name: "unknown_product",
			cart: &order.Cart{
				TotalPrice: decimal.RequireFromString("10.00"),
				Items: []order.CartItem{
					{ProductID: testProductID, Quantity: 1},
					{ProductID: uuid.Must(uuid.NewV4()), Quantity: 1},
				},
			},
			userID:      testUserID,
			callerEmail: "alice@example.com",
			wantErrIs:   order.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := &mockOrderRepository{}
			svc := order.NewService(orderRepo, foundUserRepo(), catalog(), &mockReceiptGenerator{}, &mockNotifier{})

			created, err := svc.CreateOrderFromCart(context.Background(), tt.cart, tt.userID, tt.callerEmail)

			if tt.wantErrIs != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErrIs))
				assert.Nil(t, created)
			} else {
				require.NoError(t, err)
				require.NotNil(t, created)
				assert.NotEqual(t, uuid.Nil, created.ID)
			}

			assert.Len(t, orderRepo.created, tt.wantCreates, "no partial order may be stored")
		})
	}
}

func TestService_CreateOrderFromCart_TotalTakenVerbatim(t *testing.T) {
	// The claimed cart total is copied as-is, even when it disagrees with the
	// sum of item prices.
	claimed := decimal.RequireFromString("1.00")
	cart := &order.Cart{
		TotalPrice: claimed,
		Items: []order.CartItem{
			{ProductID: testProductID, Quantity: 3},
		},
	}

	orderRepo := &mockOrderRepository{}
	svc := order.NewService(orderRepo, foundUserRepo(), catalog(), &mockReceiptGenerator{}, &mockNotifier{})

	created, err := svc.CreateOrderFromCart(context.Background(), cart, testUserID, "alice@example.com")
	require.NoError(t, err)

	assert.True(t, claimed.Equal(created.Total))
	require.Len(t, created.Items, 1)
	assert.Equal(t, "Laptop Pro 15", created.Items[0].ProductName)
	assert.Equal(t, 3, created.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("1499.99").Equal(created.Items[0].PricePerUnit))
}

func TestService_CreateOrderFromCart_MailFailureDoesNotAbort(t *testing.T) {
	cart := &order.Cart{
		TotalPrice: decimal.RequireFromString("1499.99"),
		Items: []order.CartItem{
			{ProductID: testProductID, Quantity: 1},
		},
	}

	orderRepo := &mockOrderRepository{}
	notifier := &mockNotifier{
		attachmentFunc: func(to, subject, body, path string) error {
			return errors.New("smtp: connection refused")
		},
	}
	svc := order.NewService(orderRepo, foundUserRepo(), catalog(), &mockReceiptGenerator{}, notifier)

	created, err := svc.CreateOrderFromCart(context.Background(), cart, testUserID, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Len(t, orderRepo.created, 1, "order must be persisted even when the mail send fails")
	assert.Equal(t, []string{"attachment:alice@example.com"}, notifier.sent)
}

func TestService_CreateOrderFromCart_ReceiptFailureFallsBackToPlainMail(t *testing.T) {
	cart := &order.Cart{
		TotalPrice: decimal.RequireFromString("1499.99"),
		Items: []order.CartItem{
			{ProductID: testProductID, Quantity: 1},
		},
	}

	orderRepo := &mockOrderRepository{}
	notifier := &mockNotifier{}
	receipts := &mockReceiptGenerator{
		generateFunc: func(ord *order.Order, username string) (string, error) {
			return "", errors.New("render failed")
		},
	}
	svc := order.NewService(orderRepo, foundUserRepo(), catalog(), receipts, notifier)

	created, err := svc.CreateOrderFromCart(context.Background(), cart, testUserID, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Len(t, orderRepo.created, 1)
	assert.Equal(t, []string{"plain:alice@example.com"}, notifier.sent)
}

func TestService_ListOrders(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	stored := []order.Order{
		{
			ID:          orderID,
			UserID:      testUserID,
			Total:       decimal.RequireFromString("1499.99"),
			DateCreated: time.Date(2025, 4, 16, 12, 30, 45, 0, time.UTC),
		},
	}

	tests := []struct {
		name        string
		userID      uuid.UUID
		callerEmail string
		wantErrIs   error
	}{
		{name: "success", userID: testUserID, callerEmail: "alice@example.com"},
		{name: "unknown_user", userID: uuid.Must(uuid.NewV4()), callerEmail: "alice@example.com", wantErrIs: order.ErrUserNotFound},
		{name: "foreign_identity", userID: testUserID, callerEmail: "mallory@example.com", wantErrIs: order.ErrAccessDenied},
		{name: "missing_identity", userID: testUserID, callerEmail: "", wantErrIs: order.ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := &mockOrderRepository{
				getAllByUserID: func(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
					return stored, nil
				},
			}
			svc := order.NewService(orderRepo, foundUserRepo(), catalog(), &mockReceiptGenerator{}, &mockNotifier{})

			summaries, err := svc.ListOrders(context.Background(), tt.userID, tt.callerEmail)

			if tt.wantErrIs != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErrIs))
				assert.Nil(t, summaries)
				return
			}

			require.NoError(t, err)
			require.Len(t, summaries, 1)
			assert.Equal(t, orderID, summaries[0].ID)
			assert.Equal(t, "2025-04-16 12:30:45", summaries[0].DateCreated)
			assert.True(t, decimal.RequireFromString("1499.99").Equal(summaries[0].Total))
		})
	}
}

func TestService_ListOrders_EmptyResult(t *testing.T) {
	orderRepo := &mockOrderRepository{
		getAllByUserID: func(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
			return []order.Order{}, nil
		},
	}
	svc := order.NewService(orderRepo, foundUserRepo(), catalog(), &mockReceiptGenerator{}, &mockNotifier{})

	summaries, err := svc.ListOrders(context.Background(), testUserID, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
