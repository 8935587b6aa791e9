package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/internal/cart"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/internal/orders"
	"github.com/resinart/storefront-api/internal/products"
	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/db/dbtest"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
)

var testShop = config.ShopConfig{OrderPrefix: "ORD", FreeShippingThreshold: "5000", FlatShippingFee: "200"}

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []notifications.Task
}

func (r *recordingNotifier) Dispatch(_ context.Context, task notifications.Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return true
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	carts    cart.Service
	notifier *recordingNotifier
	user     *models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	notifier := &recordingNotifier{}
	cartRepo := cart.NewRepository(conn)
	productRepo := products.NewRepository(conn)

	svc, err := NewService(ServiceParams{
		Tx:       client,
		Carts:    cartRepo,
		Orders:   orders.NewRepository(conn),
		Notifier: notifier,
		Shop:     testShop,
	})
	require.NoError(t, err)
	carts, err := cart.NewService(cartRepo, productRepo, client)
	require.NoError(t, err)

	user := &models.User{Name: "Buyer", Email: "buyer@example.com", PasswordHash: "x", Role: enums.UserRoleCustomer, IsActive: true}
	require.NoError(t, conn.Create(user).Error)
	return fixture{db: conn, svc: svc, carts: carts, notifier: notifier, user: user}
}

func (f fixture) product(t *testing.T, name string, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Slug: products.Slugify(name), Category: "decor", Price: decimal.RequireFromString(price), Stock: stock, IsActive: true}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f fixture) add(t *testing.T, product *models.Product, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), f.user.ID, cart.AddItemRequest{ProductID: product.ID, Quantity: qty})
	require.NoError(t, err)
}

func (f fixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return p.Stock
}

func (f fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

var shipTo = PlaceOrderRequest{ShippingAddress: "X", ShippingPhone: "Y"}

func TestPlaceOrderConvertsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "Product A", "100", 5)
	b := f.product(t, "Product B", "50", 1)
	f.add(t, a, 2)
	f.add(t, b, 1)
	before, err := f.carts.Get(ctx, f.user.ID)
	require.NoError(t, err)

	order, err := f.svc.PlaceOrder(ctx, f.user.ID, shipTo)
	require.NoError(t, err)

	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(250)))
	assert.True(t, order.ShippingCost.Equal(decimal.NewFromInt(200)))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, fmt.Sprintf("ORD-%d-00001", time.Now().UTC().Year()), order.OrderNumber)
	require.Len(t, order.Items, 2)
	lineSum := decimal.Zero
	for _, item := range order.Items {
		lineSum = lineSum.Add(item.Total)
	}
	assert.True(t, lineSum.Add(order.ShippingCost).Equal(order.Total))

	require.NotNil(t, order.Payment)
	assert.Equal(t, enums.PaymentMethodCashOnDelivery, order.Payment.Method)
	assert.Equal(t, enums.PaymentStatusPending, order.Payment.Status)
	assert.True(t, order.Payment.Amount.Equal(order.Total))

	require.Len(t, order.Tracking, 1)
	assert.Equal(t, "Order Placed", order.Tracking[0].Description)

	assert.Equal(t, 3, f.stockOf(t, a.ID))
	assert.Equal(t, 0, f.stockOf(t, b.ID))
	assert.EqualValues(t, 0, f.count(t, &models.Cart{}))
	assert.EqualValues(t, 0, f.count(t, &models.CartItem{}))
	assert.EqualValues(t, 2, f.count(t, &models.StockMovement{}))

	fresh, err := f.carts.Get(ctx, f.user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before.ID, fresh.ID)
	assert.Empty(t, fresh.Items)

	require.Len(t, f.notifier.tasks, 1)
	assert.Equal(t, f.user.ID, f.notifier.tasks[0].UserID)
	assert.Equal(t, "buyer@example.com", f.notifier.tasks[0].Email)

	_, err = f.svc.PlaceOrder(ctx, f.user.ID, shipTo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "cart is empty")
	assert.EqualValues(t, 1, f.count(t, &models.Order{}))
}

func TestPlaceOrderUsesDiscountPrice(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Geode Tray", "3000", 4)
	require.NoError(t, f.db.Model(p).Update("discount_price", decimal.NewFromInt(2500)).Error)
	f.add(t, p, 2)

	order, err := f.svc.PlaceOrder(context.Background(), f.user.ID, shipTo)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Price.Equal(decimal.NewFromInt(2500)))
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(5000)))
	assert.True(t, order.ShippingCost.IsZero())
}

func TestPlaceOrderInsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "Product A", "100", 5)
	b := f.product(t, "Product B", "50", 3)
	f.add(t, a, 2)
	f.add(t, b, 3)
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", b.ID).Update("stock", 1).Error)

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, shipTo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "only 1 available")

	assert.Equal(t, 5, f.stockOf(t, a.ID))
	assert.Equal(t, 1, f.stockOf(t, b.ID))
	assert.EqualValues(t, 0, f.count(t, &models.Order{}))
	assert.EqualValues(t, 2, f.count(t, &models.CartItem{}))
	assert.Empty(t, f.notifier.tasks)
}

func TestPlaceOrderRejectsInactiveProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Retired Clock", "100", 5)
	f.add(t, p, 1)
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error)

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, shipTo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "Retired Clock")
}

func TestPlaceOrderValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, f.user.ID, PlaceOrderRequest{ShippingAddress: "  ", ShippingPhone: "Y"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.PlaceOrder(ctx, f.user.ID, PlaceOrderRequest{ShippingAddress: "X", ShippingPhone: "Y", PaymentMethod: "barter"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.carts.Get(ctx, f.user.ID)
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, f.user.ID, shipTo)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestPlaceOrderRetriesNumberCollision(t *testing.T) {
	f := newFixture(t)
	year := time.Now().UTC().Year()
	taken := &models.Order{
		OrderNumber:     fmt.Sprintf("ORD-%d-00002", year),
		UserID:          f.user.ID,
		Status:          enums.OrderStatusDelivered,
		Subtotal:        decimal.NewFromInt(1),
		ShippingCost:    decimal.Zero,
		Tax:             decimal.Zero,
		Total:           decimal.NewFromInt(1),
		ShippingAddress: "X",
		ShippingPhone:   "Y",
	}
	require.NoError(t, f.db.Omit("User", "Items", "Payment", "Delivery", "Tracking").Create(taken).Error)

	p := f.product(t, "Coaster", "100", 5)
	f.add(t, p, 1)
	order, err := f.svc.PlaceOrder(context.Background(), f.user.ID, shipTo)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ORD-%d-00003", year), order.OrderNumber)
	assert.Equal(t, 4, f.stockOf(t, p.ID))
}

func TestPlaceOrderExhaustedNumberRetriesIsInternal(t *testing.T) {
	f := newFixture(t)
	year := time.Now().UTC().Year()
	lastYear := time.Date(year-1, time.June, 1, 0, 0, 0, 0, time.UTC)
	// numbers carry this year's prefix but were created last year, so the counter never moves past them
	for seq := 1; seq <= maxNumberAttempts; seq++ {
		taken := &models.Order{
			OrderNumber:     fmt.Sprintf("ORD-%d-%05d", year, seq),
			UserID:          f.user.ID,
			Status:          enums.OrderStatusDelivered,
			Subtotal:        decimal.NewFromInt(1),
			ShippingCost:    decimal.Zero,
			Tax:             decimal.Zero,
			Total:           decimal.NewFromInt(1),
			ShippingAddress: "X",
			ShippingPhone:   "Y",
			CreatedAt:       lastYear,
		}
		require.NoError(t, f.db.Omit("User", "Items", "Payment", "Delivery", "Tracking").Create(taken).Error)
	}

	p := f.product(t, "Coaster", "100", 5)
	f.add(t, p, 1)
	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, shipTo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.CodeOf(err))
	assert.Equal(t, 5, f.stockOf(t, p.ID))
	assert.Equal(t, int64(maxNumberAttempts), f.count(t, &models.Order{}))
}
