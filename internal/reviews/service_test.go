package reviews

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/orders"
	"github.com/resinart/storefront-api/internal/products"
	"github.com/resinart/storefront-api/pkg/db/dbtest"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
)

type fixture struct {
	db      *gorm.DB
	svc     Service
	product *models.Product
	seq     int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Products: products.NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Tx:       client,
	})
	require.NoError(t, err)

	product := &models.Product{Name: "Galaxy Tray", Slug: "galaxy-tray", Category: "trays", Price: decimal.NewFromInt(900), Stock: 10, IsActive: true}
	require.NoError(t, conn.Create(product).Error)
	return &fixture{db: conn, svc: svc, product: product}
}

// customer creates a user and, when delivered is set, a delivered order containing the product.
func (f *fixture) customer(t *testing.T, email string, delivered bool) authz.Actor {
	t.Helper()
	user := &models.User{Name: email, Email: email, PasswordHash: "x", Role: enums.UserRoleCustomer, IsActive: true}
	require.NoError(t, f.db.Create(user).Error)

	status := enums.OrderStatusShipped
	if delivered {
		status = enums.OrderStatusDelivered
	}
	f.seq++
	now := time.Now().UTC()
	order := &models.Order{
		OrderNumber:     fmt.Sprintf("ORD-2026-%05d", f.seq),
		UserID:          user.ID,
		Status:          status,
		Subtotal:        decimal.NewFromInt(900),
		ShippingCost:    decimal.Zero,
		Tax:             decimal.Zero,
		Total:           decimal.NewFromInt(900),
		ShippingAddress: "X",
		ShippingPhone:   "Y",
		Items: []models.OrderItem{{
			ProductID:   f.product.ID,
			ProductName: f.product.Name,
			Price:       decimal.NewFromInt(900),
			Quantity:    1,
			Total:       decimal.NewFromInt(900),
		}},
	}
	if delivered {
		order.DeliveredAt = &now
	}
	require.NoError(t, orders.NewRepository(f.db).Create(context.Background(), order))
	return authz.Actor{UserID: user.ID, Role: enums.UserRoleCustomer}
}

func (f *fixture) reload(t *testing.T) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", f.product.ID).Error)
	return p
}

func TestCreateReviewUpdatesRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.customer(t, "alice@example.com", true)
	bob := f.customer(t, "bob@example.com", true)

	first, err := f.svc.Create(ctx, alice, f.product.ID, CreateReviewRequest{Rating: 5, Comment: " Stunning colours "})
	require.NoError(t, err)
	assert.Equal(t, "Stunning colours", first.Comment)
	assert.Equal(t, "alice@example.com", first.UserName)
	require.NotNil(t, first.OrderID)

	_, err = f.svc.Create(ctx, bob, f.product.ID, CreateReviewRequest{Rating: 4})
	require.NoError(t, err)

	product := f.reload(t)
	assert.Equal(t, 2, product.ReviewCount)
	assert.True(t, product.AvgRating.Equal(decimal.RequireFromString("4.5")), product.AvgRating.String())

	page, err := f.svc.List(ctx, f.product.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}

func TestCreateReviewRequiresDeliveredOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	waiting := f.customer(t, "waiting@example.com", false)

	_, err := f.svc.Create(ctx, waiting, f.product.ID, CreateReviewRequest{Rating: 3})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.Create(ctx, waiting, f.product.ID, CreateReviewRequest{Rating: 6})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.Create(ctx, waiting, uuid.New(), CreateReviewRequest{Rating: 3})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCreateReviewProductLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.customer(t, "alice@example.com", true)

	require.NoError(t, f.db.Model(f.product).Update("is_active", false).Error)
	_, err := f.svc.Create(ctx, alice, f.product.ID, CreateReviewRequest{Rating: 4})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	// a broken connection is a server failure, not a missing product
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	_, err = f.svc.Create(ctx, alice, f.product.ID, CreateReviewRequest{Rating: 4})
	require.Error(t, err)
	assert.NotEqual(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCreateReviewRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.customer(t, "alice@example.com", true)

	_, err := f.svc.Create(ctx, alice, f.product.ID, CreateReviewRequest{Rating: 5})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, alice, f.product.ID, CreateReviewRequest{Rating: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	product := f.reload(t)
	assert.Equal(t, 1, product.ReviewCount)
	assert.True(t, product.AvgRating.Equal(decimal.NewFromInt(5)))
}

func TestDeleteReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.customer(t, "alice@example.com", true)
	bob := f.customer(t, "bob@example.com", true)

	review, err := f.svc.Create(ctx, alice, f.product.ID, CreateReviewRequest{Rating: 2})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, bob, review.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	admin := authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	require.NoError(t, f.svc.Delete(ctx, admin, review.ID))

	product := f.reload(t)
	assert.Equal(t, 0, product.ReviewCount)
	assert.True(t, product.AvgRating.IsZero())

	err = f.svc.Delete(ctx, alice, review.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
