package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/internal/cart"
	"github.com/resinart/storefront-api/internal/checkout/reservation"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/internal/orders"
	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/metrics"
)

// maxNumberAttempts bounds retries after an order-number collision.
const maxNumberAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a user's cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, req PlaceOrderRequest) (*models.Order, error)
}

type ServiceParams struct {
	Tx       txRunner
	Carts    *cart.Repository
	Orders   orders.Repository
	Notifier notifications.Notifier
	Metrics  *metrics.OrderMetrics
	Shop     config.ShopConfig
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	carts    *cart.Repository
	orders   orders.Repository
	notifier notifications.Notifier
	metrics  *metrics.OrderMetrics
	pricing  Pricing
	prefix   string
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:       params.Tx,
		carts:    params.Carts,
		orders:   params.Orders,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		pricing:  PricingFromConfig(params.Shop),
		prefix:   params.Shop.OrderPrefix,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// PlaceOrder creates the order, deducts stock, records the first tracking event and
// deletes the cart in one transaction. The confirmation is dispatched after commit.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, req PlaceOrderRequest) (*models.Order, error) {
	order, err := s.placeOrder(ctx, userID, req)
	if err != nil {
		err = pkgerrors.FromDB(err, "")
		s.metrics.CheckoutFailed(string(pkgerrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.OrderPlaced(order.Total.InexactFloat64())
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"total":        order.Total.StringFixed(2),
		"items":        len(order.Items),
	}), "order.placed")

	s.notifier.Dispatch(ctx, orders.OwnerTask(order, "Order confirmed",
		fmt.Sprintf("Thank you for your order %s. Total: %s. We will let you know when it ships.",
			order.OrderNumber, order.Total.StringFixed(2))))
	return order, nil
}

func (s *service) placeOrder(ctx context.Context, userID uuid.UUID, req PlaceOrderRequest) (*models.Order, error) {
	address := validators.SanitizeString(req.ShippingAddress, 1000)
	phone := validators.SanitizeString(req.ShippingPhone, 32)
	if address == "" || phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address and phone are required")
	}
	method := req.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCashOnDelivery
	}
	if !method.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment method %q", method)
	}
	notes := validators.SanitizeOptional(req.Notes, 1000)

	var orderID uuid.UUID
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		orderID, err = s.attempt(ctx, userID, attempt, draft{address: address, phone: phone, notes: notes, method: method})
		if err == nil || !pkgerrors.IsUniqueViolation(err) {
			break
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt+1), "order.number_collision")
	}
	if pkgerrors.IsUniqueViolation(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not allocate an order number")
	}
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

type draft struct {
	address string
	phone   string
	notes   *string
	method  enums.PaymentMethod
}

func (s *service) attempt(ctx context.Context, userID uuid.UUID, attempt int, d draft) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		record, err := cartRepo.FindByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		if err != nil {
			return err
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		lines := make([]Line, 0, len(record.Items))
		items := make([]models.OrderItem, 0, len(record.Items))
		requests := make([]reservation.Request, 0, len(record.Items))
		for _, item := range record.Items {
			product := item.Product
			if product == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "a product in your cart no longer exists")
			}
			if !product.IsActive {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "product %q is no longer available", product.Name).
					WithDetails(map[string]any{"productId": product.ID})
			}
			if item.Quantity > product.Stock {
				return reservation.InsufficientStock(product)
			}
			line := Line{UnitPrice: product.EffectivePrice(), Quantity: item.Quantity}
			lines = append(lines, line)
			items = append(items, models.OrderItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductImage: product.ImageURL,
				Price:        line.UnitPrice,
				Quantity:     line.Quantity,
				Total:        line.Total(),
			})
			requests = append(requests, reservation.Request{ProductID: product.ID, Qty: item.Quantity})
		}
		quote := s.pricing.Price(lines)

		now := s.now()
		count, err := ordersRepo.CountCreatedSince(ctx, yearStart(now))
		if err != nil {
			return err
		}
		number := FormatOrderNumber(s.prefix, now.Year(), count+1+int64(attempt))

		order := &models.Order{
			OrderNumber:     number,
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			Subtotal:        quote.Subtotal,
			ShippingCost:    quote.ShippingCost,
			Tax:             quote.Tax,
			Total:           quote.Total,
			ShippingAddress: d.address,
			ShippingPhone:   d.phone,
			Notes:           d.notes,
			Items:           items,
			Payment: &models.Payment{
				Method: d.method,
				Status: enums.PaymentStatusPending,
				Amount: quote.Total,
			},
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return err
		}

		if _, err := reservation.Deduct(ctx, tx, requests, reservation.Source{Reference: number, Actor: &userID}); err != nil {
			return err
		}
		if err := ordersRepo.AppendTracking(ctx, &models.OrderTracking{
			OrderID:     order.ID,
			Status:      enums.OrderStatusPending,
			Description: "Order Placed",
		}); err != nil {
			return err
		}
		if err := cartRepo.Delete(ctx, record.ID); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	return orderID, err
}
