package orders

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/resinart/storefront-api/api/middleware"
	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/checkout"
	internalorders "github.com/resinart/storefront-api/internal/orders"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/types"
)

type stubCheckout struct {
	userID uuid.UUID
	req    checkout.PlaceOrderRequest
	err    error
}

func (s *stubCheckout) PlaceOrder(ctx context.Context, userID uuid.UUID, req checkout.PlaceOrderRequest) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.userID = userID
	s.req = req
	return &models.Order{ID: uuid.New(), UserID: userID, OrderNumber: "ORD-2026-00001"}, nil
}

type stubOrders struct {
	listParams internalorders.ListParams
	cancelReq  internalorders.CancelRequest
	statusReq  internalorders.UpdateStatusRequest
	getErr     error
}

func (s *stubOrders) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.Order{ID: id}, nil
}

func (s *stubOrders) MyOrders(ctx context.Context, actor authz.Actor, params internalorders.ListParams) (types.Page[models.Order], error) {
	s.listParams = params
	return types.NewPage([]models.Order{}, params.Page, params.Limit, 0), nil
}

func (s *stubOrders) Tracking(ctx context.Context, actor authz.Actor, id uuid.UUID) ([]models.OrderTracking, error) {
	return []models.OrderTracking{}, nil
}

func (s *stubOrders) Cancel(ctx context.Context, actor authz.Actor, id uuid.UUID, req internalorders.CancelRequest) (*models.Order, error) {
	s.cancelReq = req
	return &models.Order{ID: id, Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrders) List(ctx context.Context, params internalorders.ListParams) (types.Page[models.Order], error) {
	s.listParams = params
	return types.NewPage([]models.Order{}, params.Page, params.Limit, 0), nil
}

func (s *stubOrders) UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, req internalorders.UpdateStatusRequest) (*models.Order, error) {
	s.statusReq = req
	return &models.Order{ID: id, Status: req.Status}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func request(method, target, body string, actor *authz.Actor, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	if len(params) > 0 {
		rc := chi.NewRouteContext()
		for k, v := range params {
			rc.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func customer() *authz.Actor {
	return &authz.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
}

func TestPlaceCreatesOrderForCaller(t *testing.T) {
	svc := &stubCheckout{}
	actor := customer()
	body := `{"shippingAddress":"12 Canal Road, Lahore","shippingPhone":"03001234567"}`
	resp := httptest.NewRecorder()
	Place(svc, testLogger())(resp, request(http.MethodPost, "/api/orders", body, actor, nil))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Equal(t, actor.UserID, svc.userID)
	require.Equal(t, "03001234567", svc.req.ShippingPhone)
	require.Contains(t, resp.Body.String(), "ORD-2026-00001")
}

func TestPlaceRequiresAuthAndAddress(t *testing.T) {
	resp := httptest.NewRecorder()
	Place(&stubCheckout{}, testLogger())(resp, request(http.MethodPost, "/api/orders", `{}`, nil, nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = httptest.NewRecorder()
	Place(&stubCheckout{}, testLogger())(resp, request(http.MethodPost, "/api/orders", `{"shippingPhone":"1"}`, customer(), nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPlaceEmptyCartIsBadRequest(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")}
	body := `{"shippingAddress":"x","shippingPhone":"y"}`
	resp := httptest.NewRecorder()
	Place(svc, testLogger())(resp, request(http.MethodPost, "/api/orders", body, customer(), nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListParsesStatusFilter(t *testing.T) {
	svc := &stubOrders{}
	resp := httptest.NewRecorder()
	List(svc, testLogger())(resp, request(http.MethodGet, "/api/orders?status=shipped&search=ORD&page=3", "", nil, nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, enums.OrderStatusShipped, svc.listParams.Status)
	require.Equal(t, "ORD", svc.listParams.Search)
	require.Equal(t, 3, svc.listParams.Page)

	resp = httptest.NewRecorder()
	List(svc, testLogger())(resp, request(http.MethodGet, "/api/orders?status=lost", "", nil, nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetForbiddenPassesThrough(t *testing.T) {
	svc := &stubOrders{getErr: pkgerrors.New(pkgerrors.CodeForbidden, "not your order")}
	id := uuid.NewString()
	resp := httptest.NewRecorder()
	Get(svc, testLogger())(resp, request(http.MethodGet, "/api/orders/"+id, "", customer(), map[string]string{"id": id}))
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCancelAcceptsEmptyBody(t *testing.T) {
	svc := &stubOrders{}
	id := uuid.NewString()
	resp := httptest.NewRecorder()
	Cancel(svc, testLogger())(resp, request(http.MethodPut, "/api/orders/"+id+"/cancel", "", customer(), map[string]string{"id": id}))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Nil(t, svc.cancelReq.Reason)

	resp = httptest.NewRecorder()
	Cancel(svc, testLogger())(resp, request(http.MethodPut, "/api/orders/"+id+"/cancel", `{"reason":"changed my mind"}`, customer(), map[string]string{"id": id}))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.cancelReq.Reason)
	require.Equal(t, "changed my mind", *svc.cancelReq.Reason)
}

func TestUpdateStatusDecodesCourierFields(t *testing.T) {
	svc := &stubOrders{}
	id := uuid.NewString()
	admin := &authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	body := `{"status":"shipped","trackingNumber":"TRK-1","courierCompany":"TCS"}`
	resp := httptest.NewRecorder()
	UpdateStatus(svc, testLogger())(resp, request(http.MethodPut, "/api/orders/"+id+"/status", body, admin, map[string]string{"id": id}))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, enums.OrderStatusShipped, svc.statusReq.Status)
	require.Equal(t, "TRK-1", *svc.statusReq.TrackingNumber)
}
