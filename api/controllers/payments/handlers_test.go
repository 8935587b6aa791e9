package payments

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/resinart/storefront-api/api/middleware"
	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/payments"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
)

type stubService struct {
	orderID uuid.UUID
	req     payments.UpdateStatusRequest
	err     error
}

func (s *stubService) GetByOrder(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*models.Payment, error) {
	s.orderID = orderID
	return &models.Payment{ID: uuid.New(), OrderID: orderID}, nil
}

func (s *stubService) UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, req payments.UpdateStatusRequest) (*models.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.req = req
	return &models.Payment{ID: id, Status: req.Status}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func build(method, target, body, param, value string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.URLParams.Add(param, value)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = middleware.WithActor(ctx, authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	return req.WithContext(ctx)
}

func TestByOrderReadsOrderParam(t *testing.T) {
	svc := &stubService{}
	orderID := uuid.New()
	resp := httptest.NewRecorder()
	ByOrder(svc, testLogger())(resp, build(http.MethodGet, "/api/payments/order/"+orderID.String(), "", "orderId", orderID.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.orderID != orderID {
		t.Fatalf("expected order %s got %s", orderID, svc.orderID)
	}
}

func TestUpdateStatus(t *testing.T) {
	id := uuid.New()
	svc := &stubService{}
	resp := httptest.NewRecorder()
	UpdateStatus(svc, testLogger())(resp, build(http.MethodPut, "/api/payments/"+id.String()+"/status", `{"status":"completed","transactionRef":"TX-9"}`, "id", id.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.req.Status != enums.PaymentStatusCompleted || *svc.req.TransactionRef != "TX-9" {
		t.Fatalf("unexpected request %+v", svc.req)
	}
}

func TestUpdateStatusConflict(t *testing.T) {
	id := uuid.New()
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "refunded payments are final")}
	resp := httptest.NewRecorder()
	UpdateStatus(svc, testLogger())(resp, build(http.MethodPut, "/api/payments/"+id.String()+"/status", `{"status":"pending"}`, "id", id.String()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
