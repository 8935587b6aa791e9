package reviews

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
	"github.com/resinart/storefront-api/internal/reviews"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/types"
)

type stubService struct {
	page, limit int
	createErr   error
	created     reviews.CreateReviewRequest
}

func (s *stubService) List(ctx context.Context, productID uuid.UUID, page, limit int) (types.Page[reviews.ReviewDTO], error) {
	s.page, s.limit = page, limit
	return types.NewPage([]reviews.ReviewDTO{}, page, limit, 0), nil
}

func (s *stubService) Create(ctx context.Context, actor authz.Actor, productID uuid.UUID, req reviews.CreateReviewRequest) (*reviews.ReviewDTO, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = req
	return &reviews.ReviewDTO{ID: uuid.New(), Rating: req.Rating}, nil
}

func (s *stubService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func build(method, body string, id uuid.UUID, authed bool) *http.Request {
	req := httptest.NewRequest(method, "/api/products/"+id.String()+"/reviews", strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if authed {
		ctx = middleware.WithActor(ctx, authz.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	}
	return req.WithContext(ctx)
}

func TestListIsPublicAndPaginated(t *testing.T) {
	svc := &stubService{}
	req := build(http.MethodGet, "", uuid.New(), false)
	req.URL.RawQuery = "page=2&limit=4"
	resp := httptest.NewRecorder()
	List(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 2, svc.page)
	require.Equal(t, 4, svc.limit)
}

func TestCreateValidatesRating(t *testing.T) {
	resp := httptest.NewRecorder()
	Create(&stubService{}, testLogger())(resp, build(http.MethodPost, `{"rating":6,"comment":"too good"}`, uuid.New(), true))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	svc := &stubService{}
	resp = httptest.NewRecorder()
	Create(svc, testLogger())(resp, build(http.MethodPost, `{"rating":5,"comment":"lovely coaster set"}`, uuid.New(), true))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Equal(t, "lovely coaster set", svc.created.Comment)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	svc := &stubService{createErr: pkgerrors.New(pkgerrors.CodeConflict, "you already reviewed this product")}
	resp := httptest.NewRecorder()
	Create(svc, testLogger())(resp, build(http.MethodPost, `{"rating":4}`, uuid.New(), true))
	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestCreateRequiresAuth(t *testing.T) {
	resp := httptest.NewRecorder()
	Create(&stubService{}, testLogger())(resp, build(http.MethodPost, `{"rating":4}`, uuid.New(), false))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}
