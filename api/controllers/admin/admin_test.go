package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekorekillian57-star/spendo/internal/catalog"
	"github.com/dekorekillian57-star/spendo/internal/orders"
	"github.com/dekorekillian57-star/spendo/internal/users"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
)

var errUnused = errors.New("unused")

type stubOrders struct {
	status string
	search string
	page   pagination.Params
	ids    []uuid.UUID
	err    error
}

func (s *stubOrders) Track(context.Context, orders.Criteria) (*models.Order, error) {
	return nil, errUnused
}

func (s *stubOrders) ListForUser(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, errUnused
}

func (s *stubOrders) List(_ context.Context, status, search string, page pagination.Params) (pagination.Page[orders.OrderDTO], error) {
	s.status, s.search, s.page = status, search, page
	return pagination.NewPage([]orders.OrderDTO{{OrderID: "ORD-1"}}, page, 1), s.err
}

func (s *stubOrders) Get(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: id, OrderCode: "ORD-1"}, nil
}

func (s *stubOrders) SetStatus(_ context.Context, id uuid.UUID, status string) (*models.Order, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: id, Status: enums.OrderStatus(status)}, nil
}

func (s *stubOrders) BulkSetStatus(_ context.Context, ids []uuid.UUID, status string) (int64, error) {
	s.ids, s.status = ids, status
	return int64(len(ids)), s.err
}

func (s *stubOrders) Delete(_ context.Context, id uuid.UUID) error {
	s.ids = []uuid.UUID{id}
	return s.err
}

func (s *stubOrders) BulkDelete(_ context.Context, ids []uuid.UUID) (int64, error) {
	s.ids = ids
	return int64(len(ids)), s.err
}

type stubUsers struct {
	search string
	page   pagination.Params
	ids    []uuid.UUID
}

func (s *stubUsers) Profile(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return nil, errUnused
}

func (s *stubUsers) UpdateProfile(context.Context, uuid.UUID, users.ProfileInput) (*users.UserDTO, error) {
	return nil, errUnused
}

func (s *stubUsers) ChangePassword(context.Context, uuid.UUID, string, string) error {
	return errUnused
}

func (s *stubUsers) List(_ context.Context, search string, page pagination.Params) (pagination.Page[users.UserDTO], error) {
	s.search, s.page = search, page
	return pagination.NewPage[users.UserDTO](nil, page, 0), nil
}

func (s *stubUsers) Delete(_ context.Context, id uuid.UUID) error {
	s.ids = []uuid.UUID{id}
	return nil
}

func (s *stubUsers) BulkDelete(_ context.Context, ids []uuid.UUID) (int64, error) {
	s.ids = ids
	return int64(len(ids)), nil
}

type stubCatalog struct {
	input catalog.PackageInput
	id    uuid.UUID
	err   error
}

func (s *stubCatalog) List(context.Context, string, string) ([]models.Package, error) {
	return nil, errUnused
}

func (s *stubCatalog) Get(context.Context, uuid.UUID) (*models.Package, error) {
	return nil, errUnused
}

func (s *stubCatalog) GetMany(context.Context, []uuid.UUID) (map[uuid.UUID]models.Package, error) {
	return nil, errUnused
}

func (s *stubCatalog) Create(_ context.Context, input catalog.PackageInput) (*models.Package, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Package{ID: uuid.New(), Type: enums.PackageTypeData, Name: input.Name, Price: input.Price}, nil
}

func (s *stubCatalog) Update(_ context.Context, id uuid.UUID, input catalog.PackageInput) (*models.Package, error) {
	s.id, s.input = id, input
	return &models.Package{ID: id, Type: enums.PackageTypeData, Name: input.Name, Price: input.Price}, s.err
}

func (s *stubCatalog) Delete(_ context.Context, id uuid.UUID) error {
	s.id = id
	return s.err
}

func adminRouter(o orders.Service, u users.Service, c catalog.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", OrderList(o, 15, nil))
	r.Get("/orders/{orderId}", OrderDetail(o, nil))
	r.Patch("/orders/{orderId}/status", OrderSetStatus(o, nil))
	r.Post("/orders/bulk-status", OrderBulkSetStatus(o, nil))
	r.Delete("/orders/{orderId}", OrderDelete(o, nil))
	r.Post("/orders/bulk-delete", OrderBulkDelete(o, nil))
	r.Get("/users", UserList(u, 15, nil))
	r.Delete("/users/{userId}", UserDelete(u, nil))
	r.Post("/users/bulk-delete", UserBulkDelete(u, nil))
	r.Post("/packages", PackageCreate(c, nil))
	r.Put("/packages/{packageId}", PackageUpdate(c, nil))
	r.Delete("/packages/{packageId}", PackageDelete(c, nil))
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestOrderListReadsFiltersAndPaging(t *testing.T) {
	o := &stubOrders{}
	resp := serve(adminRouter(o, &stubUsers{}, &stubCatalog{}), http.MethodGet, "/orders?status=pending&search=REF&page=2", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "pending", o.status)
	assert.Equal(t, "REF", o.search)
	assert.Equal(t, pagination.Params{Page: 2, PageSize: 15}, o.page)

	var envelope struct {
		Data pagination.Page[orders.OrderDTO] `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, int64(1), envelope.Data.Meta.Total)
	assert.Equal(t, "ORD-1", envelope.Data.Items[0].OrderID)
}

func TestOrderListRejectsBadPage(t *testing.T) {
	resp := serve(adminRouter(&stubOrders{}, &stubUsers{}, &stubCatalog{}), http.MethodGet, "/orders?page=zero", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrderDetailRejectsMalformedID(t *testing.T) {
	resp := serve(adminRouter(&stubOrders{}, &stubUsers{}, &stubCatalog{}), http.MethodGet, "/orders/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrderStatusRoutes(t *testing.T) {
	o := &stubOrders{}
	h := adminRouter(o, &stubUsers{}, &stubCatalog{})
	id := uuid.New()

	resp := serve(h, http.MethodPatch, "/orders/"+id.String()+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "completed", o.status)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	body, _ := json.Marshal(map[string]any{"ids": ids, "status": "processing"})
	resp = serve(h, http.MethodPost, "/orders/bulk-status", string(body))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, ids, o.ids)
	assert.Contains(t, resp.Body.String(), `"updated":2`)

	resp = serve(h, http.MethodPost, "/orders/bulk-status", `{"ids":[],"status":"processing"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrderStatusInvalidTransitionSurfaces(t *testing.T) {
	o := &stubOrders{err: pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")}
	resp := serve(adminRouter(o, &stubUsers{}, &stubCatalog{}), http.MethodPatch, "/orders/"+uuid.NewString()+"/status", `{"status":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrderDeleteRoutes(t *testing.T) {
	o := &stubOrders{}
	h := adminRouter(o, &stubUsers{}, &stubCatalog{})
	id := uuid.New()

	resp := serve(h, http.MethodDelete, "/orders/"+id.String(), "")
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []uuid.UUID{id}, o.ids)

	resp = serve(h, http.MethodPost, "/orders/bulk-delete", `{"ids":["`+id.String()+`"]}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"deleted":1`)
}

func TestUserRoutes(t *testing.T) {
	u := &stubUsers{}
	h := adminRouter(&stubOrders{}, u, &stubCatalog{})

	resp := serve(h, http.MethodGet, "/users?search=%20kofi%20&page_size=5", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "kofi", u.search)
	assert.Equal(t, 5, u.page.PageSize)

	id := uuid.New()
	resp = serve(h, http.MethodDelete, "/users/"+id.String(), "")
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []uuid.UUID{id}, u.ids)
}

func TestPackageRoutes(t *testing.T) {
	c := &stubCatalog{}
	h := adminRouter(&stubOrders{}, &stubUsers{}, c)

	resp := serve(h, http.MethodPost, "/packages", `{"type":"data","name":"5GB MTN","price":"25.50","network":"MTN"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "5GB MTN", c.input.Name)
	assert.True(t, c.input.Price.Equal(decimal.RequireFromString("25.50")))
	assert.Contains(t, resp.Body.String(), `"price":"25.50"`)

	id := uuid.New()
	resp = serve(h, http.MethodPut, "/packages/"+id.String(), `{"type":"data","name":"10GB","price":40}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, id, c.id)

	c.err = pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	resp = serve(h, http.MethodDelete, "/packages/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
