package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/auth"
	"github.com/dekorekillian57-star/spendo/internal/cart"
	"github.com/dekorekillian57-star/spendo/internal/checkout"
	"github.com/dekorekillian57-star/spendo/internal/orders"
	"github.com/dekorekillian57-star/spendo/internal/payments"
	"github.com/dekorekillian57-star/spendo/internal/users"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
)

var errNotImplemented = errors.New("not implemented")

type stubCartService struct {
	owners []cart.Owner
	added  cart.AddItemInput
	qty    int
	itemID string
	cart   *cart.Cart
	err    error
}

func (s *stubCartService) AddItem(_ context.Context, owner cart.Owner, input cart.AddItemInput) (string, error) {
	s.owners = append(s.owners, owner)
	s.added = input
	return "item-1", s.err
}

func (s *stubCartService) UpdateQuantity(_ context.Context, owner cart.Owner, itemID string, quantity int) error {
	s.owners = append(s.owners, owner)
	s.itemID, s.qty = itemID, quantity
	return s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, owner cart.Owner, itemID string) error {
	s.owners = append(s.owners, owner)
	s.itemID = itemID
	return s.err
}

func (s *stubCartService) Clear(_ context.Context, owner cart.Owner) error {
	s.owners = append(s.owners, owner)
	return s.err
}

func (s *stubCartService) ClearTx(context.Context, *gorm.DB, cart.Owner) error {
	return errNotImplemented
}

func (s *stubCartService) List(_ context.Context, owner cart.Owner) (*cart.Cart, error) {
	s.owners = append(s.owners, owner)
	if s.cart == nil {
		return &cart.Cart{}, nil
	}
	return s.cart, nil
}

func (s *stubCartService) MergeGuest(context.Context, string, uuid.UUID) (int, error) {
	return 0, errNotImplemented
}

type stubCheckoutService struct {
	req      checkout.Request
	redirect *checkout.Redirect
	err      error
}

func (s *stubCheckoutService) InitiateCheckout(_ context.Context, req checkout.Request) (*checkout.Redirect, error) {
	s.req = req
	return s.redirect, s.err
}

type stubPaymentService struct {
	reference string
	source    string
	body      []byte
	signature string
	result    *payments.Result
	err       error
}

func (s *stubPaymentService) ConfirmByReference(_ context.Context, reference, source string) (*payments.Result, error) {
	s.reference, s.source = reference, source
	return s.result, s.err
}

func (s *stubPaymentService) MarkFailed(context.Context, string, string) error {
	return errNotImplemented
}

func (s *stubPaymentService) HandleWebhook(_ context.Context, body []byte, signature string) error {
	s.body, s.signature = body, signature
	return s.err
}

type stubOrderService struct {
	criteria orders.Criteria
	userID   uuid.UUID
	order    *models.Order
	list     []models.Order
	err      error
}

func (s *stubOrderService) Track(_ context.Context, criteria orders.Criteria) (*models.Order, error) {
	s.criteria = criteria
	return s.order, s.err
}

func (s *stubOrderService) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	s.userID = userID
	return s.list, s.err
}

func (s *stubOrderService) List(context.Context, string, string, pagination.Params) (pagination.Page[orders.OrderDTO], error) {
	return pagination.Page[orders.OrderDTO]{}, errNotImplemented
}

func (s *stubOrderService) Get(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, errNotImplemented
}

func (s *stubOrderService) SetStatus(context.Context, uuid.UUID, string) (*models.Order, error) {
	return nil, errNotImplemented
}

func (s *stubOrderService) BulkSetStatus(context.Context, []uuid.UUID, string) (int64, error) {
	return 0, errNotImplemented
}

func (s *stubOrderService) Delete(context.Context, uuid.UUID) error {
	return errNotImplemented
}

func (s *stubOrderService) BulkDelete(context.Context, []uuid.UUID) (int64, error) {
	return 0, errNotImplemented
}

type stubAuthService struct {
	login     auth.LoginRequest
	accessID  string
	forgotten string
	err       error
}

func (s *stubAuthService) Register(_ context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: uuid.New(), Username: req.Username, Email: req.Email, Phone: req.Phone}, s.err
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.login = req
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{AccessToken: "token", MergedItems: 1}, nil
}

func (s *stubAuthService) AdminLogin(_ context.Context, req auth.LoginRequest) (*auth.AdminLoginResponse, error) {
	s.login = req
	return &auth.AdminLoginResponse{AccessToken: "admin-token"}, s.err
}

func (s *stubAuthService) Logout(_ context.Context, accessID string) error {
	s.accessID = accessID
	return s.err
}

func (s *stubAuthService) ForgotPassword(_ context.Context, email string) error {
	s.forgotten = email
	return s.err
}

func (s *stubAuthService) ResetPassword(context.Context, auth.ResetPasswordRequest) error {
	return s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func decodeData(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

func decodeErrorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error.Code
}
