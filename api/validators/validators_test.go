package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

type signupBody struct {
	Email    string `json:"email" validate:"required,email"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","quantity":0}`))
	var body signupBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"email": "must be a valid email", "quantity": "must be at least 1"}, typed.Details())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","quantity":1,"admin":true}`))
	var body signupBody
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&size=500&bad=x", nil)

	page, err := ParseQueryInt(req, "page", 1, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	missing, err := ParseQueryInt(req, "missing", 7, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, missing)

	_, err = ParseQueryInt(req, "size", 15, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(req, "bad", 1, 1, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	got, err := PathUUID(withParam(id.String()), "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = PathUUID(withParam("42"), "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = PathUUID(withParam(""), "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	var body signupBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body)
	require.Error(t, err)
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","quantity":1}{}`)), &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","quantity":"two"}`)), &body)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"quantity": "has the wrong type"}, pkgerrors.As(err).Details())
}

func TestStructKnowsGhanaPhones(t *testing.T) {
	type contact struct {
		Phone string `json:"phone" validate:"required,gh_phone"`
	}
	assert.NoError(t, Struct(&contact{Phone: "+233241234567"}))
	err := Struct(&contact{Phone: "12345"})
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details["phone"], "Ghana number")
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString(" abc ", 0))
	assert.Equal(t, "Ama", SanitizeString("A\x00ma\n", 10))
	assert.Equal(t, "Kɔfi", SanitizeString("Kɔfi Mensah", 4))
}
