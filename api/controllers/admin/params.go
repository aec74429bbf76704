package admin

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/api/validators"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
)

type idsRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
}

type bulkStatusRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
	Status string      `json:"status" validate:"required"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func pageParams(r *http.Request, pageSize int) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return pagination.Params{}, err
	}
	size, err := validators.ParseQueryInt(r, "page_size", pageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, PageSize: size}, nil
}

func searchParam(r *http.Request) string {
	return validators.SanitizeString(r.URL.Query().Get("search"), 100)
}

func statusParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("status"))
}
