package api

import (
	"github.com/starford/mdorg/internal/convert"
	"github.com/starford/mdorg/internal/ids"
	"github.com/starford/mdorg/internal/ledger"
	"github.com/starford/mdorg/internal/models"
)

// ConvertRequest is the request body for converting a note held in memory.
type ConvertRequest struct {
	Title    string `json:"title" example:"Meeting notes" validate:"required"`
	Markdown string `json:"markdown" example:"tags:\n- work\nSee [[Project]]"`
}

// ConvertResponse is the converted note (aliased from the domain layer).
type ConvertResponse = convert.TextResult

// IDListResponse wraps the identifier index.
type IDListResponse struct {
	IDs   []ids.Entry `json:"ids" validate:"required"`
	Total int         `json:"total" example:"42" validate:"required"`
}

// ConversionListResponse wraps paginated ledger records.
type ConversionListResponse struct {
	Conversions []models.Conversion `json:"conversions" validate:"required"`
	Total       int                 `json:"total" example:"42" validate:"required"`
}

// UnresolvedLinksResponse wraps cross-references without an identifier.
type UnresolvedLinksResponse struct {
	Links []models.Link `json:"links" validate:"required"`
}

// StatusResponse summarizes the ledger and the in-memory index.
type StatusResponse struct {
	Ledger  *ledger.Summary `json:"ledger,omitempty"`
	Indexed int             `json:"indexed" example:"42"`
}
