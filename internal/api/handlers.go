package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mdorg/internal/apperr"
	"github.com/starford/mdorg/internal/convert"
	"github.com/starford/mdorg/internal/ledger"
	"github.com/starford/mdorg/internal/models"
	"github.com/starford/mdorg/internal/render"
)

// Handler holds API route handlers.
type Handler struct {
	conv *convert.Converter
	db   ledger.Store
}

// NewHandler creates a new Handler. db may be nil.
func NewHandler(conv *convert.Converter, db ledger.Store) *Handler {
	return &Handler{conv: conv, db: db}
}

// Convert handles POST /api/convert.
//
//	@Summary		Convert Markdown text to Org without writing files
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	true	"Note to convert"
//	@Success		200		{object}	ConvertResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.conv.ConvertText(r.Context(), req.Title, req.Markdown)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		case errors.Is(err, render.ErrRender):
			slog.Warn("convert text failed", slog.String("title", req.Title), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		default:
			slog.Error("convert text failed", slog.String("title", req.Title), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListIDs handles GET /api/ids.
//
//	@Summary		List the identifier index
//	@Tags			ids
//	@Produce		json
//	@Success		200	{object}	IDListResponse
//	@Security		BearerAuth
//	@Router			/ids [get]
func (h *Handler) ListIDs(w http.ResponseWriter, _ *http.Request) {
	entries := h.conv.Index().Snapshot()
	writeJSON(w, http.StatusOK, IDListResponse{IDs: entries, Total: len(entries)})
}

// GetID handles GET /api/ids/{title}.
//
//	@Summary		Look up the identifier for a title
//	@Tags			ids
//	@Produce		json
//	@Param			title	path		string	true	"Note title"
//	@Success		200		{object}	ids.Entry
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ids/{title} [get]
func (h *Handler) GetID(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")
	if decoded, err := url.PathUnescape(title); err == nil {
		title = decoded
	}
	e, ok := h.conv.Index().Get(title)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Status handles GET /api/status.
//
//	@Summary		Summarize the ledger and the identifier index
//	@Tags			ledger
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Indexed: h.conv.Index().Len()}
	if h.db != nil {
		sum, err := h.db.Summary()
		if err != nil {
			slog.Error("ledger summary failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		resp.Ledger = &sum
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListConversions handles GET /api/conversions.
//
//	@Summary		List ledger records with optional status filter
//	@Tags			ledger
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(converted, failed)
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	ConversionListResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversions [get]
func (h *Handler) ListConversions(w http.ResponseWriter, r *http.Request) {
	if !h.requireLedger(w) {
		return
	}
	q := r.URL.Query()
	status := q.Get("status")
	if status != "" && status != models.StatusConverted && status != models.StatusFailed {
		writeJSON(w, http.StatusBadRequest, errorBody("status must be converted or failed"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.db.ListConversions(status, limit, offset)
	if err != nil {
		slog.Error("list conversions failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ConversionListResponse{Conversions: nonNilSlice(items), Total: total})
}

// UnresolvedLinks handles GET /api/links/unresolved.
//
//	@Summary		List cross-references whose target has no identifier
//	@Tags			ledger
//	@Produce		json
//	@Success		200	{object}	UnresolvedLinksResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/unresolved [get]
func (h *Handler) UnresolvedLinks(w http.ResponseWriter, _ *http.Request) {
	if !h.requireLedger(w) {
		return
	}
	items, err := h.db.UnresolvedLinks()
	if err != nil {
		slog.Error("unresolved links failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, UnresolvedLinksResponse{Links: nonNilSlice(items)})
}

func (h *Handler) requireLedger(w http.ResponseWriter) bool {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("ledger disabled"))
		return false
	}
	return true
}
