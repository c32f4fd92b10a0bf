package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goldlanka/goldmarket/internal/blob"
	"github.com/goldlanka/goldmarket/internal/database"
	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

// maxBody bounds JSON request bodies.
const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps store, validation and blob errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	status := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = errorBody{Error: verr.Message, Field: verr.Field}
	case errors.Is(err, database.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, database.ErrItemSold):
		status = http.StatusConflict
	case errors.Is(err, database.ErrCursorMismatch):
		status = http.StatusBadRequest
		body.Error = database.ErrCursorMismatch.Error()
	case errors.Is(err, blob.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, blob.ErrUnsupportedType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		body.Error = "request timed out"
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func badRequest(msg string) error {
	return &model.ValidationError{Field: "request", Message: msg}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return badRequest("Invalid request body.")
	}
	return nil
}

// pageResponse is the wire form of one feed page.
type pageResponse[T feed.Record] struct {
	Records []T         `json:"records"`
	Cursor  feed.Cursor `json:"cursor"`
	HasMore bool        `json:"has_more"`
}

// pageQuery reads district, cursor and limit from the query string.
func (s *Server) pageQuery(r *http.Request, filterable bool) (feed.Query, error) {
	q := feed.Query{After: feed.Cursor(r.URL.Query().Get("cursor")), Limit: s.opts.PageSize}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return q, &model.ValidationError{Field: "limit", Message: "Limit must be a positive number."}
		}
		q.Limit = min(n, database.MaxPageSize)
	}
	if !filterable {
		return q, nil
	}
	if v := r.URL.Query().Get("district"); v != "" {
		district, err := model.NormalizeDistrict(v)
		if err != nil {
			return q, err
		}
		q.Filter = district
	}
	return q, nil
}

func servePage[T feed.Record](s *Server, w http.ResponseWriter, r *http.Request, filterable bool,
	query func(context.Context, feed.Query) (feed.Page[T], error)) {
	q, err := s.pageQuery(r, filterable)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := query(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if page.Records == nil {
		page.Records = []T{}
	}
	writeJSON(w, http.StatusOK, pageResponse[T]{
		Records: page.Records,
		Cursor:  page.Cursor,
		HasMore: len(page.Records) == q.Limit,
	})
}

func serveAll[T any](s *Server, w http.ResponseWriter, r *http.Request, all func(context.Context) ([]T, error)) {
	records, err := all(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []T{}
	}
	writeJSON(w, http.StatusOK, records)
}

func serveTally[T feed.Record](s *Server, w http.ResponseWriter, r *http.Request, all func(context.Context) ([]T, error)) {
	records, err := all(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed.CountByFilter(records))
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
