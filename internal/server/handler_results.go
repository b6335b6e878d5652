package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/me/schedkit/pkg/model"
)

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondStoreDisabled(w, reqID)
		return
	}

	opts := parseListOptions(r)
	records, total, err := s.store.ListRecords(r.Context(), opts)
	if err != nil {
		s.internalError(w, reqID, "list results", err)
		return
	}
	if records == nil {
		records = []*model.Record{}
	}
	respondList(w, reqID, records, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(records) < total,
	})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondStoreDisabled(w, reqID)
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := s.store.GetRecord(r.Context(), id)
	if err != nil {
		s.internalError(w, reqID, "get result", err)
		return
	}
	if rec == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("result", id))
		return
	}
	respondOK(w, reqID, rec)
}

// parseListOptions reads limit, offset and algorithm from the query string.
func parseListOptions(r *http.Request) model.ListOptions {
	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = v
	}
	opts.Algorithm = q.Get("algorithm")
	opts.Clamp()
	return opts
}

func respondStoreDisabled(w http.ResponseWriter, reqID string) {
	respondError(w, reqID, http.StatusServiceUnavailable, &model.APIError{
		Code:    model.ErrUnavailable,
		Message: "result history is disabled (no database configured)",
	})
}
