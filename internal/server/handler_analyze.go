package server

import (
	"encoding/json"
	"net/http"

	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/internal/store"
	"github.com/me/schedkit/pkg/model"
)

type analyzeResponse struct {
	Algorithm string                 `json:"algorithm"`
	Verdict   model.Verdict          `json:"verdict"`
	Results   []model.AnalysisResult `json:"results"`
	Cached    bool                   `json:"cached"`
	RecordID  string                 `json:"record_id,omitempty"`
}

type designResponse struct {
	Design       model.DesignResult    `json:"design"`
	Verification *model.AnalysisResult `json:"verification,omitempty"`
	Cached       bool                  `json:"cached"`
	RecordID     string                `json:"record_id,omitempty"`
}

// cacheOptions is hashed into the cache key of a single-algorithm run.
type cacheOptions struct {
	Catalog    catalog.Options              `json:"catalog"`
	Activation model.Activation             `json:"activation,omitempty"`
	Interface  *model.PeriodicResourceModel `json:"interface,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	sel := catalog.Selection{
		Algorithm:  req.Algorithm,
		Test:       req.Test,
		Processors: req.Processors,
		Activation: req.Activation,
	}
	if sel.Algorithm == "" && sel.Test == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("algorithm is required",
			model.FieldError{Field: "algorithm", Message: "required"}))
		return
	}
	if apiErr := s.validator.Validate(req.Tasks, sel.Platform()); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	if req.Interface != nil {
		if apiErr := s.validator.ValidateResource(*req.Interface); apiErr != nil {
			respondError(w, reqID, http.StatusBadRequest, apiErr)
			return
		}
	}

	name, family, err := s.catalog.Resolve(sel)
	if err != nil {
		respondAlgorithmError(w, reqID, err)
		return
	}

	release, err := s.limiter.Acquire(r.Context(), name)
	if err != nil {
		respondBusy(w, reqID)
		return
	}
	defer release()

	if family {
		results, err := s.catalog.Family(name, sel, req.Tasks)
		if err != nil {
			respondAlgorithmError(w, reqID, err)
			return
		}
		respondOK(w, reqID, analyzeResponse{
			Algorithm: name,
			Verdict:   catalog.Overall(results),
			Results:   results,
		})
		return
	}

	key, err := store.NewKey(name, sel.Platform(), req.Tasks, cacheOptions{
		Catalog:    s.catalog.Options(),
		Activation: sel.Activation,
		Interface:  req.Interface,
	})
	if err != nil {
		s.internalError(w, reqID, "cache key", err)
		return
	}

	var runErr error
	rec, hit, err := store.CachedAnalysis(r.Context(), s.cacheStore(), key, func() (model.AnalysisResult, error) {
		var res model.AnalysisResult
		if req.Interface != nil {
			res, runErr = s.catalog.AnalyzeWith(sel, req.Tasks, *req.Interface)
			return res, runErr
		}
		var results []model.AnalysisResult
		results, runErr = s.catalog.Analyze(sel, req.Tasks)
		if runErr != nil {
			return res, runErr
		}
		return results[0], nil
	})
	if err != nil {
		if runErr != nil {
			respondAlgorithmError(w, reqID, runErr)
			return
		}
		s.internalError(w, reqID, "cache analysis", err)
		return
	}

	s.logger.Info("analysis served", "algorithm", name, "tasks", len(req.Tasks),
		"verdict", rec.Analysis.Verdict, "cached", hit, "client", clientName(r))
	respondOK(w, reqID, analyzeResponse{
		Algorithm: name,
		Verdict:   rec.Analysis.Verdict,
		Results:   []model.AnalysisResult{*rec.Analysis},
		Cached:    hit,
		RecordID:  rec.ID,
	})
}

func (s *Server) handleDesign(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.DesignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	if req.Algorithm == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("algorithm is required",
			model.FieldError{Field: "algorithm", Message: "required"}))
		return
	}
	sel := catalog.Selection{Algorithm: req.Algorithm, Processors: req.Processors}
	if apiErr := s.validator.Validate(req.Tasks, sel.Platform()); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	if req.PeriodMin < 0 || req.PeriodMax < 0 || (req.PeriodMax > 0 && req.PeriodMin > req.PeriodMax) {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid period range",
			model.FieldError{Field: "period_min", Message: "must satisfy 0 <= period_min <= period_max"}))
		return
	}

	cat := s.catalog
	if req.PeriodMin > 0 || req.PeriodMax > 0 {
		opts := cat.Options()
		opts.PeriodMin, opts.PeriodMax = req.PeriodMin, req.PeriodMax
		cat = cat.With(opts)
	}

	release, err := s.limiter.Acquire(r.Context(), req.Algorithm)
	if err != nil {
		respondBusy(w, reqID)
		return
	}
	defer release()

	key, err := store.NewKey(req.Algorithm, sel.Platform(), req.Tasks, cacheOptions{Catalog: cat.Options()})
	if err != nil {
		s.internalError(w, reqID, "cache key", err)
		return
	}
	var runErr error
	rec, hit, err := store.CachedDesign(r.Context(), s.cacheStore(), key, func() (model.DesignResult, error) {
		var res model.DesignResult
		res, runErr = cat.Design(sel, req.Tasks)
		return res, runErr
	})
	if err != nil {
		if runErr != nil {
			respondAlgorithmError(w, reqID, runErr)
			return
		}
		s.internalError(w, reqID, "cache design", err)
		return
	}

	resp := designResponse{Design: *rec.Design, Cached: hit, RecordID: rec.ID}
	if req.Verify && rec.Design.Outcome == model.OutcomeFound {
		check, err := cat.Verify(sel, req.Tasks, *rec.Design)
		if err != nil {
			respondAlgorithmError(w, reqID, err)
			return
		}
		resp.Verification = &check
	}

	s.logger.Info("design served", "algorithm", rec.Design.Algorithm, "tasks", len(req.Tasks),
		"outcome", rec.Design.Outcome, "cached", hit, "client", clientName(r))
	respondOK(w, reqID, resp)
}

// cacheStore returns the store results are cached in, or nil when caching
// is off.
func (s *Server) cacheStore() store.Store {
	if !s.config.Cache {
		return nil
	}
	return s.store
}

func (s *Server) internalError(w http.ResponseWriter, reqID, op string, err error) {
	s.logger.Error(op, "error", err, "request_id", reqID)
	respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
		Code:    model.ErrInternal,
		Message: op + " failed",
	})
}

func respondBusy(w http.ResponseWriter, reqID string) {
	respondError(w, reqID, http.StatusServiceUnavailable, &model.APIError{
		Code:    model.ErrUnavailable,
		Message: "request cancelled while waiting for an analysis slot",
	})
}

func clientName(r *http.Request) string {
	if c := ClientFromContext(r.Context()); c != nil {
		return c.Name
	}
	return ""
}
