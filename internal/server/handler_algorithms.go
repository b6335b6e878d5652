package server

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/pkg/model"
)

type algorithmResponse struct {
	analysis.Info
	Kind   string `json:"kind"` // analysis, resource or designer
	Oracle string `json:"oracle,omitempty"`
}

type familyResponse struct {
	Name  string   `json:"name"`
	Tests []string `json:"tests"`
}

func (s *Server) handleListAlgorithms(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	family := r.URL.Query().Get("family")

	var out []algorithmResponse
	for _, info := range s.catalog.List() {
		if family != "" && string(info.Family) != family {
			continue
		}
		out = append(out, s.describe(info))
	}
	if out == nil {
		out = []algorithmResponse{}
	}
	respondList(w, reqID, out, &model.Pagination{Total: len(out), Limit: len(out)})
}

func (s *Server) handleGetAlgorithm(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	name := chi.URLParam(r, "name")
	for _, info := range s.catalog.List() {
		if info.Name == name {
			respondOK(w, reqID, s.describe(info))
			return
		}
	}
	respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("algorithm", name))
}

func (s *Server) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	out := make([]familyResponse, 0, len(catalog.Families))
	for name, tests := range catalog.Families {
		out = append(out, familyResponse{Name: name, Tests: tests})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	respondOK(w, reqID, out)
}

func (s *Server) describe(info analysis.Info) algorithmResponse {
	resp := algorithmResponse{Info: info, Kind: "analysis"}
	if info.Designer {
		resp.Kind = "designer"
		if d, err := s.catalog.Designer(info.Name); err == nil {
			resp.Oracle = d.Oracle().Info().Name
		}
	} else if _, err := s.catalog.Resource(info.Name); err == nil {
		resp.Kind = "resource"
	}
	return resp
}
