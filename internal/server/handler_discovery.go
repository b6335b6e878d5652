package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "schedkit API",
		Version:     "v1",
		Description: "Schedulability analysis and periodic resource interface design for real-time task sets",
		Endpoints: []endpointInfo{
			{"/api/v1/algorithms", []string{"GET"}, "Catalogue of analyses, resource analyses and designers"},
			{"/api/v1/algorithms/{name}", []string{"GET"}, "Preconditions and citation of one algorithm"},
			{"/api/v1/families", []string{"GET"}, "Test families run in order until one passes"},
			{"/api/v1/analyze", []string{"POST"}, "Run an analysis, a family, or a resource analysis with an interface"},
			{"/api/v1/design", []string{"POST"}, "Search a minimum-bandwidth periodic resource interface"},
			{"/api/v1/results", []string{"GET"}, "Cached results, newest first. Accepts ?algorithm=, ?limit=, ?offset="},
			{"/api/v1/results/{id}", []string{"GET"}, "Single cached result"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
