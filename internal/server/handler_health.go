package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status     string         `json:"status"`
	Version    string         `json:"version"`
	GoVersion  string         `json:"go_version"`
	Uptime     string         `json:"uptime"`
	Store      string         `json:"store"`
	Algorithms int            `json:"algorithms"`
	Running    int            `json:"running"`
	Waiting    int            `json:"waiting"`
	Capacity   int            `json:"capacity"`
	Active     map[string]int `json:"active,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	st := "disabled"
	if s.store != nil {
		st = "available"
	}
	respondOK(w, reqID, healthResponse{
		Status:     "healthy",
		Version:    "0.1.0",
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Store:      st,
		Algorithms: len(s.catalog.List()),
		Running:    s.limiter.InUse(),
		Waiting:    s.limiter.Waiting(),
		Capacity:   s.limiter.Capacity(),
		Active:     s.limiter.Running(),
	})
}
