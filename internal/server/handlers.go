package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"chainscope/internal/dashboard"
	"chainscope/internal/export"
	"chainscope/internal/model"
)

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

// writeQueryError maps a service error onto the wire: validation failures are
// the caller's fault, everything else is a backend failure.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	if dashboard.IsBadRequest(err) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "query failed"})
}

func seriesRequestFrom(r *http.Request) dashboard.SeriesRequest {
	q := r.URL.Query()
	req := dashboard.SeriesRequest{
		Network: q.Get("network"),
		Metric:  q.Get("metric"),
		Range:   q.Get("range"),
		Mode:    q.Get("mode"),
	}
	if keys := q.Get("keys"); keys != "" {
		for _, key := range strings.Split(keys, ",") {
			key = strings.TrimSpace(key)
			if key != "" {
				req.Keys = append(req.Keys, key)
			}
		}
	}
	return req
}

func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	type networkInfo struct {
		Name    string `json:"name"`
		Genesis string `json:"genesis"`
	}
	networks := make([]networkInfo, 0)
	for _, n := range model.Networks() {
		networks = append(networks, networkInfo{
			Name:    n.String(),
			Genesis: n.Genesis().Format("2006-01-02"),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"networks": networks,
		"count":    len(networks),
	})
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := s.svc.Filters(r.Context(), q.Get("network"), q.Get("metric"))
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, filters)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Series(r.Context(), seriesRequestFrom(r))
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSeriesCSV(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Series(r.Context(), seriesRequestFrom(r))
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s_%s_%s.csv", resp.Network, resp.Metric, resp.Range))
	if err := export.WriteCSV(w, resp); err != nil {
		s.logger.Warn("csv export", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ok"}
	if s.hub != nil {
		payload["clients"] = s.hub.ClientCount()
	}
	s.writeJSON(w, http.StatusOK, payload)
}
