package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/paulthvt/solareco/pkg/log"
	"github.com/paulthvt/solareco/pkg/monitor"
	"github.com/paulthvt/solareco/pkg/timerange"
	"github.com/paulthvt/solareco/pkg/types"
)

// resultResponse is how every data endpoint reports the latest poll outcome:
// either data or an error string, always with the fetch timestamp so the
// dashboard can tell stale data from an error state.
type resultResponse struct {
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	FetchedAt time.Time   `json:"fetchedAt"`
}

func writeResult[T any](w http.ResponseWriter, res monitor.Result[T], ok bool) {
	if !ok {
		writeJSONError(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	resp := resultResponse{FetchedAt: res.FetchedAt}
	if res.OK() {
		resp.Data = res.Value
	} else {
		resp.Error = res.Err.Error()
	}
	writeJSON(w, resp)
}

func wantsRefresh(r *http.Request) bool {
	v := r.URL.Query().Get("refresh")
	return v == "1" || v == "true"
}

// refreshed performs a single-shot fetch for manual refresh requests.
func refreshed[T any](ctx context.Context, fetch func(context.Context) (T, error)) (monitor.Result[T], bool) {
	value, err := fetch(ctx)
	return monitor.Result[T]{Value: value, Err: err, FetchedAt: time.Now()}, true
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	if wantsRefresh(r) {
		res, ok := refreshed(r.Context(), s.monitors.Realtime.FetchOnce)
		writeResult(w, res, ok)
		return
	}
	res, ok := s.monitors.Realtime.Latest()
	writeResult(w, res, ok)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	if wantsRefresh(r) {
		res, ok := refreshed(r.Context(), s.monitors.Daily.FetchOnce)
		writeResult(w, res, ok)
		return
	}
	res, ok := s.monitors.Daily.Latest()
	writeResult(w, res, ok)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if wantsRefresh(r) {
		res, ok := refreshed(r.Context(), s.monitors.Price.FetchOnce)
		writeResult(w, res, ok)
		return
	}
	res, ok := s.monitors.Price.Latest()
	writeResult(w, res, ok)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if wantsRefresh(r) {
		res, ok := refreshed(r.Context(), s.monitors.Weather.FetchOnce)
		writeResult(w, res, ok)
		return
	}
	res, ok := s.monitors.Weather.Latest()
	writeResult(w, res, ok)
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	if wantsRefresh(r) {
		res, ok := refreshed(r.Context(), s.monitors.History.FetchOnce)
		writeResult(w, res, ok)
		return
	}
	res, ok := s.monitors.History.Latest()
	writeResult(w, res, ok)
}

func (s *Server) handleSetRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		UnitIndex   *int       `json:"unitIndex"`
		HourOffset  *int       `json:"hourOffset"`
		DayOffset   *int       `json:"dayOffset"`
		WeekOffset  *int       `json:"weekOffset"`
		CustomStart *time.Time `json:"customStart"`
		CustomEnd   *time.Time `json:"customEnd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	now := time.Now()
	rng := s.monitors.History.Range()
	if req.UnitIndex != nil {
		rng = rng.WithUnit(timerange.UnitFromIndex(*req.UnitIndex))
		if err := s.settings.SaveDashboardTimeUnit(ctx, *req.UnitIndex); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to persist time unit", slog.Any("error", err))
		}
	}
	if req.HourOffset != nil {
		rng = rng.WithHourOffset(now, *req.HourOffset)
	}
	if req.DayOffset != nil {
		rng = rng.WithDayOffset(now, *req.DayOffset)
	}
	if req.WeekOffset != nil {
		rng = rng.WithWeekOffset(now, *req.WeekOffset)
	}
	if req.CustomStart != nil && req.CustomEnd != nil {
		rng = rng.WithCustom(*req.CustomStart, *req.CustomEnd)
		if err := rng.Custom.Validate(now); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	s.monitors.History.SetRange(rng)
	writeJSON(w, rng)
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.api.Sites(r.Context())
	if err != nil {
		writeJSONError(w, "failed to list sites", http.StatusBadGateway)
		return
	}
	writeJSON(w, sites)
}

func (s *Server) handleSelectSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sites, err := s.api.Sites(ctx)
	if err != nil {
		writeJSONError(w, "failed to list sites", http.StatusBadGateway)
		return
	}
	var selected *types.Site
	for i := range sites {
		if sites[i].ID == req.ID {
			selected = &sites[i]
			break
		}
	}
	if selected == nil {
		writeJSONError(w, "unknown site", http.StatusNotFound)
		return
	}

	if err := s.settings.SaveSite(ctx, *selected); err != nil {
		writeJSONError(w, "failed to save site", http.StatusInternalServerError)
		return
	}
	writeJSON(w, selected)
}

func (s *Server) handleClearSite(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.ClearSite(r.Context()); err != nil {
		writeJSONError(w, "failed to clear site", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.settings.Current())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		MaxPowerGaugeW            *int `json:"maxPowerGaugeW"`
		ProductionNoiseThresholdW *int `json:"productionNoiseThresholdW"`
		DashboardTimeUnitIndex    *int `json:"dashboardTimeUnitIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.MaxPowerGaugeW != nil {
		if err := s.settings.SaveMaxPowerGauge(ctx, *req.MaxPowerGaugeW); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.ProductionNoiseThresholdW != nil {
		if err := s.settings.SaveProductionNoiseThreshold(ctx, *req.ProductionNoiseThresholdW); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.DashboardTimeUnitIndex != nil {
		if err := s.settings.SaveDashboardTimeUnit(ctx, *req.DashboardTimeUnitIndex); err != nil {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, s.settings.Current())
}
