// Package api exposes price upserts, simulations and the aggregated series over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"CycleDCA/internal/calculator"
	"CycleDCA/internal/metrics"
	"CycleDCA/internal/model"
	"CycleDCA/internal/simulation"
	"CycleDCA/internal/store"
	"CycleDCA/internal/upsert"
)

// SeriesSource returns the current aggregated snapshot.
type SeriesSource interface {
	Series() *model.MultiResolutionSeries
}

// Upserter applies a manually submitted daily price.
type Upserter interface {
	Upsert(ctx context.Context, req *model.UpsertRequest) (*upsert.Outcome, error)
}

// SpotSource supplies the current spot price.
type SpotSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// HistorySource lists recorded upserts, newest first.
type HistorySource interface {
	UpsertHistory(ctx context.Context, symbol string, limit int) ([]store.UpsertRecord, error)
}

// PhaseTable answers phase queries.
type PhaseTable interface {
	Classify(t time.Time) model.Phase
	Window(t time.Time) (model.CyclePhaseWindow, bool)
	WindowsInRange(start, end time.Time) []model.CyclePhaseWindow
	Cycles() []model.Cycle
}

// SimulationRequest is the body of POST /api/v1/simulations.
type SimulationRequest struct {
	StartDate      string             `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string             `json:"endDate" validate:"required,datetime=2006-01-02"`
	MonthlyAmount  float64            `json:"monthlyAmount" validate:"gt=0"`
	SelectedPhases *model.PhaseFilter `json:"selectedPhases,omitempty"`
}

// SeriesResponse is the body of GET /api/v1/series.
type SeriesResponse struct {
	Symbol      string            `json:"symbol"`
	Resolution  model.Resolution  `json:"resolution"`
	LastUpdated time.Time         `json:"lastUpdated"`
	DataRange   model.DateRange   `json:"dataRange"`
	Count       int               `json:"count"`
	High        float64           `json:"high,omitempty"`
	Low         float64           `json:"low,omitempty"`
	Position    float64           `json:"position,omitempty"` // last price within [low, high]
	Points      model.PriceSeries `json:"points"`
}

// PhasesResponse is the body of GET /api/v1/phases.
type PhasesResponse struct {
	Today   model.Phase              `json:"today"`
	Current *model.CyclePhaseWindow  `json:"current,omitempty"`
	Windows []model.CyclePhaseWindow `json:"windows"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	symbol   string
	series   SeriesSource
	upserter Upserter
	history  HistorySource
	spot     SpotSource
	phases   PhaseTable
	engine   *simulation.Engine
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a new Handler
func NewHandler(symbol string, series SeriesSource, upserter Upserter, history HistorySource, spot SpotSource, phases PhaseTable, engine *simulation.Engine) *Handler {
	return &Handler{
		symbol:   symbol,
		series:   series,
		upserter: upserter,
		history:  history,
		spot:     spot,
		phases:   phases,
		engine:   engine,
		validate: validator.New(),
		now:      time.Now,
	}
}

// UpsertPrice handles POST /api/v1/prices
func (h *Handler) UpsertPrice(w http.ResponseWriter, r *http.Request) {
	var req model.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, &model.UpsertResponse{Message: "invalid request body"})
		return
	}

	out, err := h.upserter.Upsert(r.Context(), &req)
	if err != nil {
		if errors.Is(err, upsert.ErrInvalidPayload) {
			respondJSON(w, http.StatusBadRequest, &model.UpsertResponse{Message: err.Error()})
			return
		}
		log.Error().Err(err).Str("date", req.Date).Msg("price upsert failed")
		respondJSON(w, http.StatusInternalServerError, &model.UpsertResponse{Message: "failed to store price"})
		return
	}

	respondJSON(w, http.StatusOK, upsert.Response(out))
}

// GetUpsertHistory handles GET /api/v1/prices/history
func (h *Handler) GetUpsertHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	records, err := h.history.UpsertHistory(r.Context(), h.symbol, limit)
	if err != nil {
		log.Error().Err(err).Msg("read upsert history failed")
		respondError(w, http.StatusInternalServerError, "failed to read upsert history")
		return
	}
	if records == nil {
		records = []store.UpsertRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

// Simulate handles POST /api/v1/simulations
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, _ := model.ParseDate(req.StartDate)
	end, _ := model.ParseDate(req.EndDate)

	snap := h.series.Series()
	if snap.Empty() {
		metrics.RecordSimulation(simulation.ErrEmptySeries)
		respondError(w, http.StatusServiceUnavailable, "price history not loaded")
		return
	}

	res, err := h.engine.Run(simulation.Request{
		StartDate:        start,
		EndDate:          end,
		MonthlyAmount:    req.MonthlyAmount,
		Phases:           req.SelectedPhases,
		Series:           snap.Daily,
		CurrentSpotPrice: h.spotPrice(r.Context(), snap),
	})
	metrics.RecordSimulation(err)
	if err != nil {
		switch {
		case errors.Is(err, simulation.ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, simulation.ErrEmptySeries):
			respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			log.Error().Err(err).Msg("simulation failed")
			respondError(w, http.StatusInternalServerError, "simulation failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// spotPrice asks the providers for the spot price and falls back to the
// latest aggregated close.
func (h *Handler) spotPrice(ctx context.Context, snap *model.MultiResolutionSeries) float64 {
	if h.spot != nil {
		p, err := h.spot.CurrentPrice(ctx, h.symbol)
		if err == nil && p > 0 {
			return p
		}
		log.Warn().Err(err).Str("symbol", h.symbol).Msg("spot price unavailable, using last close")
	}
	last, _ := snap.Daily.Last()
	return last.Price
}

// GetSeries handles GET /api/v1/series
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snap := h.series.Series()
	if snap.Empty() {
		respondError(w, http.StatusServiceUnavailable, "price history not loaded")
		return
	}

	res := model.Resolution(q.Get("resolution"))
	if res == "" {
		res = model.ResolutionDaily
	}
	points, err := snap.At(res)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, end, err := parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	clipped := !start.IsZero() || !end.IsZero()
	if start.IsZero() {
		start = snap.DataRange.Start
	}
	if end.IsZero() {
		end = snap.DataRange.End
	}
	if clipped {
		points = points.Between(start, end)
	}

	resp := &SeriesResponse{
		Symbol:      snap.Symbol,
		Resolution:  res,
		LastUpdated: snap.LastUpdated,
		DataRange:   snap.DataRange,
		Count:       len(points),
		Points:      points,
	}
	if high, low, err := calculator.HighLowBetween(points, start, end); err == nil {
		last, _ := points.Last()
		resp.High, resp.Low = high, low
		resp.Position, _ = calculator.PositionInRange(last.Price, high, low)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetPhases handles GET /api/v1/phases
func (h *Handler) GetPhases(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	today := model.DayOf(h.now())
	if start.IsZero() {
		start = time.Date(2009, time.January, 3, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = today
	}
	if end.Before(start) {
		respondError(w, http.StatusBadRequest, "end is before start")
		return
	}

	windows := h.phases.WindowsInRange(start, end)
	if windows == nil {
		windows = []model.CyclePhaseWindow{}
	}
	resp := &PhasesResponse{Today: h.phases.Classify(today), Windows: windows}
	if cur, ok := h.phases.Window(today); ok {
		resp.Current = &cur
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetCycles handles GET /api/v1/cycles
func (h *Handler) GetCycles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.phases.Cycles())
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.series.Series()
	status := map[string]interface{}{"status": "healthy", "symbol": h.symbol}
	if !snap.Empty() {
		status["dailyPoints"] = len(snap.Daily)
		status["lastUpdated"] = snap.LastUpdated
	}
	respondJSON(w, http.StatusOK, status)
}

func parseRange(from, to string) (start, end time.Time, err error) {
	if from != "" {
		if start, err = model.ParseDate(from); err != nil {
			return
		}
	}
	if to != "" {
		if end, err = model.ParseDate(to); err != nil {
			return
		}
	}
	return
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "message": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
