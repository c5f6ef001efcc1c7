package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/internal/service"
	apperrors "github.com/AlexIndustrial/latebot/pkg/errors"
	"github.com/AlexIndustrial/latebot/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// StatsHandler serves the admin read-only API over the vote store
type StatsHandler struct {
	votingService *service.VotingService
	logger        *logger.Logger
}

func NewStatsHandler(votingService *service.VotingService, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		votingService: votingService,
		logger:        log,
	}
}

// DayResponse is the API shape of a single day's tally
type DayResponse struct {
	Date          string  `json:"date"`
	VotersLate    []int64 `json:"voters_late"`
	VotersNotLate []int64 `json:"voters_not_late"`
	LateCount     int     `json:"late_count"`
	NotLateCount  int     `json:"not_late_count"`
}

// StatsResponse summarizes the whole history
type StatsResponse struct {
	LateDays int `json:"late_days"`
}

// GetDay handles GET /api/v1/days/{date}
func (h *StatsHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	parsed, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		h.respondError(w, apperrors.NewValidationError("date must look like 2025-06-01", nil))
		return
	}

	day, err := h.votingService.GetDayStats(r.Context(), domain.DayKey(parsed))
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, DayResponse{
		Date:          day.Date.Format(time.DateOnly),
		VotersLate:    day.VotersLate,
		VotersNotLate: day.VotersNotLate,
		LateCount:     day.LateCount(),
		NotLateCount:  day.NotLateCount(),
	})
}

// GetToday handles GET /api/v1/days/today
func (h *StatsHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	day, err := h.votingService.GetOrCreateToday(r.Context())
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, DayResponse{
		Date:          day.Date.Format(time.DateOnly),
		VotersLate:    day.VotersLate,
		VotersNotLate: day.VotersNotLate,
		LateCount:     day.LateCount(),
		NotLateCount:  day.NotLateCount(),
	})
}

// GetStats handles GET /api/v1/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.votingService.CountLateDays(r.Context())
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, StatsResponse{LateDays: count})
}

func (h *StatsHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// respondAppError maps an AppError to the JSON error envelope, falling back
// to a generic internal error for anything untyped
func (h *StatsHandler) respondAppError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		h.logger.WithError(err).Error("Unclassified handler error")
		appErr = apperrors.NewInternalError("Internal server error", err)
	}
	h.respondError(w, appErr)
}

func (h *StatsHandler) respondError(w http.ResponseWriter, appErr *apperrors.AppError) {
	response := &apperrors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode error response")
	}
}
