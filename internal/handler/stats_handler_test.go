package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AlexIndustrial/latebot/internal/repository"
	"github.com/AlexIndustrial/latebot/internal/service"
	"github.com/AlexIndustrial/latebot/pkg/logger"
	"github.com/AlexIndustrial/latebot/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupStatsRouter(t *testing.T) (*chi.Mux, *service.VotingService) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	log, err := logger.New("error")
	require.NoError(t, err)

	repo := repository.NewRedisDayRepository(redisClient)
	votingService := service.NewVotingService(repo, nil, nil, zap.NewNop())

	h := NewStatsHandler(votingService, log)
	r := chi.NewRouter()
	r.Get("/api/v1/days/today", h.GetToday)
	r.Get("/api/v1/days/{date}", h.GetDay)
	r.Get("/api/v1/stats", h.GetStats)

	return r, votingService
}

func TestGetTodayReturnsTally(t *testing.T) {
	router, svc := setupStatsRouter(t)

	_, err := svc.CastVote(context.Background(), 1, true)
	require.NoError(t, err)
	_, err = svc.CastVote(context.Background(), 2, false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/days/today", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var day DayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	assert.Equal(t, 1, day.LateCount)
	assert.Equal(t, 1, day.NotLateCount)
	assert.Contains(t, day.VotersLate, int64(1))
	assert.Contains(t, day.VotersNotLate, int64(2))
}

func TestGetDayUnknownDateIs404(t *testing.T) {
	router, _ := setupStatsRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/days/2020-01-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"not_found"`)
}

func TestGetDayMalformedDateIs400(t *testing.T) {
	router, _ := setupStatsRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/days/01.06.2025", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"validation"`)
}

func TestGetStatsCountsLateDays(t *testing.T) {
	router, svc := setupStatsRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.LateDays)

	_, err := svc.CastVote(context.Background(), 1, true)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.LateDays)
}
