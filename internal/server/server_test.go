package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-rag/internal/metrics"
	"manual-rag/internal/models"
)

type stubQuerier struct {
	outcome   *models.QueryOutcome
	err       error
	questions []string
}

func (s *stubQuerier) Query(_ context.Context, question string) (*models.QueryOutcome, error) {
	s.questions = append(s.questions, question)
	return s.outcome, s.err
}

func serve(t *testing.T, q Querier, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := New(NewHandler(q, metrics.NewCollector(), "BMW X5"))
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, &stubQuerier{}, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body["message"], "BMW X5")
}

func TestQueryAnswered(t *testing.T) {
	chapter := "PARKING"
	q := &stubQuerier{outcome: &models.QueryOutcome{
		Answer:               "Apply the brake.",
		Sources:              []models.RetrievalResult{{Text: "Apply the brake.", Chapter: "PARKING", Page: 3, Score: 0.8}},
		RetrievalLatency:     12500 * time.Microsecond,
		GenerationLatency:    2 * time.Second,
		AppliedChapterFilter: &chapter,
	}}

	rec := serve(t, q, http.MethodPost, "/query", `{"question":"How do I park?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"How do I park?"}, q.questions)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Apply the brake.", resp.Answer)
	assert.Equal(t, 12.5, resp.RetrievalLatencyMs)
	assert.Equal(t, 2000.0, resp.GenerationLatencyMs)
	require.NotNil(t, resp.AppliedChapterFilter)
	assert.Equal(t, "PARKING", *resp.AppliedChapterFilter)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, 3, resp.Sources[0].Page)
}

func TestQueryRefusalHasEmptySources(t *testing.T) {
	q := &stubQuerier{outcome: &models.QueryOutcome{Answer: models.RefusalAnswer}}
	rec := serve(t, q, http.MethodPost, "/query", `{"question":"What is the towing capacity?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Body.String(), `"sources":[]`)
	assert.Contains(t, rec.Body.String(), `"applied_chapter_filter":null`)
	assert.Contains(t, rec.Body.String(), `"generation_latency_ms":0`)
}

func TestQueryEmptyQuestion(t *testing.T) {
	q := &stubQuerier{}
	rec := serve(t, q, http.MethodPost, "/query", `{"question":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
	assert.Empty(t, q.questions)

	rec = serve(t, q, http.MethodPost, "/query", `{"question":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryBackendFailure(t *testing.T) {
	q := &stubQuerier{err: errors.New("similarity search failed: connection refused")}
	rec := serve(t, q, http.MethodPost, "/query", `{"question":"How do I park?"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &stubQuerier{}, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "manual_rag_")
}
