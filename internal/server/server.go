package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"manual-rag/internal/metrics"
	"manual-rag/internal/models"
	"manual-rag/internal/rag"
)

// Querier answers a question from the indexed manual.
type Querier interface {
	Query(ctx context.Context, question string) (*models.QueryOutcome, error)
}

type QueryRequest struct {
	Question string `json:"question"`
}

type QueryResponse struct {
	Answer               string                   `json:"answer"`
	Sources              []models.RetrievalResult `json:"sources"`
	RetrievalLatencyMs   float64                  `json:"retrieval_latency_ms"`
	GenerationLatencyMs  float64                  `json:"generation_latency_ms"`
	AppliedChapterFilter *string                  `json:"applied_chapter_filter"`
}

// Handler serves the query API.
type Handler struct {
	querier    Querier
	metrics    *metrics.Collector
	manualName string
}

func NewHandler(querier Querier, collector *metrics.Collector, manualName string) *Handler {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Handler{querier: querier, metrics: collector, manualName: manualName}
}

// New builds the echo instance with every route registered.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		log.Error().Err(err).Int("status", code).Str("method", req.Method).Str("path", req.URL.Path).Msg("Request failed")
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}

	e.GET("/", h.health)
	e.POST("/query", h.query)
	e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	return e
}

// Run serves until ctx is cancelled.
func Run(ctx context.Context, addr string, h *Handler) error {
	e := New(h)
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		return e.Shutdown(context.Background())
	}
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": fmt.Sprintf("%s manual assistant is running", h.manualName),
	})
}

func (h *Handler) query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		h.metrics.ObserveFailure(metrics.OutcomeInvalid)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		h.metrics.ObserveFailure(metrics.OutcomeInvalid)
		return echo.NewHTTPError(http.StatusBadRequest, models.ErrEmptyQuestion.Error())
	}

	outcome, err := h.querier.Query(c.Request().Context(), req.Question)
	if errors.Is(err, models.ErrEmptyQuestion) {
		h.metrics.ObserveFailure(metrics.OutcomeInvalid)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		h.metrics.ObserveFailure(metrics.OutcomeError)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}

	h.metrics.ObserveOutcome(outcome)
	rag.LogOutcome(req.Question, outcome)
	return c.JSON(http.StatusOK, toResponse(outcome))
}

func toResponse(outcome *models.QueryOutcome) QueryResponse {
	sources := outcome.Sources
	if sources == nil {
		sources = []models.RetrievalResult{}
	}
	return QueryResponse{
		Answer:               outcome.Answer,
		Sources:              sources,
		RetrievalLatencyMs:   float64(outcome.RetrievalLatency.Microseconds()) / 1000,
		GenerationLatencyMs:  float64(outcome.GenerationLatency.Microseconds()) / 1000,
		AppliedChapterFilter: outcome.AppliedChapterFilter,
	}
}
