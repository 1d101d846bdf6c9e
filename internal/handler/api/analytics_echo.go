package api

import (
	"fmt"
	"net/http"
	"time"

	models "MacroPulse/internal/domain/models"
	"MacroPulse/internal/service/metrics"
	"MacroPulse/internal/service/ratelimit"
	"MacroPulse/internal/usecase"
	xhttp "MacroPulse/pkg/http"
	xlogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// AnalyticsEchoHandler exposes the evaluation pipeline over HTTP.
type AnalyticsEchoHandler struct {
	logger *xlogger.Logger
	eval   *usecase.Evaluator
	rl     *ratelimit.Limiter
}

func NewAnalyticsEchoHandler(logger *xlogger.Logger, eval *usecase.Evaluator) *AnalyticsEchoHandler {
	metrics.Register()
	return &AnalyticsEchoHandler{logger: logger, eval: eval, rl: ratelimit.New()}
}

func (h *AnalyticsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/judgment", h.Judgment)
	g.GET("/score", h.Score)
	g.GET("/forward", h.Forward)
	g.GET("/signals", h.Signals)
	g.GET("/history", h.History)
	g.POST("/evaluate", h.Evaluate)
}

func (h *AnalyticsEchoHandler) Judgment(c echo.Context) error {
	ev, err := h.evaluation(c, "judgment")
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if ev.Judgment == nil {
		return xhttp.AppErrorResponse(c, componentError(ev, "judgment"))
	}
	return xhttp.SuccessResponse(c, ev.Judgment)
}

func (h *AnalyticsEchoHandler) Score(c echo.Context) error {
	ev, err := h.evaluation(c, "score")
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if ev.Score == nil {
		return xhttp.AppErrorResponse(c, componentError(ev, "score"))
	}
	return xhttp.SuccessResponse(c, ev.Score)
}

func (h *AnalyticsEchoHandler) Forward(c echo.Context) error {
	ev, err := h.evaluation(c, "forward")
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if ev.Forward == nil {
		return xhttp.AppErrorResponse(c, componentError(ev, "forward"))
	}
	return xhttp.SuccessResponse(c, ev.Forward)
}

func (h *AnalyticsEchoHandler) Signals(c echo.Context) error {
	start := time.Now()
	endpoint := "signals"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	table, err := h.eval.Signals(c.Request().Context(), req.Indicator, req.N)
	if err != nil {
		metrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("signals usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, table)
}

func (h *AnalyticsEchoHandler) History(c echo.Context) error {
	start := time.Now()
	endpoint := "history"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from := time.Time{}
	to := time.Now().UTC()
	if req.From != "" {
		from, _ = util.ParseDate(req.From)
	}
	if req.To != "" {
		to, _ = util.ParseDate(req.To)
	}

	evs, err := h.eval.History(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		metrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, evs)
}

func (h *AnalyticsEchoHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	endpoint := "evaluate"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":evaluate", 3, 0.5) {
		h.logger.Warn("evaluate rate_limited", xlogger.String("remote", c.RealIP()))
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
	}

	ev, err := h.eval.Evaluate(c.Request().Context(), req.Force)
	if err != nil {
		metrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("evaluate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, ev)
}

// evaluation serves the cached latest evaluation for single-section reads.
func (h *AnalyticsEchoHandler) evaluation(c echo.Context, endpoint string) (*models.Evaluation, error) {
	start := time.Now()
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	ev, err := h.eval.Evaluate(c.Request().Context(), false)
	if err != nil {
		metrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
		return nil, err
	}
	return ev, nil
}

func componentError(ev *models.Evaluation, name string) error {
	if msg, ok := ev.Errors[name]; ok {
		return fmt.Errorf("%s unavailable: %s", name, msg)
	}
	return fmt.Errorf("%s unavailable", name)
}
