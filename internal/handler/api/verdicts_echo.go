package api

import (
	"time"

	models "TrendSeg/internal/domain/models"
	domrepo "TrendSeg/internal/domain/repository"
	"TrendSeg/internal/usecase"
	xhttp "TrendSeg/pkg/http"
	xlogger "TrendSeg/pkg/logger"
	xutil "TrendSeg/pkg/util"

	"github.com/labstack/echo/v4"
)

// VerdictsEchoHandler exposes the classifier state and verdicts over Echo.
type VerdictsEchoHandler struct {
	logger  *xlogger.Logger
	engine  *usecase.Engine
	candles *usecase.CandlesUseCase
	replay  *usecase.ReplayUseCase
	storage domrepo.VerdictStorage
}

func NewVerdictsEchoHandler(logger *xlogger.Logger, engine *usecase.Engine, candles *usecase.CandlesUseCase, replay *usecase.ReplayUseCase, storage domrepo.VerdictStorage) *VerdictsEchoHandler {
	return &VerdictsEchoHandler{logger: logger, engine: engine, candles: candles, replay: replay, storage: storage}
}

func (h *VerdictsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/verdict", h.Verdict)
	g.GET("/segments", h.Segments)
	g.GET("/candles", h.Candles)
	g.GET("/replay", h.Replay)
	g.GET("/health", h.Health)
}

// Verdict returns the latest aggregated verdict for the running symbol.
func (h *VerdictsEchoHandler) Verdict(c echo.Context) error {
	req := &models.VerdictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	v := h.engine.Latest()
	if v == nil {
		return xhttp.NotFoundResponse(c, "no verdict yet")
	}
	if req.Symbol != "" && req.Symbol != v.Symbol {
		return xhttp.NotFoundResponse(c, "unknown symbol "+req.Symbol)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, v)
}

// Segments returns the per-timeframe snapshots plus the first-trade latch.
func (h *VerdictsEchoHandler) Segments(c echo.Context) error {
	req := &models.SegmentsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snaps := h.engine.Snapshots()
	if req.TF != "" {
		tf := domrepo.NormalizeTimeframe(req.TF)
		snap, ok := snaps[tf]
		if !ok {
			return xhttp.NotFoundResponse(c, "timeframe not subscribed: "+req.TF)
		}
		return xhttp.SuccessResponse(c, snap)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"first_trade_opened": h.engine.FirstTradeOpened(),
		"timeframes":         snaps,
	})
}

// Candles returns stored enriched candle history.
func (h *VerdictsEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-7*24*time.Hour))
	from, to = xutil.AlignFromTo(from, to, string(tf))

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: tf,
		Limit:     req.Limit,
	})
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Replay re-runs stored history through a fresh pipeline and returns the
// bar-by-bar states and verdicts.
func (h *VerdictsEchoHandler) Replay(c echo.Context) error {
	req := &models.ReplayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	res, err := h.replay.Replay(c.Request().Context(), usecase.ReplayParams{
		Symbol:    req.Symbol,
		Timeframe: tf,
		N:         req.N,
	})
	if err != nil {
		h.logger.Error("replay usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Health reports storage reachability and stream state.
func (h *VerdictsEchoHandler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.storage != nil {
		if err := h.storage.Health(c.Request().Context()); err != nil {
			status["status"] = "degraded"
			status["storage"] = err.Error()
		} else {
			status["storage"] = "ok"
		}
	}
	return xhttp.SuccessResponse(c, status)
}
