package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ucidriver/internal/board"
	"ucidriver/internal/pgn"
	"ucidriver/internal/pool"
	"ucidriver/internal/sanlan"
	"ucidriver/pkg/uci"
)

// Handler exposes the engine pool and the SAN/PGN tooling over HTTP. This
// surface is a thin demonstration layer; SPEC_FULL.md scopes the real
// contract to the packages it fronts, not to this router.
type Handler struct {
	pool      *pool.Pool
	startedAt time.Time
}

func NewHandler(p *pool.Pool) *Handler {
	return &Handler{pool: p, startedAt: time.Now()}
}

type searchRequest struct {
	Fen        *string  `json:"fen"`
	Moves      []string `json:"moves"`
	Depth      int      `json:"depth"`
	MoveTimeMs int      `json:"moveTimeMs"`
	MultiPV    int      `json:"multiPv"`
}

// BestMove handles POST /api/engines/:name/bestmove.
func (h *Handler) BestMove(c *gin.Context) {
	name := c.Param("name")
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	engine, err := h.pool.GetEngine(ctx, name)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	defer engine.Dispose()

	if err := engine.SetPosition(ctx, req.Fen, req.Moves); err != nil {
		writeEngineError(c, err)
		return
	}

	move, err := engine.GetBestMove(ctx, uci.SearchLimit{Depth: req.Depth, MoveTimeMs: req.MoveTimeMs})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"move": move})
}

// Evaluate handles POST /api/engines/:name/evaluate.
func (h *Handler) Evaluate(c *gin.Context) {
	name := c.Param("name")
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	engine, err := h.pool.GetEngine(ctx, name)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	defer engine.Dispose()

	if req.MultiPV > 0 {
		if err := engine.SetMultiPV(ctx, req.MultiPV); err != nil {
			writeEngineError(c, err)
			return
		}
	}

	if err := engine.SetPosition(ctx, req.Fen, req.Moves); err != nil {
		writeEngineError(c, err)
		return
	}

	evals, err := engine.Evaluate(ctx, uci.SearchLimit{Depth: req.Depth, MoveTimeMs: req.MoveTimeMs})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"evaluations": evals.Entries()})
}

type convertRequest struct {
	PGN string `json:"pgn"`
}

type convertedGame struct {
	Headers map[string]string `json:"headers"`
	Moves   []string          `json:"moves"`
	Result  string            `json:"result"`
}

// ConvertPGN handles POST /api/pgn/convert: parses PGN text and returns
// each game's moves in LAN.
func (h *Handler) ConvertPGN(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	games := pgn.ReadAll(req.PGN)
	out := make([]convertedGame, 0, len(games))

	for _, g := range games {
		b := board.New()
		headers := make(map[string]string, len(g.Headers))
		for _, hp := range g.Headers {
			headers[hp.Name] = hp.Value
		}

		lan := make([]string, 0, len(g.Moves))
		for _, san := range g.Moves {
			move, err := sanlan.Convert(b, san)
			if err != nil {
				logrus.WithError(err).WithField("san", san).Warn("httpapi: stopping conversion at unconvertible move")
				break
			}
			lan = append(lan, move)
		}

		out = append(out, convertedGame{Headers: headers, Moves: lan, Result: g.Result})
	}

	c.JSON(http.StatusOK, gin.H{"games": out})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        "ucidriver",
		"uptime_seconds": time.Since(h.startedAt).Seconds(),
		"timestamp":      time.Now().UTC(),
	})
}

func writeEngineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case isAny(err, uci.ErrNoSuchEngine):
		status = http.StatusNotFound
	case isAny(err, uci.ErrInvalidInput, uci.ErrInvalidMove, uci.ErrSearchInFlight):
		status = http.StatusBadRequest
	case isAny(err, uci.ErrCancelled):
		status = http.StatusGatewayTimeout
	case isAny(err, uci.ErrTerminated):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
