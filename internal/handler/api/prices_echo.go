package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"GridPull/internal/domain/models"
	"GridPull/internal/domain/repository"
	"GridPull/internal/service/token"
	"GridPull/internal/usecase"
	xhttp "GridPull/pkg/http"
	xlogger "GridPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HeaderHasNextPage signals whether another page exists past the returned
// offset+limit window.
const HeaderHasNextPage = "X-Has-Next-Page"

// Handler implements the Echo HTTP surface: ingestion trigger, range queries,
// token endpoints, and the authenticated data proxy.
type Handler struct {
	logger   *xlogger.Logger
	ingestor *usecase.Ingestor
	query    *usecase.QueryEngine
	tokens   *token.Service
	store    repository.IntervalStore
	abuse    repository.AbuseStore

	// debugRoutes exposes /testInsertThenRead; never enabled in production.
	debugRoutes bool
}

// NewHandler creates the API handler.
func NewHandler(
	log *xlogger.Logger,
	ingestor *usecase.Ingestor,
	query *usecase.QueryEngine,
	tokens *token.Service,
	store repository.IntervalStore,
	abuse repository.AbuseStore,
	debugRoutes bool,
) *Handler {
	return &Handler{
		logger:      log,
		ingestor:    ingestor,
		query:       query,
		tokens:      tokens,
		store:       store,
		abuse:       abuse,
		debugRoutes: debugRoutes,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/sync", h.Sync)
	e.GET("/range", h.Range)
	e.GET("/data", h.Range, h.requireAccessToken)
	e.POST("/token", h.Token)
	e.POST("/refresh", h.Refresh)
	e.GET("/.well-known/jwks.json", h.JWKS)
	e.GET("/healthz", h.Healthz)
	if h.debugRoutes {
		e.POST("/testInsertThenRead", h.TestInsertThenRead)
	}
}

// Sync triggers one ingestion cycle and reports a plain-text summary.
func (h *Handler) Sync(c echo.Context) error {
	summary, err := h.ingestor.Sync(c.Request().Context())
	if errors.Is(err, usecase.ErrSyncInFlight) {
		return c.String(http.StatusConflict, "sync already in progress\n")
	}
	if err != nil {
		h.logger.Error("sync failed", xlogger.Error(err))
		return c.String(http.StatusInternalServerError, "sync failed\n")
	}
	return c.String(http.StatusOK,
		fmt.Sprintf("parsed %d records, inserted %d new\n", summary.Parsed, summary.Inserted))
}

// Range serves all three query modes. /data reaches here behind the bearer
// middleware; the paging header passes through unchanged either way.
func (h *Handler) Range(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.query.Range(c.Request().Context(), req)
	if err != nil {
		var appErr *xhttp.AppError
		if !errors.As(err, &appErr) {
			h.logger.Error("range query error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}

	c.Response().Header().Set(HeaderHasNextPage, strconv.FormatBool(res.HasNext))
	return c.JSON(http.StatusOK, res.Rows)
}

// Token issues an access/refresh token pair for an allow-listed client.
func (h *Handler) Token(c echo.Context) error {
	req := &models.TokenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	resp, err := h.tokens.Issue(req.ClientID)
	if err != nil {
		return xhttp.UnauthorizedResponse(c, "invalid client")
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a valid refresh token for a new access token.
func (h *Handler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	resp, err := h.tokens.Refresh(req.RefreshToken)
	if err != nil {
		return xhttp.UnauthorizedResponse(c, "invalid token")
	}
	return c.JSON(http.StatusOK, resp)
}

// JWKS publishes the public verification key set. No auth required.
func (h *Handler) JWKS(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tokens.PublishKeys())
}

// Healthz pings both shards.
func (h *Handler) Healthz(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.store.Health(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "intervals shard unavailable"})
	}
	if err := h.abuse.Health(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "abuse shard unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// TestInsertThenRead inserts a synthetic row and echoes the most recent rows.
// Debug-only; not part of the stable contract.
func (h *Handler) TestInsertThenRead(c echo.Context) error {
	ctx := c.Request().Context()
	rrp := 42.42
	row := &models.Interval{
		SettlementTS: time.Now().UnixMilli(),
		RegionID:     "TEST1",
		RRP:          &rrp,
	}
	if _, err := h.store.InsertIgnore(ctx, []*models.Interval{row}); err != nil {
		h.logger.Error("test insert failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	lastSec := int64(3600)
	limit := 10
	res, err := h.query.Range(ctx, &models.RangeRequest{LastSec: &lastSec, Limit: &limit})
	if err != nil {
		h.logger.Error("test read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, res.Rows)
}
