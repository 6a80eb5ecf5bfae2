// Package rest exposes the inventory over HTTP/JSON
package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nainya/shelftrack/internal/inventory"
	"github.com/nainya/shelftrack/internal/logger"
	"github.com/nainya/shelftrack/internal/metrics"
	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/persist"
)

// RequestIDHeader carries the correlation id
const RequestIDHeader = "X-Request-ID"

// Inventory is the part of inventory.Service the REST API exposes
type Inventory interface {
	Assign(ctx context.Context, barcode string, target location.Path) (assign.Result, error)
	ResolveMove(ctx context.Context, barcode string, from, to location.Path) (assign.Result, error)
	Unassign(ctx context.Context, barcode string) (assign.Result, error)
	Clear(ctx context.Context) (assign.Result, error)
	EnsureLocation(ctx context.Context, p location.Path) (assign.Result, error)
	Find(barcode string) (location.Path, error)
	List(p location.Path) (inventory.Listing, error)
	Stats() location.Stats
}

type scanRequest struct {
	Barcode string   `json:"barcode"`
	Path    []string `json:"path"`
}

type moveRequest struct {
	Barcode string   `json:"barcode"`
	From    []string `json:"from"`
	To      []string `json:"to"`
}

type resultBody struct {
	Outcome    string   `json:"outcome"`
	Barcode    string   `json:"barcode,omitempty"`
	Path       []string `json:"path,omitempty"`
	Conflict   []string `json:"conflict,omitempty"`
	Applied    string   `json:"applied,omitempty"`
	RolledBack bool     `json:"rolled_back,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type handler struct {
	inv Inventory
}

// NewRouter builds the gin engine. m and log may be nil.
func NewRouter(inv Inventory, m *metrics.Metrics, log *logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.Nop()
	}
	h := &handler{inv: inv}

	router := gin.New()
	router.Use(gin.Recovery(), observe(m, log))

	v1 := router.Group("/v1")
	v1.POST("/scans", h.scan)
	v1.POST("/moves", h.move)
	v1.GET("/barcodes/:code", h.find)
	v1.DELETE("/barcodes/:code", h.unassign)
	v1.GET("/locations", h.list)
	v1.GET("/locations/*path", h.list)
	v1.PUT("/locations/*path", h.ensure)
	v1.DELETE("/locations", h.clear)
	v1.GET("/stats", h.stats)

	return router
}

// observe tags each request with an id, then records metrics and logs it
func observe(m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		duration := time.Since(start)
		if m != nil {
			m.RecordHTTPRequest(route, strconv.Itoa(c.Writer.Status()), duration)
		}
		log.LogHTTPRequest(route, requestID, c.Writer.Status(), duration)
	}
}

func (h *handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.inv.Assign(c.Request.Context(), req.Barcode, req.Path)
	h.respond(c, res, err)
}

func (h *handler) move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.inv.ResolveMove(c.Request.Context(), req.Barcode, req.From, req.To)
	h.respond(c, res, err)
}

func (h *handler) find(c *gin.Context) {
	code := c.Param("code")
	p, err := h.inv.Find(code)
	if err != nil {
		h.respond(c, assign.Result{Barcode: code}, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"barcode": code, "path": []string(p)})
}

func (h *handler) unassign(c *gin.Context) {
	res, err := h.inv.Unassign(c.Request.Context(), c.Param("code"))
	h.respond(c, res, err)
}

func (h *handler) list(c *gin.Context) {
	p := location.ParsePath(c.Param("path"))
	if len(p) > 0 {
		if err := p.Validate(); err != nil {
			h.respond(c, assign.Result{Path: p}, err)
			return
		}
	}
	listing, err := h.inv.List(p)
	if err != nil {
		h.respond(c, assign.Result{Path: p}, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"path":     nonNil(listing.Path),
		"children": nonNil(listing.Children),
		"barcodes": nonNil(listing.Barcodes),
	})
}

func (h *handler) ensure(c *gin.Context) {
	p := location.ParsePath(c.Param("path"))
	res, err := h.inv.EnsureLocation(c.Request.Context(), p)
	h.respond(c, res, err)
}

func (h *handler) clear(c *gin.Context) {
	res, err := h.inv.Clear(c.Request.Context())
	h.respond(c, res, err)
}

func (h *handler) stats(c *gin.Context) {
	stats := h.inv.Stats()
	c.JSON(http.StatusOK, gin.H{
		"locations": stats.Nodes,
		"barcodes":  stats.Barcodes,
		"depth":     stats.Depth,
	})
}

func (h *handler) respond(c *gin.Context, res assign.Result, err error) {
	body := resultBody{
		Outcome:  res.Outcome.String(),
		Barcode:  res.Barcode,
		Path:     res.Path,
		Conflict: res.Conflict,
	}
	if res.Outcome == assign.PersistFailed {
		body.Applied = res.Applied.String()
		body.RolledBack = res.RolledBack
	}
	if err != nil {
		if res.Outcome == assign.Unknown {
			body.Outcome = assign.OutcomeForError(err).String()
		}
		body.Error = err.Error()
		c.JSON(statusFor(err), body)
		return
	}

	code := http.StatusOK
	switch res.Outcome {
	case assign.Added, assign.Created:
		code = http.StatusCreated
	case assign.ConflictAt:
		code = http.StatusConflict
	}
	c.JSON(code, body)
}

// statusFor maps engine and gateway errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, assign.ErrInvalidPath), errors.Is(err, assign.ErrInvalidBarcode):
		return http.StatusBadRequest
	case errors.Is(err, assign.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, assign.ErrNotFoundAtSource):
		return http.StatusConflict
	case errors.Is(err, assign.ErrPersistFailed), errors.Is(err, persist.ErrIO):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
