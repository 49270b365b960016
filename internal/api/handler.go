package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/notifier"
	"github.com/mr1hm/earthguard/internal/observability"
)

const version = "1.0.0"

// Reporter is the ingestion path for client reports.
type Reporter interface {
	ReportEarthquake(ctx context.Context, e *models.EarthquakeEvent) error
	PostMeshMessage(ctx context.Context, m *models.MeshMessage) error
	ReportRescue(ctx context.Context, r *models.RescueReport) error
}

// ReportReader serves recent-report listings and readiness.
type ReportReader interface {
	ListEarthquakes(ctx context.Context, opts models.Filter) ([]models.EarthquakeEvent, error)
	ListMeshMessages(ctx context.Context, opts models.Filter) ([]models.MeshMessage, error)
	ListRescueReports(ctx context.Context, opts models.Filter) ([]models.RescueReport, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Reporter         Reporter
	Reader           ReportReader
	Registry         *notifier.Registry
	Notifier         *notifier.Notifier
	Metrics          *observability.Metrics
	Logger           *slog.Logger
	ClientBufferSize int
}

type Handler struct {
	reporter     Reporter
	reader       ReportReader
	registry     *notifier.Registry
	notifier     *notifier.Notifier
	metrics      *observability.Metrics
	logger       *slog.Logger
	clientBuffer int
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		reporter:     d.Reporter,
		reader:       d.Reader,
		registry:     d.Registry,
		notifier:     d.Notifier,
		metrics:      d.Metrics,
		logger:       d.Logger,
		clientBuffer: d.ClientBufferSize,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.info)
	r.GET("/health", h.health)
	r.GET("/readyz", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/earthquake/report", h.reportEarthquake)
	api.POST("/mesh/message", h.postMeshMessage)
	api.POST("/rescue/report", h.reportRescue)
	api.POST("/tsunami/assess", h.assessTsunami)

	api.GET("/earthquakes", h.listEarthquakes)
	api.GET("/mesh/messages", h.listMeshMessages)
	api.GET("/rescue/reports", h.listRescueReports)

	api.GET("/events", h.streamEvents)
	api.POST("/mesh/join", h.joinMesh)
}

func (h *Handler) info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "EarthGuard Backend Server",
		"status":  "running",
		"version": version,
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.reader.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// parseFilter reads limit and since. Malformed values are ignored, as are
// limits outside 1..500.
func parseFilter(c *gin.Context) models.Filter {
	filter := models.Filter{Limit: 20}

	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filter.Since = &t
		} else if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	return filter
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// ingestError maps an ingestion failure onto a response.
func (h *Handler) ingestError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrInvalidReport) {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store report"})
}
