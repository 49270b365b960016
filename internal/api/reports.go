package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/earthguard/internal/models"
)

// Pointer fields let binding tell a missing value from a zero one.
type earthquakeRequest struct {
	Magnitude *float64 `json:"magnitude" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	Depth     *float64 `json:"depth" binding:"omitempty,gte=0"`
}

type meshMessageRequest struct {
	ID        string   `json:"id" binding:"required"`
	Type      string   `json:"type" binding:"required"`
	Content   *string  `json:"content" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

type rescueReportRequest struct {
	VictimID  string          `json:"victim_id" binding:"required"`
	Status    string          `json:"status" binding:"required"`
	Needs     json.RawMessage `json:"needs" binding:"required"`
	Latitude  *float64        `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64        `json:"longitude" binding:"required,gte=-180,lte=180"`
}

func (h *Handler) reportEarthquake(c *gin.Context) {
	var req earthquakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	e := &models.EarthquakeEvent{
		Magnitude: *req.Magnitude,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Depth:     models.DefaultDepthKM,
	}
	if req.Depth != nil {
		e.Depth = *req.Depth
	}

	if err := h.reporter.ReportEarthquake(c.Request.Context(), e); err != nil {
		h.ingestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) postMeshMessage(c *gin.Context) {
	var req meshMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m := &models.MeshMessage{
		ID:        req.ID,
		Type:      req.Type,
		Content:   *req.Content,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
	if err := h.reporter.PostMeshMessage(c.Request.Context(), m); err != nil {
		h.ingestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) reportRescue(c *gin.Context) {
	var req rescueReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r := &models.RescueReport{
		VictimID:  req.VictimID,
		Status:    req.Status,
		Needs:     req.Needs,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
	if err := h.reporter.ReportRescue(c.Request.Context(), r); err != nil {
		h.ingestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) listEarthquakes(c *gin.Context) {
	events, err := h.reader.ListEarthquakes(c.Request.Context(), parseFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch earthquakes"})
		return
	}
	writeGeoJSON(c, earthquakesToGeoJSON(events))
}

func (h *Handler) listMeshMessages(c *gin.Context) {
	messages, err := h.reader.ListMeshMessages(c.Request.Context(), parseFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch mesh messages"})
		return
	}
	writeGeoJSON(c, meshToGeoJSON(messages))
}

func (h *Handler) listRescueReports(c *gin.Context) {
	reports, err := h.reader.ListRescueReports(c.Request.Context(), parseFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch rescue reports"})
		return
	}
	writeGeoJSON(c, rescueToGeoJSON(reports))
}
