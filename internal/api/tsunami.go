package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/tsunami"
)

type tsunamiRequest struct {
	Magnitude  *float64 `json:"magnitude" binding:"required"`
	Depth      *float64 `json:"depth" binding:"required,gt=0"`
	DistanceKM *float64 `json:"distance_km" binding:"required,gte=0"`
	Latitude   *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

func (h *Handler) assessTsunami(c *gin.Context) {
	var req tsunamiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := models.TsunamiInput{
		Magnitude:  *req.Magnitude,
		Depth:      *req.Depth,
		DistanceKM: *req.DistanceKM,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
	}
	out, err := tsunami.Assess(in)
	if err != nil {
		if errors.Is(err, tsunami.ErrInvalidInput) {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assessment failed"})
		return
	}

	h.metrics.Assessments.WithLabelValues(string(out.RiskLevel)).Inc()
	h.logger.Info("tsunami assessment", "risk_level", out.RiskLevel, "magnitude", in.Magnitude,
		"depth", in.Depth, "distance_km", in.DistanceKM)
	c.JSON(http.StatusOK, out)
}
