package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"egglytics-backend/internal/metrics"
	"egglytics-backend/internal/models"
)

type MetricsHandler struct {
	engine *metrics.Engine
}

func NewMetricsHandler(engine *metrics.Engine) *MetricsHandler {
	return &MetricsHandler{engine: engine}
}

// Models godoc
// @Summary     List models with processed images
// @Tags        metrics
// @Produce     json
// @Success     200 {object} models.ModelListResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /metrics/models [get]
func (h *MetricsHandler) Models(c *gin.Context) {
	names, err := h.engine.ModelNames()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ModelListResponse{Models: names})
}

// Compare godoc
// @Summary     Compare model accuracy
// @Description Computes precision, recall, F1, MAE and count accuracy per
// @Description model from human-validated images. With no models query
// @Description parameter every known model is included.
// @Tags        metrics
// @Produce     json
// @Param       models query []string false "Model names" collectionFormat(multi)
// @Success     200 {object} models.MetricsResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /metrics/comparison [get]
func (h *MetricsHandler) Compare(c *gin.Context) {
	selected := c.QueryArray("models")
	if len(selected) == 0 {
		names, err := h.engine.ModelNames()
		if err != nil {
			respondError(c, err)
			return
		}
		selected = names
	}

	stats, err := h.engine.Compare(selected)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.MetricsResponse{Comparison: make([]models.ModelStatsResponse, 0, len(stats))}
	for _, s := range stats {
		resp.Comparison = append(resp.Comparison, models.ModelStatsResponse{
			Model:                 s.Model,
			TotalImages:           s.TotalImages,
			TP:                    s.TP,
			FP:                    s.FP,
			FN:                    s.FN,
			TotalGroundTruth:      s.TotalGroundTruth,
			TotalModelPredictions: s.TotalModelPredictions,
			Precision:             s.Precision,
			Recall:                s.Recall,
			F1Score:               s.F1Score,
			MAE:                   s.MAE,
			CountAccuracy:         s.CountAccuracy,
		})
	}
	c.JSON(http.StatusOK, resp)
}
