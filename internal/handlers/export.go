package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"egglytics-backend/internal/database"
	"egglytics-backend/internal/export"
	"egglytics-backend/internal/models"
)

type ExportHandler struct {
	serializer *export.Serializer
}

func NewExportHandler(serializer *export.Serializer) *ExportHandler {
	return &ExportHandler{serializer: serializer}
}

// DateRange godoc
// @Summary     Upload-date span of a model's images
// @Tags        export
// @Produce     json
// @Param       model query string true "Model name"
// @Success     200 {object} models.ExportDateRangeResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /export/date-range [get]
func (h *ExportHandler) DateRange(c *gin.Context) {
	model := c.Query("model")
	if model == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "model is required"})
		return
	}

	from, to, err := h.serializer.DateRange(model)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ExportDateRangeResponse{
		DateFrom: from.Format("2006-01-02"),
		DateTo:   to.Format("2006-01-02"),
	})
}

// Count godoc
// @Summary     Preview how many rows a filter would export
// @Tags        export
// @Produce     json
// @Param       model query string true "Model name"
// @Param       verified query string false "Restrict to validated images (1 = yes)"
// @Param       date_from query string false "Lower upload-date bound (YYYY-MM-DD)"
// @Param       date_to query string false "Upper upload-date bound (YYYY-MM-DD)"
// @Success     200 {object} models.ExportCountResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /export/count [get]
func (h *ExportHandler) Count(c *gin.Context) {
	filter, ok := exportFilter(c)
	if !ok {
		return
	}

	images, points, rects, err := h.serializer.Counts(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ExportCountResponse{
		TotalImages: images,
		TotalPoints: points,
		TotalRects:  rects,
	})
}

// Dataset godoc
// @Summary     Export a labeled dataset archive
// @Description Builds a zip of the filtered images plus annotations in the
// @Description requested format (custom, yolo or coco), stores it and returns
// @Description a download reference. A filter selecting nothing is a 404;
// @Description nothing partial is ever written.
// @Tags        export
// @Produce     json
// @Param       model query string true "Model name"
// @Param       format query string false "Dataset format (custom, yolo, coco)" default(custom)
// @Param       verified query string false "Restrict to validated images (1 = yes)"
// @Param       date_from query string false "Lower upload-date bound (YYYY-MM-DD)"
// @Param       date_to query string false "Upper upload-date bound (YYYY-MM-DD)"
// @Success     200 {object} models.ExportResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /export/dataset [get]
func (h *ExportHandler) Dataset(c *gin.Context) {
	filter, ok := exportFilter(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", export.FormatCustom)
	result, err := h.serializer.Export(filter, format)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ExportResponse{
		Success:     true,
		Filename:    result.Filename,
		DownloadURL: result.DownloadURL,
	})
}

// CSV godoc
// @Summary     Export per-image counts as CSV
// @Tags        export
// @Produce     json
// @Param       model query string true "Model name"
// @Param       verified query string false "Restrict to validated images (1 = yes)"
// @Param       date_from query string false "Lower upload-date bound (YYYY-MM-DD)"
// @Param       date_to query string false "Upper upload-date bound (YYYY-MM-DD)"
// @Success     200 {object} models.ExportResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /export/csv [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	filter, ok := exportFilter(c)
	if !ok {
		return
	}

	result, err := h.serializer.ExportCSV(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ExportResponse{
		Success:     true,
		Filename:    result.Filename,
		DownloadURL: result.DownloadURL,
	})
}

func exportFilter(c *gin.Context) (database.ExportFilter, bool) {
	filter := database.ExportFilter{
		Model:        c.Query("model"),
		VerifiedOnly: c.Query("verified") == "1",
	}
	if filter.Model == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "model is required"})
		return filter, false
	}

	for _, bound := range []struct {
		key  string
		dest **time.Time
	}{
		{"date_from", &filter.DateFrom},
		{"date_to", &filter.DateTo},
	} {
		raw := c.Query(bound.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid " + bound.key,
				Message: "expected YYYY-MM-DD",
			})
			return filter, false
		}
		*bound.dest = &t
	}
	return filter, true
}
