package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"egglytics-backend/internal/inference"
	"egglytics-backend/internal/middleware"
	"egglytics-backend/internal/models"
	"egglytics-backend/internal/services"
)

type UploadHandler struct {
	batchService *services.BatchService
	detectors    *inference.Registry
}

func NewUploadHandler(batchService *services.BatchService, detectors *inference.Registry) *UploadHandler {
	return &UploadHandler{batchService: batchService, detectors: detectors}
}

// Models godoc
// @Summary     List detection backends available for uploads
// @Tags        batches
// @Produce     json
// @Success     200 {object} models.ModelListResponse
// @Router      /models [get]
func (h *UploadHandler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, models.ModelListResponse{Models: h.detectors.Models()})
}

// Upload godoc
// @Summary     Upload a batch of images
// @Description Accepts multiple microscope images with per-file model/mode selectors.
// @Description The batch record is created immediately and processing runs in the
// @Description background; poll the batch status endpoint to follow progress.
// @Tags        batches
// @Accept      multipart/form-data
// @Produce     json
// @Param       myfiles formData file true "Images (multiple files allowed)"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /batches/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}

	form := c.Request.MultipartForm
	if form == nil || len(form.File["myfiles"]) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "no files uploaded",
		})
		return
	}
	fileHeaders := form.File["myfiles"]

	// Files are read into memory before the worker starts, so the request
	// can return while processing runs in the background.
	files := make([]services.UploadFile, 0, len(fileHeaders))
	for i, header := range fileHeaders {
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "failed to open uploaded file",
				Message: err.Error(),
			})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "failed to read uploaded file",
				Message: err.Error(),
			})
			return
		}

		model := c.PostForm(fmt.Sprintf("model_%d", i))
		if model == "" {
			model = "free_annotate"
		}
		mode := c.PostForm(fmt.Sprintf("mode_%d", i))
		if mode == "" {
			mode = models.ImgTypeMicro
		}

		files = append(files, services.UploadFile{
			Name:  header.Filename,
			Data:  data,
			Model: model,
			Mode:  mode,
			Share: c.PostForm(fmt.Sprintf("share_%d", i)) == "true",
		})
	}

	batch, err := h.batchService.CreateBatch(middleware.Owner(c), len(files))
	if err != nil {
		respondError(c, err)
		return
	}

	h.batchService.StartProcessing(batch, files)

	c.JSON(http.StatusOK, models.UploadResponse{
		Message: "Upload received! Processing in background.",
		BatchID: batch.ID.String(),
	})
}
