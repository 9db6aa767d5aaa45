package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"egglytics-backend/internal/database"
	"egglytics-backend/internal/models"
	"egglytics-backend/internal/storage"
)

const (
	defaultThumbWidth  = 800
	defaultThumbHeight = 600
	maxThumbDimension  = 4096
)

// ThumbnailsHandler renders downscaled previews of stored images on demand.
type ThumbnailsHandler struct {
	db    *database.Client
	blobs storage.BlobStore
}

func NewThumbnailsHandler(db *database.Client, blobs storage.BlobStore) *ThumbnailsHandler {
	return &ThumbnailsHandler{db: db, blobs: blobs}
}

// Thumbnail godoc
// @Summary     Downscaled preview of an image
// @Description Fits the stored image inside the requested bounds, preserving
// @Description aspect ratio, and streams it as JPEG.
// @Tags        images
// @Produce     jpeg
// @Param       image_id path string true "Image ID (UUID)"
// @Param       w query int false "Maximum width" default(800)
// @Param       h query int false "Maximum height" default(600)
// @Success     200 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/thumbnail [get]
func (h *ThumbnailsHandler) Thumbnail(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}

	width, ok := thumbDimension(c, "w", defaultThumbWidth)
	if !ok {
		return
	}
	height, ok := thumbDimension(c, "h", defaultThumbHeight)
	if !ok {
		return
	}

	img, err := h.db.GetImage(imageID)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := h.blobs.Get(img.FilePath)
	if errors.Is(err, storage.ErrNotExist) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "image file not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to decode image",
			Message: err.Error(),
		})
		return
	}

	thumb := imaging.Fit(src, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to encode thumbnail",
			Message: err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

func thumbDimension(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > maxThumbDimension {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + key})
		return 0, false
	}
	return v, true
}
