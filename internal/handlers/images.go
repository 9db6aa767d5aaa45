package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"egglytics-backend/internal/database"
	"egglytics-backend/internal/models"
	"egglytics-backend/internal/services"
	"egglytics-backend/internal/storage"
)

type ImagesHandler struct {
	db           *database.Client
	blobs        storage.BlobStore
	batchService *services.BatchService
	ledger       *services.LedgerService
}

func NewImagesHandler(db *database.Client, blobs storage.BlobStore, batchService *services.BatchService, ledger *services.LedgerService) *ImagesHandler {
	return &ImagesHandler{db: db, blobs: blobs, batchService: batchService, ledger: ledger}
}

// DeleteImage godoc
// @Summary     Delete an image
// @Description Removes the stored file, the image row and its annotations.
// @Description The batch counters absorb the removal; a batch left empty is
// @Description deleted with it.
// @Tags        images
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Success     200 {object} models.DeleteImageResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id} [delete]
func (h *ImagesHandler) DeleteImage(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}

	img, err := h.db.GetImage(imageID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.db.DeleteImage(imageID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.blobs.Delete(img.FilePath); err != nil {
		// Best effort: a missing blob must not block the delete.
		log.Printf("delete image %s: failed to remove %s: %v", imageID, img.FilePath, err)
	}

	resp := models.DeleteImageResponse{
		Success:      true,
		Message:      "image deleted",
		BatchDeleted: result.BatchDeleted,
	}
	if !result.BatchDeleted {
		resp.NewTotalImages = result.TotalImages
		resp.NewTotalEggs = result.TotalEggs
	}
	c.JSON(http.StatusOK, resp)
}

// RenameImage godoc
// @Summary     Rename an image
// @Tags        images
// @Accept      json
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body models.RenameImageRequest true "New name"
// @Success     200 {object} map[string]bool
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/name [patch]
func (h *ImagesHandler) RenameImage(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}
	var req models.RenameImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if err := h.ledger.RenameImage(imageID, req.ImageName); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpdateHatched godoc
// @Summary     Set an image's hatched count
// @Tags        images
// @Accept      json
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body models.UpdateHatchedRequest true "Hatched count"
// @Success     200 {object} map[string]bool
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/hatched [patch]
func (h *ImagesHandler) UpdateHatched(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}
	var req models.UpdateHatchedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if err := h.ledger.UpdateHatched(imageID, req.TotalHatched); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Recalibrate godoc
// @Summary     Re-run detection on a processed image
// @Description Launches a background recalibration pass. The image drops its
// @Description processed flag while the gateway call is in flight; existing
// @Description annotations survive a failed pass untouched.
// @Tags        images
// @Accept      json
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body models.RecalibrateRequest true "Recalibration hint"
// @Success     202 {object} models.RecalibrateResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/recalibrate [post]
func (h *ImagesHandler) Recalibrate(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}
	var req models.RecalibrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if err := h.batchService.Recalibrate(imageID, req.AvgPixels); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.RecalibrateResponse{
		ImageID: imageID.String(),
		Status:  "recalibrating",
	})
}
