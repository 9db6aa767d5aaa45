package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"egglytics-backend/internal/database"
	"egglytics-backend/internal/models"
	"egglytics-backend/internal/storage"
)

type BatchesHandler struct {
	db    *database.Client
	blobs storage.BlobStore
}

func NewBatchesHandler(db *database.Client, blobs storage.BlobStore) *BatchesHandler {
	return &BatchesHandler{db: db, blobs: blobs}
}

// ListBatches godoc
// @Summary     List batches
// @Description Returns batches newest first with aggregate totals across all batches.
// @Tags        batches
// @Produce     json
// @Param       owner query string false "Filter by owner"
// @Success     200 {object} models.BatchListResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /batches [get]
func (h *BatchesHandler) ListBatches(c *gin.Context) {
	batches, err := h.db.ListBatches(c.Query("owner"))
	if err != nil {
		respondError(c, err)
		return
	}

	totals, err := h.db.BatchTotals()
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.BatchListResponse{
		Batches:     make([]models.BatchSummary, 0, len(batches)),
		TotalImages: totals.TotalImages,
		TotalEggs:   totals.TotalEggs,
	}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, batchSummary(&b))
	}
	c.JSON(http.StatusOK, resp)
}

// BatchImages godoc
// @Summary     List images of a batch
// @Tags        batches
// @Produce     json
// @Param       batch_id path string true "Batch ID (UUID)"
// @Success     200 {object} models.ImageListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /batches/{batch_id}/images [get]
func (h *BatchesHandler) BatchImages(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid batch id"})
		return
	}

	if _, err := h.db.GetBatch(batchID); err != nil {
		respondError(c, err)
		return
	}

	images, err := h.db.ListBatchImages(batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.ImageListResponse{Images: make([]models.ImageSummary, 0, len(images))}
	for _, img := range images {
		resp.Images = append(resp.Images, models.ImageSummary{
			ImageID:      img.ID.String(),
			ImageName:    img.ImageName,
			ImagePath:    img.FilePath,
			ImageURL:     h.blobs.PublicURL(img.FilePath),
			ImgType:      img.ImgType,
			TotalEggs:    img.TotalEggs,
			TotalHatched: img.TotalHatched,
			IsProcessed:  img.IsProcessed,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// BatchStatus godoc
// @Summary     Poll one batch's processing status
// @Tags        batches
// @Produce     json
// @Param       batch_id path string true "Batch ID (UUID)"
// @Success     200 {object} models.BatchStatusResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /batches/{batch_id}/status [get]
func (h *BatchesHandler) BatchStatus(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid batch id"})
		return
	}

	batch, err := h.db.GetBatch(batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batchStatus(batch))
}

// LatestBatchStatus godoc
// @Summary     Poll the most recent batch's status
// @Tags        batches
// @Produce     json
// @Success     200 {object} models.BatchStatusResponse
// @Router      /batches/status/latest [get]
func (h *BatchesHandler) LatestBatchStatus(c *gin.Context) {
	batch, err := h.db.LatestBatch()
	if err == database.ErrNotFound {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batchStatus(batch))
}

// RenameBatch godoc
// @Summary     Rename a batch
// @Tags        batches
// @Accept      json
// @Produce     json
// @Param       batch_id path string true "Batch ID (UUID)"
// @Param       request body models.RenameBatchRequest true "New name"
// @Success     200 {object} map[string]bool
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /batches/{batch_id}/name [patch]
func (h *BatchesHandler) RenameBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid batch id"})
		return
	}

	var req models.RenameBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	name := strings.TrimSpace(req.BatchName)
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "batch name cannot be empty"})
		return
	}

	if err := h.db.RenameBatch(batchID, name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteBatch godoc
// @Summary     Delete a batch and everything it owns
// @Description Removes stored image files, then the batch row; images and
// @Description annotations cascade with it.
// @Tags        batches
// @Produce     json
// @Param       batch_id path string true "Batch ID (UUID)"
// @Success     200 {object} map[string]bool
// @Failure     404 {object} models.ErrorResponse
// @Router      /batches/{batch_id} [delete]
func (h *BatchesHandler) DeleteBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid batch id"})
		return
	}

	images, err := h.db.ListBatchImages(batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, img := range images {
		if err := h.blobs.Delete(img.FilePath); err != nil {
			// Best effort: a missing blob must not block the delete.
			log.Printf("delete batch %s: failed to remove %s: %v", batchID, img.FilePath, err)
		}
	}

	if err := h.db.DeleteBatch(batchID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func batchSummary(b *models.Batch) models.BatchSummary {
	return models.BatchSummary{
		ID:             b.ID.String(),
		BatchName:      b.BatchName,
		Owner:          b.Owner,
		TotalImages:    b.TotalImages,
		TotalEggs:      b.TotalEggs,
		TotalHatched:   b.TotalHatched,
		IsComplete:     b.IsComplete,
		HasFailPresent: b.HasFailPresent,
		DateUpdated:    b.DateUpdated,
	}
}

func batchStatus(b *models.Batch) models.BatchStatusResponse {
	return models.BatchStatusResponse{
		ID:             b.ID.String(),
		TotalEggs:      b.TotalEggs,
		TotalImages:    b.TotalImages,
		IsComplete:     b.IsComplete,
		HasFailPresent: b.HasFailPresent,
	}
}
