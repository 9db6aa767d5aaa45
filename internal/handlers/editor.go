package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"egglytics-backend/internal/models"
	"egglytics-backend/internal/services"
	"egglytics-backend/internal/storage"
)

// EditorHandler serves the annotation editor: the bootstrap payload and the
// point/rect/grid correction endpoints. Each mutation responds with the
// image's post-mutation egg count so the UI never has to re-derive it.
type EditorHandler struct {
	ledger *services.LedgerService
	blobs  storage.BlobStore
}

func NewEditorHandler(ledger *services.LedgerService, blobs storage.BlobStore) *EditorHandler {
	return &EditorHandler{ledger: ledger, blobs: blobs}
}

// Annotations godoc
// @Summary     Editor bootstrap payload for one image
// @Description Returns the image's live points, rects and verified grid cells.
// @Description Opening the editor marks the image validated; the flag never
// @Description reverts.
// @Tags        editor
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Success     200 {object} models.AnnotationsResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/annotations [get]
func (h *EditorHandler) Annotations(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}

	img, points, rects, grids, err := h.ledger.Annotations(imageID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.AnnotationsResponse{
		ImageID:      img.ID.String(),
		ImageName:    img.ImageName,
		ImagePath:    h.blobs.PublicURL(img.FilePath),
		ImageVersion: img.ImageVersion,
		TotalEggs:    img.TotalEggs,
		Points:       make([]models.PointResponse, 0, len(points)),
		Rects:        make([]models.RectResponse, 0, len(rects)),
		Grids:        make([]models.GridResponse, 0, len(grids)),
	}
	for _, p := range points {
		resp.Points = append(resp.Points, models.PointResponse{PointID: p.ID, X: p.X, Y: p.Y})
	}
	for _, r := range rects {
		resp.Rects = append(resp.Rects, models.RectResponse{
			RectID: r.ID,
			XInit:  r.XInit,
			YInit:  r.YInit,
			XEnd:   r.XEnd,
			YEnd:   r.YEnd,
		})
	}
	for _, g := range grids {
		resp.Grids = append(resp.Grids, models.GridResponse{X: g.X, Y: g.Y})
	}
	c.JSON(http.StatusOK, resp)
}

// AddPoint godoc
// @Summary     Add an egg point
// @Tags        editor
// @Accept      json
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body models.PointRequest true "Point coordinates"
// @Success     200 {object} models.MutationResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/points [post]
func (h *EditorHandler) AddPoint(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}
	var req models.PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if _, err := h.ledger.AddPoint(imageID, req.X, req.Y); err != nil {
		respondError(c, err)
		return
	}
	h.respondMutation(c, imageID)
}

// RemovePoint godoc
// @Summary     Remove an egg point
// @Description Detections are soft-deleted so they remain countable as
// @Description rejected predictions; human additions are removed outright.
// @Tags        editor
// @Accept      json
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body models.PointRequest true "Point coordinates"
// @Success     200 {object} models.MutationResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/points [delete]
func (h *EditorHandler) RemovePoint(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}
	var req models.PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if err := h.ledger.RemovePoint(imageID, req.X, req.Y); err != nil {
		respondError(c, err)
		return
	}
	h.respondMutation(c, imageID)
}

// AddRect godoc
// @Summary     Add a bounding rectangle
// @Description Corners arrive in any order and are normalized before storage.
// @Tags        editor
// @Accept      json
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body models.RectRequest true "Rectangle corners"
// @Success     200 {object} models.MutationResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/rects [post]
func (h *EditorHandler) AddRect(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}
	var req models.RectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if _, err := h.ledger.AddRect(imageID, req.XInit, req.YInit, req.XEnd, req.YEnd); err != nil {
		respondError(c, err)
		return
	}
	h.respondMutation(c, imageID)
}

// RemoveRect godoc
// @Summary     Remove a bounding rectangle
// @Tags        editor
// @Accept      json
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body models.RectRequest true "Rectangle corners"
// @Success     200 {object} models.MutationResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/rects [delete]
func (h *EditorHandler) RemoveRect(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}
	var req models.RectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if err := h.ledger.RemoveRect(imageID, req.XInit, req.YInit, req.XEnd, req.YEnd); err != nil {
		respondError(c, err)
		return
	}
	h.respondMutation(c, imageID)
}

// ToggleGrid godoc
// @Summary     Toggle a verified grid cell
// @Description Flips the cell's verified state; grid cells never touch egg
// @Description counters.
// @Tags        editor
// @Accept      json
// @Produce     json
// @Param       image_id path string true "Image ID (UUID)"
// @Param       request body models.GridToggleRequest true "Grid cell"
// @Success     200 {object} models.GridToggleResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /images/{image_id}/grids [post]
func (h *EditorHandler) ToggleGrid(c *gin.Context) {
	imageID, ok := imageParam(c)
	if !ok {
		return
	}
	var req models.GridToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	verified, err := h.ledger.ToggleGrid(imageID, req.X, req.Y)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.GridToggleResponse{Verified: verified})
}

func (h *EditorHandler) respondMutation(c *gin.Context, imageID uuid.UUID) {
	totalEggs, err := h.ledger.ImageTotalEggs(imageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MutationResponse{Status: "ok", TotalEggs: totalEggs})
}

func imageParam(c *gin.Context) (uuid.UUID, bool) {
	imageID, err := uuid.Parse(c.Param("image_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image id"})
		return uuid.Nil, false
	}
	return imageID, true
}
