package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"egglytics-backend/internal/database"
	"egglytics-backend/internal/export"
	"egglytics-backend/internal/models"
	"egglytics-backend/internal/services"
)

// respondError maps domain errors onto the HTTP surface. Unknown errors are
// internal; no domain error leaks a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found", Message: err.Error()})
	case errors.Is(err, services.ErrValidation), errors.Is(err, export.ErrUnknownFormat):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
	case errors.Is(err, export.ErrNoData):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "no data to export"})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Message: err.Error()})
	}
}
