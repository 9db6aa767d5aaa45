package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"egglytics-backend/internal/handlers"
	"egglytics-backend/internal/inference"
)

func TestUploadHandler_Models(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := inference.NewRegistry()
	registry.Register("polyegg_heatmap", inference.FreeAnnotate{})
	registry.Register("free_annotate", inference.FreeAnnotate{})

	router := gin.New()
	router.GET("/models", handlers.NewUploadHandler(nil, registry).Models)

	req, _ := http.NewRequest("GET", "/models", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"models":["free_annotate","polyegg_heatmap"]}`, w.Body.String())
}
