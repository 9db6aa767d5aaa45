package inference_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"egglytics-backend/internal/inference"
	"egglytics-backend/internal/models"
)

func TestClient_Detect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload_base64", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "eggs.jpg", payload["filename"])
		assert.Equal(t, "micro", payload["mode"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "complete",
			"points":      [][2]float64{{10.4, 20.6}, {30, 40}},
			"egg_count":   2,
			"final_image": base64.StdEncoding.EncodeToString([]byte("rendered")),
		})
	}))
	defer server.Close()

	client := inference.NewClient(server.URL, 5*time.Second)
	detection, err := client.Detect(inference.DetectRequest{
		Data:     []byte("raw image"),
		Filename: "eggs.jpg",
		Mode:     "micro",
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, detection.EggCount)
	// Float coordinates round to the nearest pixel.
	assert.Equal(t, []models.Point{{X: 10, Y: 21}, {X: 30, Y: 40}}, detection.Points)
	assert.Equal(t, []byte("rendered"), detection.FinalImage)
}

func TestClient_Detect_ClientErrorIsFinal(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer server.Close()

	client := inference.NewClient(server.URL, 5*time.Second)
	_, err := client.Detect(inference.DetectRequest{Data: []byte("x")})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	// The gateway answered; retrying the same request cannot help.
	assert.Equal(t, 1, hits)
}

func TestClient_Detect_RetriesServerErrors(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "complete", "egg_count": 2})
	}))
	defer server.Close()

	client := inference.NewClient(server.URL, 5*time.Second)
	detection, err := client.Detect(inference.DetectRequest{Data: []byte("x")})

	assert.NoError(t, err)
	assert.Equal(t, 2, detection.EggCount)
	assert.Equal(t, 2, hits)
}

func TestClient_Detect_IncompleteStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "failed"})
	}))
	defer server.Close()

	client := inference.NewClient(server.URL, 5*time.Second)
	_, err := client.Detect(inference.DetectRequest{Data: []byte("x")})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `status "failed"`)
}

func TestClient_Recalibrate_SendsHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recalibrate_base64", r.URL.Path)

		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 42.5, payload["avg_pixels"])

		json.NewEncoder(w).Encode(map[string]interface{}{"status": "complete", "egg_count": 1})
	}))
	defer server.Close()

	client := inference.NewClient(server.URL, 5*time.Second)
	detection, err := client.Recalibrate(inference.DetectRequest{Data: []byte("x"), AvgPixels: 42.5})

	assert.NoError(t, err)
	assert.Equal(t, 1, detection.EggCount)
}

func TestClient_RetryWithBackoff(t *testing.T) {
	client := inference.NewClient("http://gateway.test", time.Second)

	callCount := 0
	err := client.RetryWithBackoff(func() error {
		callCount++
		if callCount < 2 {
			return assert.AnError
		}
		return nil
	}, 3)

	assert.NoError(t, err)
	assert.Equal(t, 2, callCount)
}

func TestClient_RetryWithBackoff_Exhausted(t *testing.T) {
	client := inference.NewClient("http://gateway.test", time.Second)

	err := client.RetryWithBackoff(func() error {
		return assert.AnError
	}, 1)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 1 retries")
}

func TestRegistry(t *testing.T) {
	registry := inference.NewRegistry()
	registry.Register("free_annotate", inference.FreeAnnotate{})

	detector, err := registry.Lookup("free_annotate")
	assert.NoError(t, err)
	assert.NotNil(t, detector)

	_, err = registry.Lookup("unknown_model")
	assert.Error(t, err)
}

func TestRegistry_ModelsSorted(t *testing.T) {
	registry := inference.NewRegistry()
	registry.Register("polyegg_heatmap", inference.FreeAnnotate{})
	registry.Register("free_annotate", inference.FreeAnnotate{})

	assert.Equal(t, []string{"free_annotate", "polyegg_heatmap"}, registry.Models())
}

func TestFreeAnnotate_PassesImageThrough(t *testing.T) {
	detection, err := inference.FreeAnnotate{}.Detect(inference.DetectRequest{Data: []byte("original")})

	assert.NoError(t, err)
	assert.Zero(t, detection.EggCount)
	assert.Empty(t, detection.Points)
	assert.Equal(t, []byte("original"), detection.FinalImage)
}
