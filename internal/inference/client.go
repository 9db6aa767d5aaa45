package inference

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"egglytics-backend/internal/models"
)

type detectPayload struct {
	Image     string  `json:"image"`
	Filename  string  `json:"filename,omitempty"`
	Mode      string  `json:"mode,omitempty"`
	AvgPixels float64 `json:"avg_pixels,omitempty"`
}

type detectResponse struct {
	Status     string       `json:"status"`
	Points     [][2]float64 `json:"points"`
	FinalImage string       `json:"final_image"`
	EggCount   int          `json:"egg_count"`
}

// Client talks to one remote egg-detection service over the base64 JSON
// protocol: POST /upload_base64 for initial detection, POST
// /recalibrate_base64 for re-runs with a pixel-size hint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Detect(req DetectRequest) (*Detection, error) {
	return c.post("/upload_base64", detectPayload{
		Image:    base64.StdEncoding.EncodeToString(req.Data),
		Filename: req.Filename,
		Mode:     req.Mode,
	})
}

func (c *Client) Recalibrate(req DetectRequest) (*Detection, error) {
	return c.post("/recalibrate_base64", detectPayload{
		Image:     base64.StdEncoding.EncodeToString(req.Data),
		Filename:  req.Filename,
		Mode:      req.Mode,
		AvgPixels: req.AvgPixels,
	})
}

// gatewayAttempts bounds retries of one gateway round trip. Detection is a
// pure function of the image bytes, so repeating a failed round trip is safe.
const gatewayAttempts = 3

func (c *Client) post(path string, payload detectPayload) (*Detection, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var status int
	var body []byte
	if err := c.RetryWithBackoff(func() error {
		var err error
		status, body, err = c.roundTrip(path, jsonData)
		return err
	}, gatewayAttempts); err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d, body: %s", status, string(body))
	}

	var result detectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	if result.Status != "complete" {
		return nil, fmt.Errorf("gateway reported status %q", result.Status)
	}

	detection := &Detection{
		EggCount: result.EggCount,
		Points:   make([]models.Point, len(result.Points)),
	}
	for i, p := range result.Points {
		detection.Points[i] = models.Point{
			X: int(math.Round(p[0])),
			Y: int(math.Round(p[1])),
		}
	}

	if result.FinalImage != "" {
		img, err := base64.StdEncoding.DecodeString(result.FinalImage)
		if err != nil {
			return nil, fmt.Errorf("failed to decode final image: %w", err)
		}
		detection.FinalImage = img
	}

	return detection, nil
}

// roundTrip performs one POST against the gateway. Transport failures and
// 5xx responses come back as errors so the caller can retry them; anything
// the gateway actually answered is final.
func (c *Client) roundTrip(path string, jsonData []byte) (int, []byte, error) {
	httpReq, err := http.NewRequest("POST", c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return 0, nil, fmt.Errorf("gateway returned status %d, body: %s", resp.StatusCode, string(body))
	}
	return resp.StatusCode, body, nil
}

// RetryWithBackoff retries fn with exponential backoff.
func (c *Client) RetryWithBackoff(fn func() error, maxRetries int) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < maxRetries-1 {
			time.Sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}
