package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type UploadResponse struct {
	Message string `json:"message"`
	BatchID string `json:"batch_id"`
}

type BatchSummary struct {
	ID             string    `json:"id"`
	BatchName      string    `json:"batch_name"`
	Owner          string    `json:"owner"`
	TotalImages    int       `json:"total_images"`
	TotalEggs      int       `json:"total_eggs"`
	TotalHatched   int       `json:"total_hatched"`
	IsComplete     bool      `json:"is_complete"`
	HasFailPresent bool      `json:"has_fail_present"`
	DateUpdated    time.Time `json:"date_updated"`
}

type BatchListResponse struct {
	Batches     []BatchSummary `json:"batches"`
	TotalImages int            `json:"total_images"`
	TotalEggs   int            `json:"total_eggs"`
}

type BatchStatusResponse struct {
	ID             string `json:"id"`
	TotalEggs      int    `json:"total_eggs"`
	TotalImages    int    `json:"total_images"`
	IsComplete     bool   `json:"is_complete"`
	HasFailPresent bool   `json:"has_fail_present"`
}

type ImageSummary struct {
	ImageID      string `json:"image_id"`
	ImageName    string `json:"image_name"`
	ImagePath    string `json:"image_path"`
	ImageURL     string `json:"image_url"`
	ImgType      string `json:"img_type"`
	TotalEggs    int    `json:"total_eggs"`
	TotalHatched int    `json:"total_hatched"`
	IsProcessed  bool   `json:"is_processed"`
}

type ImageListResponse struct {
	Images []ImageSummary `json:"images"`
}

type PointResponse struct {
	PointID int64 `json:"point_id"`
	X       int   `json:"x"`
	Y       int   `json:"y"`
}

type RectResponse struct {
	RectID int64 `json:"rect_id"`
	XInit  int   `json:"x_init"`
	YInit  int   `json:"y_init"`
	XEnd   int   `json:"x_end"`
	YEnd   int   `json:"y_end"`
}

type GridResponse struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// AnnotationsResponse is the editor bootstrap payload: everything a human
// needs to start correcting one image.
type AnnotationsResponse struct {
	ImageID      string          `json:"image_id"`
	ImageName    string          `json:"image_name"`
	ImagePath    string          `json:"image_path"`
	ImageVersion int             `json:"image_version"`
	TotalEggs    int             `json:"total_eggs"`
	Points       []PointResponse `json:"points"`
	Rects        []RectResponse  `json:"rects"`
	Grids        []GridResponse  `json:"grids"`
}

type MutationResponse struct {
	Status    string `json:"status"`
	TotalEggs int    `json:"total_eggs"`
}

type GridToggleResponse struct {
	Verified bool `json:"verified"`
}

type ModelStatsResponse struct {
	Model                 string  `json:"model"`
	TotalImages           int     `json:"total_images"`
	TP                    int     `json:"tp"`
	FP                    int     `json:"fp"`
	FN                    int     `json:"fn"`
	TotalGroundTruth      int     `json:"total_ground_truth"`
	TotalModelPredictions int     `json:"total_model_predictions"`
	Precision             float64 `json:"precision"`
	Recall                float64 `json:"recall"`
	F1Score               float64 `json:"f1_score"`
	MAE                   float64 `json:"mae"`
	CountAccuracy         float64 `json:"count_accuracy"`
}

type MetricsResponse struct {
	Comparison []ModelStatsResponse `json:"comparison"`
}

type ModelListResponse struct {
	Models []string `json:"models"`
}

type ExportResponse struct {
	Success     bool   `json:"success"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
}

type ExportDateRangeResponse struct {
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

type ExportCountResponse struct {
	TotalImages int `json:"total_images"`
	TotalPoints int `json:"total_points"`
	TotalRects  int `json:"total_rects"`
}

type RecalibrateResponse struct {
	ImageID string `json:"image_id"`
	Status  string `json:"status"`
}

type DeleteImageResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	BatchDeleted   bool   `json:"batch_deleted"`
	NewTotalImages int    `json:"new_total_images,omitempty"`
	NewTotalEggs   int    `json:"new_total_eggs,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
