package models

type PointRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type RectRequest struct {
	XInit int `json:"x_init"`
	YInit int `json:"y_init"`
	XEnd  int `json:"x_end"`
	YEnd  int `json:"y_end"`
}

type GridToggleRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type RenameBatchRequest struct {
	BatchName string `json:"batch_name"`
}

type RenameImageRequest struct {
	ImageName string `json:"image_name"`
}

type UpdateHatchedRequest struct {
	TotalHatched int `json:"total_hatched"`
}

type RecalibrateRequest struct {
	// AvgPixels hints the expected egg size in pixels to the gateway's
	// recalibration endpoint.
	AvgPixels float64 `json:"avg_pixels"`
}
