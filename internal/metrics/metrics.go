// Package metrics derives per-model accuracy from the annotation ledger.
// Classification is point-level over validated images only: detections the
// human kept are true positives, detections the human rejected are false
// positives, and points the human added are false negatives.
package metrics

import (
	"math"

	"egglytics-backend/internal/models"
)

// Reader is the ledger view the engine computes from.
type Reader interface {
	ModelNames() ([]string, error)
	ModelTally(model string) (*models.ModelTally, error)
}

type ModelStats struct {
	Model                 string
	TotalImages           int
	TP                    int
	FP                    int
	FN                    int
	TotalGroundTruth      int
	TotalModelPredictions int
	Precision             float64
	Recall                float64
	F1Score               float64
	MAE                   float64
	CountAccuracy         float64
}

type Engine struct {
	reader Reader
}

func NewEngine(reader Reader) *Engine {
	return &Engine{reader: reader}
}

func (e *Engine) ModelNames() ([]string, error) {
	return e.reader.ModelNames()
}

// Compare computes stats for each selected model.
func (e *Engine) Compare(selected []string) ([]ModelStats, error) {
	stats := make([]ModelStats, 0, len(selected))
	for _, model := range selected {
		tally, err := e.reader.ModelTally(model)
		if err != nil {
			return nil, err
		}
		stats = append(stats, Compute(*tally))
	}
	return stats, nil
}

// Compute turns a raw tally into presentation-ready stats. All rounding
// happens here, never on intermediate sums; zero denominators yield zero
// metrics rather than errors, except count accuracy which is undefined for
// zero ground truth and reported as zero by convention.
func Compute(tally models.ModelTally) ModelStats {
	stats := ModelStats{
		Model:                 tally.Model,
		TotalImages:           tally.TotalImages,
		TP:                    tally.TP,
		FP:                    tally.FP,
		FN:                    tally.FN,
		TotalGroundTruth:      tally.TP + tally.FN,
		TotalModelPredictions: tally.TP + tally.FP,
	}

	var precision, recall, f1 float64
	if tally.TP+tally.FP > 0 {
		precision = float64(tally.TP) / float64(tally.TP+tally.FP)
	}
	if tally.TP+tally.FN > 0 {
		recall = float64(tally.TP) / float64(tally.TP+tally.FN)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	stats.Precision = round(precision, 4)
	stats.Recall = round(recall, 4)
	stats.F1Score = round(f1, 4)
	stats.MAE = round(meanAbsoluteError(tally.Images), 4)

	if stats.TotalGroundTruth > 0 {
		accuracy := (1 - math.Abs(float64(stats.TotalGroundTruth-stats.TotalModelPredictions))/float64(stats.TotalGroundTruth)) * 100
		stats.CountAccuracy = round(accuracy, 2)
	}

	return stats
}

// meanAbsoluteError averages |kept - corrected| over images with a nonzero
// corrected count. Images with zero ground truth are excluded from the
// denominator, not treated as zero error.
func meanAbsoluteError(images []models.ImageTally) float64 {
	totalError := 0
	counted := 0
	for _, img := range images {
		corrected := img.Kept + img.Added
		if corrected == 0 {
			continue
		}
		totalError += abs(img.Kept - corrected)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return float64(totalError) / float64(counted)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
