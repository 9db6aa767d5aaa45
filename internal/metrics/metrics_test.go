package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"egglytics-backend/internal/metrics"
	"egglytics-backend/internal/models"
)

type fakeReader struct {
	names   []string
	tallies map[string]*models.ModelTally
}

func (r *fakeReader) ModelNames() ([]string, error) {
	return r.names, nil
}

func (r *fakeReader) ModelTally(model string) (*models.ModelTally, error) {
	return r.tallies[model], nil
}

func TestCompute(t *testing.T) {
	stats := metrics.Compute(models.ModelTally{
		Model:       "polyegg_heatmap",
		TotalImages: 2,
		TP:          8,
		FP:          2,
		FN:          1,
		Images: []models.ImageTally{
			{Kept: 5, Added: 0},
			{Kept: 3, Added: 2},
		},
	})

	assert.Equal(t, 9, stats.TotalGroundTruth)
	assert.Equal(t, 10, stats.TotalModelPredictions)
	assert.Equal(t, 0.8, stats.Precision)
	assert.Equal(t, 0.8889, stats.Recall)
	assert.Equal(t, 0.8421, stats.F1Score)
	assert.Equal(t, 1.0, stats.MAE)
	assert.Equal(t, 88.89, stats.CountAccuracy)
}

func TestCompute_ZeroDenominators(t *testing.T) {
	stats := metrics.Compute(models.ModelTally{Model: "free_annotate"})

	assert.Zero(t, stats.Precision)
	assert.Zero(t, stats.Recall)
	assert.Zero(t, stats.F1Score)
	assert.Zero(t, stats.MAE)
	assert.Zero(t, stats.CountAccuracy)
}

func TestCompute_MAEExcludesZeroGroundTruthImages(t *testing.T) {
	// An image where the human ends with zero eggs must not drag the mean
	// toward zero.
	stats := metrics.Compute(models.ModelTally{
		TP: 3,
		Images: []models.ImageTally{
			{Kept: 0, Added: 0},
			{Kept: 3, Added: 1},
		},
	})
	assert.Equal(t, 1.0, stats.MAE)
}

func TestEngine_Compare(t *testing.T) {
	reader := &fakeReader{
		names: []string{"a", "b"},
		tallies: map[string]*models.ModelTally{
			"a": {Model: "a", TP: 4, FP: 1},
			"b": {Model: "b", TP: 1, FN: 1},
		},
	}
	engine := metrics.NewEngine(reader)

	stats, err := engine.Compare([]string{"a", "b"})
	assert.NoError(t, err)
	assert.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].Model)
	assert.Equal(t, 0.8, stats[0].Precision)
	assert.Equal(t, 0.5, stats[1].Recall)
}
