package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"egglytics-backend/internal/models"
)

func TestCustomAnnotations(t *testing.T) {
	points := []models.AnnotationPoint{{X: 10, Y: 20}}
	rects := []models.AnnotationRect{{XInit: 0, YInit: 0, XEnd: 4, YEnd: 4}}

	entries := customAnnotations(points, rects)
	data, err := json.Marshal(entries)
	assert.NoError(t, err)

	var decoded []map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)

	assert.Equal(t, "point", decoded[0]["type"])
	assert.Equal(t, float64(10), decoded[0]["x"])
	assert.Equal(t, float64(20), decoded[0]["y"])
	// Points have no extent; width/height stay off the wire.
	assert.NotContains(t, decoded[0], "width")

	assert.Equal(t, "rectangle", decoded[1]["type"])
	assert.Equal(t, float64(4), decoded[1]["width"])
	assert.Equal(t, float64(4), decoded[1]["height"])
}

func TestYoloLabels(t *testing.T) {
	points := []models.AnnotationPoint{{X: 50, Y: 25}}
	rects := []models.AnnotationRect{{XInit: 0, YInit: 0, XEnd: 100, YEnd: 50}}

	labels := yoloLabels(points, rects, 100, 50)
	lines := strings.Split(labels, "\n")
	assert.Len(t, lines, 2)

	// Rect spanning the whole image: centered, full extent.
	assert.Equal(t, "0 0.500000 0.500000 1.000000 1.000000", lines[0])
	// Point at the center with the synthetic 10px box.
	assert.Equal(t, "0 0.500000 0.500000 0.100000 0.200000", lines[1])
}

func TestCocoBuilder_SequentialAnnotationIDs(t *testing.T) {
	b := newCocoBuilder()
	b.addImage(1, "a.jpg", 100, 100,
		[]models.AnnotationPoint{{X: 10, Y: 10}},
		[]models.AnnotationRect{{XInit: 0, YInit: 0, XEnd: 20, YEnd: 20}})
	b.addImage(2, "b.jpg", 100, 100,
		[]models.AnnotationPoint{{X: 30, Y: 30}}, nil)

	out := b.output()
	assert.Len(t, out.Images, 2)
	assert.Len(t, out.Annotations, 3)

	// IDs run from 1 across the whole export and never reset per image.
	for i, ann := range out.Annotations {
		assert.Equal(t, i+1, ann.ID)
	}
	assert.Equal(t, 1, out.Annotations[0].ImageID)
	assert.Equal(t, 2, out.Annotations[2].ImageID)

	// Point boxes are centered on the point.
	point := out.Annotations[1]
	assert.Equal(t, []float64{5, 5, 10, 10}, point.BBox)
	assert.Equal(t, float64(100), point.Area)

	assert.Len(t, out.Categories, 1)
	assert.Equal(t, "Egg", out.Categories[0].Name)
}
