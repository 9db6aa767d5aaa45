package export

import (
	"fmt"
	"strings"

	"egglytics-backend/internal/models"
)

const categoryName = "Egg"

type customAnnotation struct {
	Label  string `json:"label"`
	Type   string `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func customAnnotations(points []models.AnnotationPoint, rects []models.AnnotationRect) []customAnnotation {
	entries := make([]customAnnotation, 0, len(points)+len(rects))
	for _, p := range points {
		entries = append(entries, customAnnotation{
			Label: categoryName,
			Type:  "point",
			X:     p.X,
			Y:     p.Y,
		})
	}
	for _, r := range rects {
		entries = append(entries, customAnnotation{
			Label:  categoryName,
			Type:   "rectangle",
			X:      r.XInit,
			Y:      r.YInit,
			Width:  r.Width(),
			Height: r.Height(),
		})
	}
	return entries
}

// yoloLabels emits one "class cx cy w h" line per annotation, normalized to
// [0,1] by the image dimensions. Points become a synthetic fixed-size box
// centered on the point.
func yoloLabels(points []models.AnnotationPoint, rects []models.AnnotationRect, width, height int) string {
	w := float64(width)
	h := float64(height)

	var lines []string
	for _, r := range rects {
		cx := (float64(r.XInit) + float64(r.Width())/2) / w
		cy := (float64(r.YInit) + float64(r.Height())/2) / h
		lines = append(lines, yoloLine(cx, cy, float64(r.Width())/w, float64(r.Height())/h))
	}
	for _, p := range points {
		lines = append(lines, yoloLine(float64(p.X)/w, float64(p.Y)/h, pointBoxSize/w, pointBoxSize/h))
	}
	return strings.Join(lines, "\n")
}

func yoloLine(cx, cy, w, h float64) string {
	return fmt.Sprintf("0 %.6f %.6f %.6f %.6f", cx, cy, w, h)
}

type cocoImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoAnnotation struct {
	ID         int       `json:"id"`
	ImageID    int       `json:"image_id"`
	CategoryID int       `json:"category_id"`
	BBox       []float64 `json:"bbox"`
	Area       float64   `json:"area"`
	IsCrowd    int       `json:"iscrowd"`
}

type cocoCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

type cocoOutput struct {
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

// cocoBuilder accumulates one instances.json for the whole export.
// Annotation ids are sequential from 1 across every image, never reset.
type cocoBuilder struct {
	images       []cocoImage
	annotations  []cocoAnnotation
	annotationID int
}

func newCocoBuilder() *cocoBuilder {
	return &cocoBuilder{annotationID: 1}
}

func (b *cocoBuilder) addImage(imageID int, name string, width, height int, points []models.AnnotationPoint, rects []models.AnnotationRect) {
	b.images = append(b.images, cocoImage{
		ID:       imageID,
		FileName: name,
		Width:    width,
		Height:   height,
	})

	for _, r := range rects {
		// Rects are stored top-left origin already.
		b.add(imageID, []float64{float64(r.XInit), float64(r.YInit), float64(r.Width()), float64(r.Height())},
			float64(r.Width()*r.Height()))
	}
	for _, p := range points {
		// Centered synthetic box: top-left corner at (x-5, y-5).
		half := float64(pointBoxSize) / 2
		b.add(imageID, []float64{float64(p.X) - half, float64(p.Y) - half, pointBoxSize, pointBoxSize},
			pointBoxSize*pointBoxSize)
	}
}

func (b *cocoBuilder) add(imageID int, bbox []float64, area float64) {
	b.annotations = append(b.annotations, cocoAnnotation{
		ID:         b.annotationID,
		ImageID:    imageID,
		CategoryID: 1,
		BBox:       bbox,
		Area:       area,
		IsCrowd:    0,
	})
	b.annotationID++
}

func (b *cocoBuilder) output() cocoOutput {
	return cocoOutput{
		Images:      b.images,
		Annotations: b.annotations,
		Categories: []cocoCategory{
			{ID: 1, Name: categoryName, Supercategory: "object"},
		},
	}
}
