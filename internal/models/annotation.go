package models

import "github.com/google/uuid"

// AnnotationClass is the lifecycle state of an annotation. Original
// detections move Kept -> Rejected on removal and are never purged; human
// additions are Added and are hard-deleted on removal, so Rejected+Added is
// unrepresentable.
type AnnotationClass int

const (
	ClassKept AnnotationClass = iota
	ClassRejected
	ClassAdded
)

type AnnotationPoint struct {
	ID         int64
	ImageID    uuid.UUID
	X          int
	Y          int
	IsOriginal bool
	IsDeleted  bool
}

func (p AnnotationPoint) Class() AnnotationClass {
	return classify(p.IsOriginal, p.IsDeleted)
}

// Counted reports whether the point contributes to total_eggs: kept
// detections and human additions count, rejected detections do not.
func (p AnnotationPoint) Counted() bool {
	return p.Class() != ClassRejected
}

// AnnotationRect stores two opposite corners in normalized form
// (x_init <= x_end, y_init <= y_end).
type AnnotationRect struct {
	ID         int64
	ImageID    uuid.UUID
	XInit      int
	YInit      int
	XEnd       int
	YEnd       int
	IsOriginal bool
	IsDeleted  bool
}

func (r AnnotationRect) Class() AnnotationClass {
	return classify(r.IsOriginal, r.IsDeleted)
}

func (r AnnotationRect) Counted() bool {
	return r.Class() != ClassRejected
}

func (r AnnotationRect) Width() int  { return r.XEnd - r.XInit }
func (r AnnotationRect) Height() int { return r.YEnd - r.YInit }

func classify(isOriginal, isDeleted bool) AnnotationClass {
	switch {
	case !isOriginal:
		return ClassAdded
	case isDeleted:
		return ClassRejected
	default:
		return ClassKept
	}
}

// VerifiedGrid marks a grid cell a human has checked off. Presence is the
// whole state; toggling twice cancels out.
type VerifiedGrid struct {
	ID      int64
	ImageID uuid.UUID
	X       int
	Y       int
}

// Point is a bare detection coordinate as returned by the inference gateway.
type Point struct {
	X int
	Y int
}

// NormalizeRect orders two corner points so that any of the four ways of
// drawing the same rectangle stores and compares identically. Idempotent.
func NormalizeRect(x1, y1, x2, y2 int) (xInit, yInit, xEnd, yEnd int) {
	xInit, xEnd = minMax(x1, x2)
	yInit, yEnd = minMax(y1, y2)
	return xInit, yInit, xEnd, yEnd
}

func minMax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

// ModelTally is the raw per-model material the metrics engine works from,
// gathered over validated images only.
type ModelTally struct {
	Model       string
	TotalImages int
	TP          int
	FP          int
	FN          int
	Images      []ImageTally
}

// ImageTally is one validated image's point split: detections the human
// kept vs. points the human added.
type ImageTally struct {
	Kept  int
	Added int
}
