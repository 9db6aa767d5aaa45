package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"egglytics-backend/internal/models"
)

// ExportFilter selects the images an export covers. Model is required;
// the rest narrow the selection.
type ExportFilter struct {
	Model        string
	VerifiedOnly bool
	DateFrom     *time.Time
	DateTo       *time.Time
}

func (f ExportFilter) where() (string, []interface{}) {
	clauses := []string{"model_used = $1"}
	args := []interface{}{f.Model}
	if f.VerifiedOnly {
		clauses = append(clauses, "is_validated = TRUE")
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		clauses = append(clauses, fmt.Sprintf("date_uploaded::date >= $%d::date", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		clauses = append(clauses, fmt.Sprintf("date_uploaded::date <= $%d::date", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// SelectExportImages returns the images matching the filter, oldest first so
// derived label files come out in upload order.
func (c *Client) SelectExportImages(filter ExportFilter) ([]models.Image, error) {
	where, args := filter.where()
	rows, err := c.db.Query(`
		SELECT `+imageColumns+` FROM image_details WHERE `+where+` ORDER BY date_uploaded ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select export images: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

// ExportCounts summarizes a pending export: how many images, points and
// rects the current filter would cover. Soft-deleted annotations are
// excluded, matching exactly what CountedAnnotations feeds the writers.
func (c *Client) ExportCounts(filter ExportFilter) (images, points, rects int, err error) {
	where, args := filter.where()
	err = c.db.QueryRow(`
		SELECT COUNT(DISTINCT i.image_id),
		       COUNT(DISTINCT p.point_id),
		       COUNT(DISTINCT r.rect_id)
		FROM image_details i
		LEFT JOIN annotation_points p ON p.image_id = i.image_id AND p.is_deleted = FALSE
		LEFT JOIN annotation_rects r ON r.image_id = i.image_id AND r.is_deleted = FALSE
		WHERE `+where,
		args...).Scan(&images, &points, &rects)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count export rows: %w", err)
	}
	return images, points, rects, nil
}

// ModelDateRange returns the span of upload dates for a model, or
// ErrNotFound when the model has no images.
func (c *Client) ModelDateRange(model string) (time.Time, time.Time, error) {
	var minDate, maxDate *time.Time
	err := c.db.QueryRow(`
		SELECT MIN(date_uploaded), MAX(date_uploaded) FROM image_details WHERE model_used = $1
	`, model).Scan(&minDate, &maxDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to get date range: %w", err)
	}
	if minDate == nil || maxDate == nil {
		return time.Time{}, time.Time{}, ErrNotFound
	}
	return *minDate, *maxDate, nil
}

// CountedAnnotations returns the annotations that contribute to datasets:
// kept detections and human additions, soft-deleted rows excluded.
func (c *Client) CountedAnnotations(imageID uuid.UUID) ([]models.AnnotationPoint, []models.AnnotationRect, error) {
	points, err := c.queryPoints(`
		SELECT point_id, image_id, x, y, is_original, is_deleted FROM annotation_points
		WHERE image_id = $1 AND is_deleted = FALSE ORDER BY point_id
	`, imageID)
	if err != nil {
		return nil, nil, err
	}
	rects, err := c.queryRects(`
		SELECT rect_id, image_id, x_init, y_init, x_end, y_end, is_original, is_deleted FROM annotation_rects
		WHERE image_id = $1 AND is_deleted = FALSE ORDER BY rect_id
	`, imageID)
	if err != nil {
		return nil, nil, err
	}
	return points, rects, nil
}

// PointCount counts every point row for an image, deleted included. The CSV
// export reports this raw ledger size rather than the counted formula.
func (c *Client) PointCount(imageID uuid.UUID) (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM annotation_points WHERE image_id = $1`, imageID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}
