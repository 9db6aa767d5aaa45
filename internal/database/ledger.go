package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"egglytics-backend/internal/models"
)

// The annotation ledger. Every mutation here pairs the point/rect change
// with the image and batch counter updates in a single transaction, with
// both rows locked image-first, batch-second so concurrent edits serialize
// without deadlocking. Decrements clamp at zero on both rows.

// lockCounters locks the image row and its owning batch row and returns the
// batch id. ErrNotFound when the image does not exist.
func lockCounters(tx *sql.Tx, imageID uuid.UUID) (uuid.UUID, error) {
	var batchID uuid.UUID
	err := tx.QueryRow(`
		SELECT batch_id FROM image_details WHERE image_id = $1 FOR UPDATE
	`, imageID).Scan(&batchID)
	if err == sql.ErrNoRows {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to lock image: %w", err)
	}
	if _, err := tx.Exec(`SELECT 1 FROM batch_details WHERE id = $1 FOR UPDATE`, batchID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to lock batch: %w", err)
	}
	return batchID, nil
}

func bumpCounters(tx *sql.Tx, imageID, batchID uuid.UUID, delta int) error {
	if _, err := tx.Exec(`
		UPDATE image_details
		SET total_eggs = GREATEST(total_eggs + $1, 0), last_update = NOW()
		WHERE image_id = $2
	`, delta, imageID); err != nil {
		return fmt.Errorf("failed to update image counter: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE batch_details
		SET total_eggs = GREATEST(total_eggs + $1, 0), date_updated = NOW()
		WHERE id = $2
	`, delta, batchID); err != nil {
		return fmt.Errorf("failed to update batch counter: %w", err)
	}
	return nil
}

// AddPoint inserts a human-added point and increments both counters by one.
func (c *Client) AddPoint(imageID uuid.UUID, x, y int) (*models.AnnotationPoint, error) {
	point := models.AnnotationPoint{ImageID: imageID, X: x, Y: y, IsOriginal: false}
	err := c.withTx(func(tx *sql.Tx) error {
		batchID, err := lockCounters(tx, imageID)
		if err != nil {
			return err
		}
		err = tx.QueryRow(`
			INSERT INTO annotation_points (image_id, x, y, is_original, is_deleted)
			VALUES ($1, $2, $3, FALSE, FALSE)
			RETURNING point_id
		`, imageID, x, y).Scan(&point.ID)
		if err != nil {
			return fmt.Errorf("failed to insert point: %w", err)
		}
		return bumpCounters(tx, imageID, batchID, 1)
	})
	if err != nil {
		return nil, err
	}
	return &point, nil
}

// RemovePoint locates the first non-deleted point at (x, y). Original
// detections are soft-deleted and kept for audit and metrics; human
// additions are removed outright. Both counters drop by one either way.
func (c *Client) RemovePoint(imageID uuid.UUID, x, y int) error {
	return c.withTx(func(tx *sql.Tx) error {
		batchID, err := lockCounters(tx, imageID)
		if err != nil {
			return err
		}

		var pointID int64
		var isOriginal bool
		err = tx.QueryRow(`
			SELECT point_id, is_original FROM annotation_points
			WHERE image_id = $1 AND x = $2 AND y = $3 AND is_deleted = FALSE
			ORDER BY point_id LIMIT 1
		`, imageID, x, y).Scan(&pointID, &isOriginal)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to find point: %w", err)
		}

		if isOriginal {
			_, err = tx.Exec(`UPDATE annotation_points SET is_deleted = TRUE WHERE point_id = $1`, pointID)
		} else {
			_, err = tx.Exec(`DELETE FROM annotation_points WHERE point_id = $1`, pointID)
		}
		if err != nil {
			return fmt.Errorf("failed to remove point: %w", err)
		}
		return bumpCounters(tx, imageID, batchID, -1)
	})
}

// AddRect inserts a human-drawn rectangle. Corners are normalized before
// storage so any drawing order compares equal.
func (c *Client) AddRect(imageID uuid.UUID, x1, y1, x2, y2 int) (*models.AnnotationRect, error) {
	xInit, yInit, xEnd, yEnd := models.NormalizeRect(x1, y1, x2, y2)
	rect := models.AnnotationRect{ImageID: imageID, XInit: xInit, YInit: yInit, XEnd: xEnd, YEnd: yEnd, IsOriginal: false}
	err := c.withTx(func(tx *sql.Tx) error {
		batchID, err := lockCounters(tx, imageID)
		if err != nil {
			return err
		}
		err = tx.QueryRow(`
			INSERT INTO annotation_rects (image_id, x_init, y_init, x_end, y_end, is_original, is_deleted)
			VALUES ($1, $2, $3, $4, $5, FALSE, FALSE)
			RETURNING rect_id
		`, imageID, xInit, yInit, xEnd, yEnd).Scan(&rect.ID)
		if err != nil {
			return fmt.Errorf("failed to insert rect: %w", err)
		}
		return bumpCounters(tx, imageID, batchID, 1)
	})
	if err != nil {
		return nil, err
	}
	return &rect, nil
}

func (c *Client) RemoveRect(imageID uuid.UUID, x1, y1, x2, y2 int) error {
	xInit, yInit, xEnd, yEnd := models.NormalizeRect(x1, y1, x2, y2)
	return c.withTx(func(tx *sql.Tx) error {
		batchID, err := lockCounters(tx, imageID)
		if err != nil {
			return err
		}

		var rectID int64
		var isOriginal bool
		err = tx.QueryRow(`
			SELECT rect_id, is_original FROM annotation_rects
			WHERE image_id = $1 AND x_init = $2 AND y_init = $3 AND x_end = $4 AND y_end = $5 AND is_deleted = FALSE
			ORDER BY rect_id LIMIT 1
		`, imageID, xInit, yInit, xEnd, yEnd).Scan(&rectID, &isOriginal)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to find rect: %w", err)
		}

		if isOriginal {
			_, err = tx.Exec(`UPDATE annotation_rects SET is_deleted = TRUE WHERE rect_id = $1`, rectID)
		} else {
			_, err = tx.Exec(`DELETE FROM annotation_rects WHERE rect_id = $1`, rectID)
		}
		if err != nil {
			return fmt.Errorf("failed to remove rect: %w", err)
		}
		return bumpCounters(tx, imageID, batchID, -1)
	})
}

// ToggleGrid inserts the marker if absent, removes it if present. Returns
// whether the cell is verified after the toggle.
func (c *Client) ToggleGrid(imageID uuid.UUID, x, y int) (bool, error) {
	var verified bool
	err := c.withTx(func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRow(`
			SELECT EXISTS (SELECT 1 FROM verified_grids WHERE image_id = $1 AND x = $2 AND y = $3)
		`, imageID, x, y).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check grid: %w", err)
		}

		if exists {
			_, err = tx.Exec(`DELETE FROM verified_grids WHERE image_id = $1 AND x = $2 AND y = $3`, imageID, x, y)
			verified = false
		} else {
			_, err = tx.Exec(`INSERT INTO verified_grids (image_id, x, y) VALUES ($1, $2, $3)`, imageID, x, y)
			verified = true
		}
		if err != nil {
			return fmt.Errorf("failed to toggle grid: %w", err)
		}
		return nil
	})
	return verified, err
}

// InsertOriginalPoints appends the gateway's detections as original,
// non-deleted points. Used by the batch worker after a successful inference
// call; counters are settled by the worker's completion update.
func (c *Client) InsertOriginalPoints(imageID uuid.UUID, points []models.Point) error {
	if len(points) == 0 {
		return nil
	}
	return c.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO annotation_points (image_id, x, y, is_original, is_deleted)
			VALUES ($1, $2, $3, TRUE, FALSE)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.Exec(imageID, p.X, p.Y); err != nil {
				return fmt.Errorf("failed to insert detection point: %w", err)
			}
		}
		return nil
	})
}

// ReplaceImageAnnotations applies a recalibration result atomically: every
// prior point and rect goes regardless of origin, the fresh detections come
// in as originals, the image counter is reset to the new count and bumped to
// a new version, and the batch counter moves by the delta (clamped at zero).
func (c *Client) ReplaceImageAnnotations(imageID uuid.UUID, points []models.Point, eggCount int) error {
	return c.withTx(func(tx *sql.Tx) error {
		batchID, err := lockCounters(tx, imageID)
		if err != nil {
			return err
		}

		var oldEggs int
		if err := tx.QueryRow(`SELECT total_eggs FROM image_details WHERE image_id = $1`, imageID).Scan(&oldEggs); err != nil {
			return fmt.Errorf("failed to read image counter: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM annotation_points WHERE image_id = $1`, imageID); err != nil {
			return fmt.Errorf("failed to clear points: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM annotation_rects WHERE image_id = $1`, imageID); err != nil {
			return fmt.Errorf("failed to clear rects: %w", err)
		}

		for _, p := range points {
			if _, err := tx.Exec(`
				INSERT INTO annotation_points (image_id, x, y, is_original, is_deleted)
				VALUES ($1, $2, $3, TRUE, FALSE)
			`, imageID, p.X, p.Y); err != nil {
				return fmt.Errorf("failed to insert detection point: %w", err)
			}
		}

		if _, err := tx.Exec(`
			UPDATE image_details
			SET total_eggs = $1, is_processed = TRUE, image_version = image_version + 1, last_update = NOW()
			WHERE image_id = $2
		`, eggCount, imageID); err != nil {
			return fmt.Errorf("failed to update image: %w", err)
		}

		if _, err := tx.Exec(`
			UPDATE batch_details
			SET total_eggs = GREATEST(total_eggs + $1, 0), date_updated = NOW()
			WHERE id = $2
		`, eggCount-oldEggs, batchID); err != nil {
			return fmt.Errorf("failed to update batch counter: %w", err)
		}
		return nil
	})
}

// ImageAnnotations returns the live annotations for the editor: non-deleted
// points and rects plus every grid marker.
func (c *Client) ImageAnnotations(imageID uuid.UUID) ([]models.AnnotationPoint, []models.AnnotationRect, []models.VerifiedGrid, error) {
	points, err := c.queryPoints(`
		SELECT point_id, image_id, x, y, is_original, is_deleted FROM annotation_points
		WHERE image_id = $1 AND is_deleted = FALSE ORDER BY point_id
	`, imageID)
	if err != nil {
		return nil, nil, nil, err
	}

	rects, err := c.queryRects(`
		SELECT rect_id, image_id, x_init, y_init, x_end, y_end, is_original, is_deleted FROM annotation_rects
		WHERE image_id = $1 AND is_deleted = FALSE ORDER BY rect_id
	`, imageID)
	if err != nil {
		return nil, nil, nil, err
	}

	rows, err := c.db.Query(`
		SELECT grid_id, image_id, x, y FROM verified_grids WHERE image_id = $1 ORDER BY grid_id
	`, imageID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to query grids: %w", err)
	}
	defer rows.Close()

	var grids []models.VerifiedGrid
	for rows.Next() {
		var g models.VerifiedGrid
		if err := rows.Scan(&g.ID, &g.ImageID, &g.X, &g.Y); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan grid: %w", err)
		}
		grids = append(grids, g)
	}
	return points, rects, grids, rows.Err()
}

func (c *Client) queryPoints(query string, args ...interface{}) ([]models.AnnotationPoint, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var points []models.AnnotationPoint
	for rows.Next() {
		var p models.AnnotationPoint
		if err := rows.Scan(&p.ID, &p.ImageID, &p.X, &p.Y, &p.IsOriginal, &p.IsDeleted); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (c *Client) queryRects(query string, args ...interface{}) ([]models.AnnotationRect, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rects: %w", err)
	}
	defer rows.Close()

	var rects []models.AnnotationRect
	for rows.Next() {
		var r models.AnnotationRect
		if err := rows.Scan(&r.ID, &r.ImageID, &r.XInit, &r.YInit, &r.XEnd, &r.YEnd, &r.IsOriginal, &r.IsDeleted); err != nil {
			return nil, fmt.Errorf("failed to scan rect: %w", err)
		}
		rects = append(rects, r)
	}
	return rects, rows.Err()
}
