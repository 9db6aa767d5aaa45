package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"egglytics-backend/internal/models"
)

const batchColumns = `id, batch_name, owner, total_images, total_eggs, total_hatched, is_complete, has_fail_present, created_at, date_updated`

func scanBatch(row interface{ Scan(...interface{}) error }) (*models.Batch, error) {
	var b models.Batch
	err := row.Scan(
		&b.ID, &b.BatchName, &b.Owner, &b.TotalImages, &b.TotalEggs,
		&b.TotalHatched, &b.IsComplete, &b.HasFailPresent, &b.CreatedAt, &b.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBatch inserts the batch row before any worker starts, so status
// polling never sees an unknown batch id.
func (c *Client) CreateBatch(name, owner string, totalImages int) (*models.Batch, error) {
	batch, err := scanBatch(c.db.QueryRow(`
		INSERT INTO batch_details (id, batch_name, owner, total_images, total_eggs, total_hatched, is_complete, has_fail_present)
		VALUES ($1, $2, $3, $4, 0, 0, FALSE, FALSE)
		RETURNING `+batchColumns+`
	`, uuid.New(), name, owner, totalImages))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	return batch, nil
}

func (c *Client) GetBatch(batchID uuid.UUID) (*models.Batch, error) {
	batch, err := scanBatch(c.db.QueryRow(`
		SELECT `+batchColumns+` FROM batch_details WHERE id = $1
	`, batchID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

// ListBatches returns batches newest first, optionally filtered by owner.
func (c *Client) ListBatches(owner string) ([]models.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batch_details ORDER BY date_updated DESC`
	args := []interface{}{}
	if owner != "" {
		query = `SELECT ` + batchColumns + ` FROM batch_details WHERE owner = $1 ORDER BY date_updated DESC`
		args = append(args, owner)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (c *Client) BatchTotals() (*models.BatchTotals, error) {
	var t models.BatchTotals
	err := c.db.QueryRow(`
		SELECT COALESCE(SUM(total_images), 0), COALESCE(SUM(total_eggs), 0) FROM batch_details
	`).Scan(&t.TotalImages, &t.TotalEggs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate batch totals: %w", err)
	}
	return &t, nil
}

// LatestBatch returns the most recently created batch, or ErrNotFound when
// no batch exists yet.
func (c *Client) LatestBatch() (*models.Batch, error) {
	batch, err := scanBatch(c.db.QueryRow(`
		SELECT ` + batchColumns + ` FROM batch_details ORDER BY created_at DESC LIMIT 1
	`))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest batch: %w", err)
	}
	return batch, nil
}

func (c *Client) SetBatchFailure(batchID uuid.UUID) error {
	_, err := c.db.Exec(`
		UPDATE batch_details SET has_fail_present = TRUE, date_updated = NOW() WHERE id = $1
	`, batchID)
	return err
}

// CompleteBatch writes the final totals and the completion flag in one
// update, after the worker has attempted every image.
func (c *Client) CompleteBatch(batchID uuid.UUID, totalEggs, totalHatched int) error {
	_, err := c.db.Exec(`
		UPDATE batch_details
		SET total_eggs = $1, total_hatched = $2, is_complete = TRUE, date_updated = NOW()
		WHERE id = $3
	`, totalEggs, totalHatched, batchID)
	return err
}

func (c *Client) RenameBatch(batchID uuid.UUID, name string) error {
	res, err := c.db.Exec(`
		UPDATE batch_details SET batch_name = $1, date_updated = NOW() WHERE id = $2
	`, name, batchID)
	if err != nil {
		return fmt.Errorf("failed to rename batch: %w", err)
	}
	return requireRow(res)
}

// DeleteBatch removes the batch row; images, points, rects and grids cascade.
func (c *Client) DeleteBatch(batchID uuid.UUID) error {
	res, err := c.db.Exec(`DELETE FROM batch_details WHERE id = $1`, batchID)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
