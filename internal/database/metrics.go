package database

import (
	"fmt"

	"egglytics-backend/internal/models"
)

// ModelNames lists the distinct inference model identifiers seen so far.
func (c *Client) ModelNames() ([]string, error) {
	rows, err := c.db.Query(`SELECT DISTINCT model_used FROM image_details ORDER BY model_used`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan model name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ModelTally gathers the raw point classification for one model over its
// validated images: TP/FP/FN totals plus the per-image kept/added split the
// MAE calculation needs.
func (c *Client) ModelTally(model string) (*models.ModelTally, error) {
	tally := models.ModelTally{Model: model}

	err := c.db.QueryRow(`
		SELECT COUNT(DISTINCT i.image_id),
		       COUNT(p.point_id) FILTER (WHERE p.is_original AND NOT p.is_deleted),
		       COUNT(p.point_id) FILTER (WHERE p.is_original AND p.is_deleted),
		       COUNT(p.point_id) FILTER (WHERE NOT p.is_original)
		FROM image_details i
		LEFT JOIN annotation_points p ON p.image_id = i.image_id
		WHERE i.is_validated = TRUE AND i.model_used = $1
	`, model).Scan(&tally.TotalImages, &tally.TP, &tally.FP, &tally.FN)
	if err != nil {
		return nil, fmt.Errorf("failed to tally model %s: %w", model, err)
	}

	rows, err := c.db.Query(`
		SELECT COUNT(p.point_id) FILTER (WHERE p.is_original AND NOT p.is_deleted),
		       COUNT(p.point_id) FILTER (WHERE NOT p.is_original)
		FROM image_details i
		LEFT JOIN annotation_points p ON p.image_id = i.image_id
		WHERE i.is_validated = TRUE AND i.model_used = $1
		GROUP BY i.image_id
	`, model)
	if err != nil {
		return nil, fmt.Errorf("failed to tally images for model %s: %w", model, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.ImageTally
		if err := rows.Scan(&it.Kept, &it.Added); err != nil {
			return nil, fmt.Errorf("failed to scan image tally: %w", err)
		}
		tally.Images = append(tally.Images, it)
	}
	return &tally, rows.Err()
}
