package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"egglytics-backend/internal/models"
)

const imageColumns = `image_id, batch_id, image_name, file_path, img_type, model_used, allow_collection, total_eggs, total_hatched, is_processed, is_validated, image_version, date_uploaded, last_update`

func scanImage(row interface{ Scan(...interface{}) error }) (*models.Image, error) {
	var img models.Image
	err := row.Scan(
		&img.ID, &img.BatchID, &img.ImageName, &img.FilePath, &img.ImgType,
		&img.ModelUsed, &img.AllowCollection, &img.TotalEggs, &img.TotalHatched,
		&img.IsProcessed, &img.IsValidated, &img.ImageVersion, &img.DateUploaded, &img.LastUpdate,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// CreateImage inserts the image row before inference is dispatched, so a
// record exists even when the gateway call fails.
func (c *Client) CreateImage(img *models.Image) error {
	err := c.db.QueryRow(`
		INSERT INTO image_details (image_id, batch_id, image_name, file_path, img_type, model_used, allow_collection, total_eggs, total_hatched, is_processed, is_validated, image_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, FALSE, FALSE, 1)
		RETURNING date_uploaded, last_update
	`, img.ID, img.BatchID, img.ImageName, img.FilePath, img.ImgType, img.ModelUsed, img.AllowCollection).
		Scan(&img.DateUploaded, &img.LastUpdate)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

func (c *Client) GetImage(imageID uuid.UUID) (*models.Image, error) {
	img, err := scanImage(c.db.QueryRow(`
		SELECT `+imageColumns+` FROM image_details WHERE image_id = $1
	`, imageID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

func (c *Client) ListBatchImages(batchID uuid.UUID) ([]models.Image, error) {
	rows, err := c.db.Query(`
		SELECT `+imageColumns+` FROM image_details WHERE batch_id = $1 ORDER BY date_uploaded ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch images: %w", err)
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

// MarkImageProcessed records a successful inference pass: the detected egg
// count and the processed flag in one update.
func (c *Client) MarkImageProcessed(imageID uuid.UUID, eggCount int) error {
	_, err := c.db.Exec(`
		UPDATE image_details SET total_eggs = $1, is_processed = TRUE, last_update = NOW() WHERE image_id = $2
	`, eggCount, imageID)
	return err
}

func (c *Client) SetImageProcessed(imageID uuid.UUID, processed bool) error {
	_, err := c.db.Exec(`
		UPDATE image_details SET is_processed = $1, last_update = NOW() WHERE image_id = $2
	`, processed, imageID)
	return err
}

// ValidateImage flips is_validated on first open. One-way: it never resets.
func (c *Client) ValidateImage(imageID uuid.UUID) error {
	res, err := c.db.Exec(`
		UPDATE image_details SET is_validated = TRUE, last_update = NOW()
		WHERE image_id = $1 AND is_validated = FALSE
	`, imageID)
	if err != nil {
		return fmt.Errorf("failed to validate image: %w", err)
	}
	// Zero rows just means it was already validated.
	_ = res
	return nil
}

func (c *Client) RenameImage(imageID uuid.UUID, name string) error {
	res, err := c.db.Exec(`
		UPDATE image_details SET image_name = $1, last_update = NOW() WHERE image_id = $2
	`, name, imageID)
	if err != nil {
		return fmt.Errorf("failed to rename image: %w", err)
	}
	return requireRow(res)
}

func (c *Client) UpdateImageHatched(imageID uuid.UUID, totalHatched int) error {
	res, err := c.db.Exec(`
		UPDATE image_details SET total_hatched = $1, last_update = NOW() WHERE image_id = $2
	`, totalHatched, imageID)
	if err != nil {
		return fmt.Errorf("failed to update hatched count: %w", err)
	}
	return requireRow(res)
}

// DeleteImageResult reports what happened to the owning batch.
type DeleteImageResult struct {
	BatchDeleted bool
	TotalImages  int
	TotalEggs    int
}

// DeleteImage removes the image and its annotations (cascade), subtracts the
// image's eggs from the batch (clamped at zero) and decrements total_images.
// A batch left with no images is deleted with it.
func (c *Client) DeleteImage(imageID uuid.UUID) (*DeleteImageResult, error) {
	var result DeleteImageResult
	err := c.withTx(func(tx *sql.Tx) error {
		var batchID uuid.UUID
		var imageEggs int
		err := tx.QueryRow(`
			SELECT batch_id, total_eggs FROM image_details WHERE image_id = $1 FOR UPDATE
		`, imageID).Scan(&batchID, &imageEggs)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load image: %w", err)
		}

		if _, err := tx.Exec(`SELECT 1 FROM batch_details WHERE id = $1 FOR UPDATE`, batchID); err != nil {
			return fmt.Errorf("failed to lock batch: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM image_details WHERE image_id = $1`, imageID); err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}

		err = tx.QueryRow(`
			UPDATE batch_details
			SET total_images = total_images - 1,
			    total_eggs = GREATEST(total_eggs - $1, 0),
			    date_updated = NOW()
			WHERE id = $2
			RETURNING total_images, total_eggs
		`, imageEggs, batchID).Scan(&result.TotalImages, &result.TotalEggs)
		if err != nil {
			return fmt.Errorf("failed to update batch counters: %w", err)
		}

		if result.TotalImages <= 0 {
			if _, err := tx.Exec(`DELETE FROM batch_details WHERE id = $1`, batchID); err != nil {
				return fmt.Errorf("failed to delete empty batch: %w", err)
			}
			result.BatchDeleted = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
