package database

import (
	"fmt"
	"log"
	"time"
)

// The stored counters are incrementally maintained aggregates. Every write
// path pairs its counter update with the ledger mutation, but the verifier
// still recomputes them from the counted-egg formula on an interval and
// repairs any drift, so a missed call site shows up as a log line instead of
// a silently wrong dashboard.

// VerifyCounters recomputes image and batch total_eggs from the ledger and
// fixes rows that disagree. Returns how many rows were repaired.
func (c *Client) VerifyCounters() (int, error) {
	imageRes, err := c.db.Exec(`
		UPDATE image_details i
		SET total_eggs = counted.n
		FROM (
			SELECT i2.image_id,
			       COALESCE(p.n, 0) + COALESCE(r.n, 0) AS n
			FROM image_details i2
			LEFT JOIN (
				SELECT image_id, COUNT(*) AS n FROM annotation_points
				WHERE is_deleted = FALSE GROUP BY image_id
			) p ON p.image_id = i2.image_id
			LEFT JOIN (
				SELECT image_id, COUNT(*) AS n FROM annotation_rects
				WHERE is_deleted = FALSE GROUP BY image_id
			) r ON r.image_id = i2.image_id
			WHERE i2.is_processed = TRUE
		) counted
		WHERE counted.image_id = i.image_id AND i.total_eggs <> counted.n
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to verify image counters: %w", err)
	}

	batchRes, err := c.db.Exec(`
		UPDATE batch_details b
		SET total_eggs = summed.n
		FROM (
			SELECT b2.id, COALESCE(SUM(i.total_eggs), 0) AS n
			FROM batch_details b2
			LEFT JOIN image_details i ON i.batch_id = b2.id
			WHERE b2.is_complete = TRUE
			GROUP BY b2.id
		) summed
		WHERE summed.id = b.id AND b.total_eggs <> summed.n
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to verify batch counters: %w", err)
	}

	images, _ := imageRes.RowsAffected()
	batches, _ := batchRes.RowsAffected()
	return int(images + batches), nil
}

// RunCounterVerifier repairs counter drift on an interval until stop closes.
func RunCounterVerifier(c *Client, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			repaired, err := c.VerifyCounters()
			if err != nil {
				log.Printf("counter verifier: %v", err)
				continue
			}
			if repaired > 0 {
				log.Printf("counter verifier repaired %d drifted rows", repaired)
			}
		case <-stop:
			return
		}
	}
}
