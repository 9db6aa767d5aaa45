package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"egglytics-backend/internal/inference"
	"egglytics-backend/internal/models"
	"egglytics-backend/internal/realtime"
	"egglytics-backend/internal/storage"
	"egglytics-backend/internal/tasks"
)

// ErrValidation marks caller mistakes: empty names, bad coordinates,
// recalibrating an unprocessed image. No state is mutated when it is
// returned.
var ErrValidation = errors.New("validation error")

// BatchStore is the slice of the database the coordinator drives.
type BatchStore interface {
	CreateBatch(name, owner string, totalImages int) (*models.Batch, error)
	SetBatchFailure(batchID uuid.UUID) error
	CompleteBatch(batchID uuid.UUID, totalEggs, totalHatched int) error
	CreateImage(img *models.Image) error
	MarkImageProcessed(imageID uuid.UUID, eggCount int) error
	SetImageProcessed(imageID uuid.UUID, processed bool) error
	InsertOriginalPoints(imageID uuid.UUID, points []models.Point) error
	ReplaceImageAnnotations(imageID uuid.UUID, points []models.Point, eggCount int) error
	GetImage(imageID uuid.UUID) (*models.Image, error)
}

// UploadFile is one file of an upload batch, read fully into memory before
// the background worker starts so the request can return immediately.
type UploadFile struct {
	Name  string
	Data  []byte
	Model string
	Mode  string
	Share bool
}

// BatchService owns the batch lifecycle: it creates the batch record,
// launches one background worker per batch, and aggregates per-image
// outcomes into the batch totals and failure flag.
type BatchService struct {
	store     BatchStore
	blobs     storage.BlobStore
	detectors *inference.Registry
	runner    tasks.Runner
	events    *realtime.Publisher
}

func NewBatchService(store BatchStore, blobs storage.BlobStore, detectors *inference.Registry, runner tasks.Runner, events *realtime.Publisher) *BatchService {
	return &BatchService{
		store:     store,
		blobs:     blobs,
		detectors: detectors,
		runner:    runner,
		events:    events,
	}
}

// CreateBatch inserts the batch row up front so status polling finds it
// before the first image is touched. The name keys on upload time and
// owner, matching the derived image filenames.
func (s *BatchService) CreateBatch(owner string, fileCount int) (*models.Batch, error) {
	if fileCount == 0 {
		return nil, fmt.Errorf("%w: no files in upload", ErrValidation)
	}
	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), owner)
	return s.store.CreateBatch(name, owner, fileCount)
}

// StartProcessing launches the batch worker and returns immediately.
func (s *BatchService) StartProcessing(batch *models.Batch, files []UploadFile) {
	s.runner.Go("process-batch-"+batch.ID.String(), func() {
		s.processBatch(batch, files)
	})
	s.events.PublishBatchEvent(batch.ID, "processing_started",
		realtime.ProcessingStartedPayload(batch.ID, len(files)))
}

// processBatch handles the batch's images strictly in caller order, one
// gateway call at a time. A failed image never aborts the batch: it is
// recorded as processed with zero detections and the batch carries a
// failure flag.
func (s *BatchService) processBatch(batch *models.Batch, files []UploadFile) {
	totalEggs := 0
	totalHatched := 0

	for i, file := range files {
		imageName := fmt.Sprintf("image_%s_%d.jpg", batch.BatchName, i)
		img := &models.Image{
			ID:              uuid.New(),
			BatchID:         batch.ID,
			ImageName:       imageName,
			FilePath:        "uploads/" + imageName,
			ImgType:         file.Mode,
			ModelUsed:       file.Model,
			AllowCollection: file.Share,
		}
		// The image row exists before inference is dispatched, so a record
		// remains even when the gateway call fails.
		if err := s.store.CreateImage(img); err != nil {
			log.Printf("batch %s: failed to create image record: %v", batch.ID, err)
			s.flagFailure(batch.ID)
			continue
		}

		eggCount, err := s.processImage(img, file)
		if err != nil {
			log.Printf("batch %s: image %s failed: %v", batch.ID, img.ImageName, err)
			s.flagFailure(batch.ID)
			// Failed images count as processed with zero detections.
			if err := s.store.MarkImageProcessed(img.ID, 0); err != nil {
				log.Printf("batch %s: failed to mark image processed: %v", batch.ID, err)
			}
			s.events.PublishBatchEvent(batch.ID, "image_processed",
				realtime.ImageProcessedPayload(batch.ID, img.ID, 0, true))
			continue
		}

		totalEggs += eggCount
		s.events.PublishBatchEvent(batch.ID, "image_processed",
			realtime.ImageProcessedPayload(batch.ID, img.ID, eggCount, false))
	}

	if err := s.store.CompleteBatch(batch.ID, totalEggs, totalHatched); err != nil {
		log.Printf("batch %s: failed to finalize: %v", batch.ID, err)
		return
	}
	s.events.PublishBatchEvent(batch.ID, "batch_completed",
		realtime.BatchCompletedPayload(batch.ID, totalEggs, false))
}

func (s *BatchService) flagFailure(batchID uuid.UUID) {
	if err := s.store.SetBatchFailure(batchID); err != nil {
		log.Printf("batch %s: failed to record failure flag: %v", batchID, err)
	}
}

func (s *BatchService) processImage(img *models.Image, file UploadFile) (int, error) {
	detector, err := s.detectors.Lookup(img.ModelUsed)
	if err != nil {
		return 0, err
	}

	detection, err := detector.Detect(inference.DetectRequest{
		Data:     file.Data,
		Filename: file.Name,
		Mode:     file.Mode,
	})
	if err != nil {
		return 0, err
	}

	if err := s.store.MarkImageProcessed(img.ID, detection.EggCount); err != nil {
		return 0, fmt.Errorf("failed to record result: %w", err)
	}

	// Store the rendered result, or the original bytes when the backend
	// returns none, so the editor always has something to draw on.
	resultImage := detection.FinalImage
	if len(resultImage) == 0 {
		resultImage = file.Data
	}
	if err := s.blobs.Put(img.FilePath, resultImage); err != nil {
		return 0, fmt.Errorf("failed to store result image: %w", err)
	}

	if err := s.store.InsertOriginalPoints(img.ID, detection.Points); err != nil {
		return 0, fmt.Errorf("failed to store detections: %w", err)
	}

	return detection.EggCount, nil
}

// Recalibrate re-runs detection on a stored image in its own background
// task. The caller must wait for the image's first processing pass:
// recalibrating an unprocessed image is rejected, which keeps the task from
// racing an in-flight batch worker.
func (s *BatchService) Recalibrate(imageID uuid.UUID, avgPixels float64) error {
	img, err := s.store.GetImage(imageID)
	if err != nil {
		return err
	}
	if !img.IsProcessed {
		return fmt.Errorf("%w: image is still processing", ErrValidation)
	}

	s.runner.Go("recalibrate-"+imageID.String(), func() {
		s.recalibrate(img, avgPixels)
	})
	return nil
}

func (s *BatchService) recalibrate(img *models.Image, avgPixels float64) {
	// is_processed drops while the gateway call is in flight; a stuck false
	// with no activity is the caller's timeout signal.
	if err := s.store.SetImageProcessed(img.ID, false); err != nil {
		log.Printf("recalibrate %s: failed to clear processed flag: %v", img.ID, err)
		return
	}

	detection, err := s.runDetection(img, avgPixels)
	if err != nil {
		log.Printf("recalibrate %s: %v", img.ID, err)
		// Prior annotations stay untouched on gateway failure.
		if err := s.store.SetImageProcessed(img.ID, true); err != nil {
			log.Printf("recalibrate %s: failed to restore processed flag: %v", img.ID, err)
		}
		s.events.PublishBatchEvent(img.BatchID, "recalibration_failed",
			realtime.RecalibrationFailedPayload(img.ID, err.Error()))
		return
	}

	if len(detection.FinalImage) > 0 {
		if err := s.blobs.Put(img.FilePath, detection.FinalImage); err != nil {
			log.Printf("recalibrate %s: failed to store result image: %v", img.ID, err)
		}
	}

	// Replaces every prior point, resets the image counter, adjusts the
	// batch by the delta and bumps image_version, all in one unit.
	if err := s.store.ReplaceImageAnnotations(img.ID, detection.Points, detection.EggCount); err != nil {
		log.Printf("recalibrate %s: failed to apply result: %v", img.ID, err)
		return
	}

	s.events.PublishBatchEvent(img.BatchID, "recalibrated",
		realtime.RecalibratedPayload(img.ID, detection.EggCount))
}

func (s *BatchService) runDetection(img *models.Image, avgPixels float64) (*inference.Detection, error) {
	data, err := s.blobs.Get(img.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored image: %w", err)
	}

	detector, err := s.detectors.Lookup(img.ModelUsed)
	if err != nil {
		return nil, err
	}

	return detector.Recalibrate(inference.DetectRequest{
		Data:      data,
		Filename:  img.ImageName,
		Mode:      img.ImgType,
		AvgPixels: avgPixels,
	})
}
