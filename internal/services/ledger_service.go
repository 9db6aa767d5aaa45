package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"egglytics-backend/internal/models"
)

// LedgerStore is the slice of the database the correction endpoints drive.
// Every mutation is atomic with its paired counter updates.
type LedgerStore interface {
	AddPoint(imageID uuid.UUID, x, y int) (*models.AnnotationPoint, error)
	RemovePoint(imageID uuid.UUID, x, y int) error
	AddRect(imageID uuid.UUID, x1, y1, x2, y2 int) (*models.AnnotationRect, error)
	RemoveRect(imageID uuid.UUID, x1, y1, x2, y2 int) error
	ToggleGrid(imageID uuid.UUID, x, y int) (bool, error)
	GetImage(imageID uuid.UUID) (*models.Image, error)
	ValidateImage(imageID uuid.UUID) error
	ImageAnnotations(imageID uuid.UUID) ([]models.AnnotationPoint, []models.AnnotationRect, []models.VerifiedGrid, error)
	RenameImage(imageID uuid.UUID, name string) error
	UpdateImageHatched(imageID uuid.UUID, totalHatched int) error
}

// LedgerService validates correction requests and forwards them to the
// annotation ledger.
type LedgerService struct {
	store LedgerStore
}

func NewLedgerService(store LedgerStore) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) AddPoint(imageID uuid.UUID, x, y int) (*models.AnnotationPoint, error) {
	if err := checkCoords(x, y); err != nil {
		return nil, err
	}
	return s.store.AddPoint(imageID, x, y)
}

func (s *LedgerService) RemovePoint(imageID uuid.UUID, x, y int) error {
	if err := checkCoords(x, y); err != nil {
		return err
	}
	return s.store.RemovePoint(imageID, x, y)
}

func (s *LedgerService) AddRect(imageID uuid.UUID, x1, y1, x2, y2 int) (*models.AnnotationRect, error) {
	if err := checkCoords(x1, y1); err != nil {
		return nil, err
	}
	if err := checkCoords(x2, y2); err != nil {
		return nil, err
	}
	return s.store.AddRect(imageID, x1, y1, x2, y2)
}

func (s *LedgerService) RemoveRect(imageID uuid.UUID, x1, y1, x2, y2 int) error {
	if err := checkCoords(x1, y1); err != nil {
		return err
	}
	if err := checkCoords(x2, y2); err != nil {
		return err
	}
	return s.store.RemoveRect(imageID, x1, y1, x2, y2)
}

func (s *LedgerService) ToggleGrid(imageID uuid.UUID, x, y int) (bool, error) {
	if err := checkCoords(x, y); err != nil {
		return false, err
	}
	return s.store.ToggleGrid(imageID, x, y)
}

// Annotations returns the editor payload for an image and flips
// is_validated the first time a human opens it. The flip is one-way.
func (s *LedgerService) Annotations(imageID uuid.UUID) (*models.Image, []models.AnnotationPoint, []models.AnnotationRect, []models.VerifiedGrid, error) {
	img, err := s.store.GetImage(imageID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if !img.IsValidated {
		if err := s.store.ValidateImage(imageID); err != nil {
			return nil, nil, nil, nil, err
		}
		img.IsValidated = true
	}

	points, rects, grids, err := s.store.ImageAnnotations(imageID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return img, points, rects, grids, nil
}

func (s *LedgerService) ImageTotalEggs(imageID uuid.UUID) (int, error) {
	img, err := s.store.GetImage(imageID)
	if err != nil {
		return 0, err
	}
	return img.TotalEggs, nil
}

func (s *LedgerService) RenameImage(imageID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: image name cannot be empty", ErrValidation)
	}
	return s.store.RenameImage(imageID, name)
}

func (s *LedgerService) UpdateHatched(imageID uuid.UUID, totalHatched int) error {
	if totalHatched < 0 {
		return fmt.Errorf("%w: hatched count cannot be negative", ErrValidation)
	}
	return s.store.UpdateImageHatched(imageID, totalHatched)
}

func checkCoords(x, y int) error {
	if x < 0 || y < 0 {
		return fmt.Errorf("%w: coordinates must be non-negative", ErrValidation)
	}
	return nil
}
