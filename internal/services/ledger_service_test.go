package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"egglytics-backend/internal/models"
	"egglytics-backend/internal/services"
)

type fakeLedgerStore struct {
	images    map[uuid.UUID]*models.Image
	points    map[uuid.UUID][]models.AnnotationPoint
	validated map[uuid.UUID]int
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{
		images:    make(map[uuid.UUID]*models.Image),
		points:    make(map[uuid.UUID][]models.AnnotationPoint),
		validated: make(map[uuid.UUID]int),
	}
}

func (s *fakeLedgerStore) AddPoint(imageID uuid.UUID, x, y int) (*models.AnnotationPoint, error) {
	p := models.AnnotationPoint{ID: int64(len(s.points[imageID]) + 1), ImageID: imageID, X: x, Y: y}
	s.points[imageID] = append(s.points[imageID], p)
	s.images[imageID].TotalEggs++
	return &p, nil
}

func (s *fakeLedgerStore) RemovePoint(imageID uuid.UUID, x, y int) error {
	s.images[imageID].TotalEggs--
	return nil
}

func (s *fakeLedgerStore) AddRect(imageID uuid.UUID, x1, y1, x2, y2 int) (*models.AnnotationRect, error) {
	xi, yi, xe, ye := models.NormalizeRect(x1, y1, x2, y2)
	s.images[imageID].TotalEggs++
	return &models.AnnotationRect{ImageID: imageID, XInit: xi, YInit: yi, XEnd: xe, YEnd: ye}, nil
}

func (s *fakeLedgerStore) RemoveRect(imageID uuid.UUID, x1, y1, x2, y2 int) error {
	s.images[imageID].TotalEggs--
	return nil
}

func (s *fakeLedgerStore) ToggleGrid(imageID uuid.UUID, x, y int) (bool, error) {
	return true, nil
}

func (s *fakeLedgerStore) GetImage(imageID uuid.UUID) (*models.Image, error) {
	copied := *s.images[imageID]
	return &copied, nil
}

func (s *fakeLedgerStore) ValidateImage(imageID uuid.UUID) error {
	s.images[imageID].IsValidated = true
	s.validated[imageID]++
	return nil
}

func (s *fakeLedgerStore) ImageAnnotations(imageID uuid.UUID) ([]models.AnnotationPoint, []models.AnnotationRect, []models.VerifiedGrid, error) {
	return s.points[imageID], nil, nil, nil
}

func (s *fakeLedgerStore) RenameImage(imageID uuid.UUID, name string) error {
	s.images[imageID].ImageName = name
	return nil
}

func (s *fakeLedgerStore) UpdateImageHatched(imageID uuid.UUID, totalHatched int) error {
	s.images[imageID].TotalHatched = totalHatched
	return nil
}

func newLedgerFixture() (*services.LedgerService, *fakeLedgerStore, uuid.UUID) {
	store := newFakeLedgerStore()
	imageID := uuid.New()
	store.images[imageID] = &models.Image{ID: imageID, ImageName: "a.jpg", TotalEggs: 2}
	return services.NewLedgerService(store), store, imageID
}

func TestLedgerService_RejectsNegativeCoordinates(t *testing.T) {
	svc, _, imageID := newLedgerFixture()

	_, err := svc.AddPoint(imageID, -1, 5)
	assert.ErrorIs(t, err, services.ErrValidation)

	err = svc.RemovePoint(imageID, 5, -1)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.AddRect(imageID, 0, 0, -3, 10)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.ToggleGrid(imageID, -2, 0)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestLedgerService_AddPoint(t *testing.T) {
	svc, store, imageID := newLedgerFixture()

	p, err := svc.AddPoint(imageID, 10, 20)
	assert.NoError(t, err)
	assert.Equal(t, 10, p.X)
	assert.Equal(t, 3, store.images[imageID].TotalEggs)
}

func TestLedgerService_Annotations_ValidatesOnce(t *testing.T) {
	svc, store, imageID := newLedgerFixture()

	img, _, _, _, err := svc.Annotations(imageID)
	assert.NoError(t, err)
	assert.True(t, img.IsValidated)
	assert.Equal(t, 1, store.validated[imageID])

	// Opening the editor again does not flip the flag a second time.
	_, _, _, _, err = svc.Annotations(imageID)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.validated[imageID])
}

func TestLedgerService_RenameImage_RejectsEmpty(t *testing.T) {
	svc, _, imageID := newLedgerFixture()

	err := svc.RenameImage(imageID, "   ")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestLedgerService_RenameImage_TrimsWhitespace(t *testing.T) {
	svc, store, imageID := newLedgerFixture()

	assert.NoError(t, svc.RenameImage(imageID, "  renamed.jpg  "))
	assert.Equal(t, "renamed.jpg", store.images[imageID].ImageName)
}

func TestLedgerService_UpdateHatched_RejectsNegative(t *testing.T) {
	svc, _, imageID := newLedgerFixture()

	err := svc.UpdateHatched(imageID, -1)
	assert.ErrorIs(t, err, services.ErrValidation)
}
