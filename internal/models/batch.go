package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch is one user-initiated upload of N images, processed and tracked as a
// unit. Counters are materialized aggregates over the annotation ledger; the
// counted-egg formula in the ledger package is the source of truth.
type Batch struct {
	ID             uuid.UUID
	BatchName      string
	Owner          string
	TotalImages    int
	TotalEggs      int
	TotalHatched   int
	IsComplete     bool
	HasFailPresent bool
	CreatedAt      time.Time
	DateUpdated    time.Time
}

type Image struct {
	ID              uuid.UUID
	BatchID         uuid.UUID
	ImageName       string
	FilePath        string
	ImgType         string
	ModelUsed       string
	AllowCollection bool
	TotalEggs       int
	TotalHatched    int
	IsProcessed     bool
	IsValidated     bool
	ImageVersion    int
	DateUploaded    time.Time
	LastUpdate      time.Time
}

const (
	ImgTypeMicro = "micro"
	ImgTypeMacro = "macro"
)

// BatchTotals aggregates counters across every batch, for the listing header.
type BatchTotals struct {
	TotalImages int
	TotalEggs   int
}
