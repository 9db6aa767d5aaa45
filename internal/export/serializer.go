// Package export projects images and their annotations into labeled
// dataset archives. Soft-deleted annotations never reach a dataset; only
// kept detections and human additions do.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strconv"
	"time"

	"egglytics-backend/internal/database"
	"egglytics-backend/internal/storage"
)

var (
	// ErrNoData is returned when the filter selects no images. No partial
	// archive is ever produced.
	ErrNoData = errors.New("no data to export")

	ErrUnknownFormat = errors.New("unknown export format")
)

const (
	FormatCustom = "custom"
	FormatYOLO   = "yolo"
	FormatCOCO   = "coco"
)

// Points have no extent, so dataset formats that need boxes get a synthetic
// fixed-size box centered on the point.
const pointBoxSize = 10

type Result struct {
	Filename    string
	DownloadURL string
}

type Serializer struct {
	db    *database.Client
	blobs storage.BlobStore
}

func NewSerializer(db *database.Client, blobs storage.BlobStore) *Serializer {
	return &Serializer{db: db, blobs: blobs}
}

// Export builds a dataset archive for the filtered images, stores it under
// exports/ and returns its reference. Missing source files fail the whole
// export.
func (s *Serializer) Export(filter database.ExportFilter, format string) (*Result, error) {
	if format != FormatCustom && format != FormatYOLO && format != FormatCOCO {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	images, err := s.db.SelectExportImages(filter)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoData
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	coco := newCocoBuilder()

	for i, img := range images {
		data, err := s.blobs.Get(img.FilePath)
		if err != nil {
			return nil, fmt.Errorf("missing source file for %s: %w", img.ImageName, err)
		}

		w, err := archive.Create("images/" + img.ImageName)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", img.ImageName, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", img.ImageName, err)
		}

		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode dimensions of %s: %w", img.ImageName, err)
		}

		points, rects, err := s.db.CountedAnnotations(img.ID)
		if err != nil {
			return nil, err
		}

		switch format {
		case FormatCustom:
			entry, err := json.MarshalIndent(customAnnotations(points, rects), "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to encode annotations for %s: %w", img.ImageName, err)
			}
			if err := writeArchiveFile(archive, "annotations/"+baseName(img.ImageName)+".json", entry); err != nil {
				return nil, err
			}
		case FormatYOLO:
			labels := yoloLabels(points, rects, cfg.Width, cfg.Height)
			if err := writeArchiveFile(archive, "labels/"+baseName(img.ImageName)+".txt", []byte(labels)); err != nil {
				return nil, err
			}
		case FormatCOCO:
			coco.addImage(i+1, img.ImageName, cfg.Width, cfg.Height, points, rects)
		}
	}

	if format == FormatCOCO {
		instances, err := json.MarshalIndent(coco.output(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode coco instances: %w", err)
		}
		if err := writeArchiveFile(archive, "annotations/instances.json", instances); err != nil {
			return nil, err
		}
	}

	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return s.persist(fmt.Sprintf("export_%s_%s.zip", filter.Model, time.Now().Format("20060102_150405")), buf.Bytes())
}

// ExportCSV writes one row per selected image: name, upload date, raw point
// count and the hatched tally.
func (s *Serializer) ExportCSV(filter database.ExportFilter) (*Result, error) {
	images, err := s.db.SelectExportImages(filter)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoData
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"ImageName", "DATE", "total_Eggs", "Total_HATCHED"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, img := range images {
		pointCount, err := s.db.PointCount(img.ID)
		if err != nil {
			return nil, err
		}
		row := []string{
			img.ImageName,
			img.DateUploaded.Format("2006-01-02"),
			strconv.Itoa(pointCount),
			strconv.Itoa(img.TotalHatched),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return s.persist(fmt.Sprintf("export_%s_%s.csv", filter.Model, time.Now().Format("20060102_150405")), buf.Bytes())
}

func (s *Serializer) persist(filename string, data []byte) (*Result, error) {
	key := "exports/" + filename
	if err := s.blobs.Put(key, data); err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}
	return &Result{
		Filename:    filename,
		DownloadURL: s.blobs.PublicURL(key),
	}, nil
}

// Counts summarizes what the current filter would export.
func (s *Serializer) Counts(filter database.ExportFilter) (images, points, rects int, err error) {
	return s.db.ExportCounts(filter)
}

// DateRange returns the upload-date span of a model's images.
func (s *Serializer) DateRange(model string) (time.Time, time.Time, error) {
	return s.db.ModelDateRange(model)
}

func writeArchiveFile(archive *zip.Writer, name string, data []byte) error {
	w, err := archive.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func baseName(filename string) string {
	return filename[:len(filename)-len(path.Ext(filename))]
}
