// Package service implements lead exports: the current filtered and
// ranked view is streamed as CSV into object storage and handed back as a
// presigned download.
package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"trafficpool_backend/internal/adapters/storage"
	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/platform/apperr"
	"trafficpool_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const exportFolder = "exports"

var csvHeader = []string{
	"id", "display_name", "external_handle", "phone", "capture_channel",
	"status", "remark", "friend_count", "battery", "has_active_campaign",
	"recency", "frequency", "monetary", "total", "segment", "priority",
	"is_duplicate", "merged_identities", "pool_ids", "tags", "created_at",
}

// LeadSource supplies the filtered, ranked view to export.
type LeadSource interface {
	QueryAll(ctx context.Context, spec domain.FilterSpec) []domain.Lead
}

// ExportResult describes a completed export.
type ExportResult struct {
	FileKey  string
	Rows     int
	Download *storage.PresignedURL
}

// Service is the exports application service.
type Service struct {
	source  LeadSource
	storage storage.StorageService
	bucket  string
	log     *logger.Logger
	now     func() time.Time
}

// New creates the exports service.
func New(source LeadSource, st storage.StorageService, bucket string, log *logger.Logger) *Service {
	return &Service{
		source:  source,
		storage: st,
		bucket:  bucket,
		log:     log,
		now:     time.Now,
	}
}

// ExportLeads writes the view matching spec to a CSV object and returns a
// presigned download link. The CSV is streamed; the full file is never held
// in memory.
func (s *Service) ExportLeads(ctx context.Context, spec domain.FilterSpec) (ExportResult, error) {
	if s.storage == nil {
		return ExportResult{}, apperr.Internal("object storage is not configured")
	}

	leads := s.source.QueryAll(ctx, spec)
	fileName := fmt.Sprintf("leads_%s.csv", s.now().UTC().Format("20060102T150405"))

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer pw.Close()
		return writeCSV(pw, leads)
	})

	var fileKey string
	g.Go(func() error {
		key, err := s.storage.UploadFile(gctx, s.bucket, exportFolder, fileName, "text/csv", pr, -1)
		if err != nil {
			// Unblock the writer side on upload failure.
			pr.CloseWithError(err)
			return err
		}
		fileKey = key
		return nil
	})

	if err := g.Wait(); err != nil {
		s.log.Error("lead export failed", "error", err)
		return ExportResult{}, apperr.Internal("export upload failed")
	}

	download, err := s.storage.GenerateDownloadURL(ctx, s.bucket, fileKey)
	if err != nil {
		s.log.Error("export download url failed", "fileKey", fileKey, "error", err)
		return ExportResult{}, apperr.Internal("failed to sign export download")
	}

	s.log.Info("lead export complete", "fileKey", fileKey, "rows", len(leads))
	return ExportResult{FileKey: fileKey, Rows: len(leads), Download: download}, nil
}

// Fetch streams a finished export back through the API for callers that
// cannot reach object storage directly. The caller closes the reader.
func (s *Service) Fetch(ctx context.Context, fileKey string) (io.ReadCloser, error) {
	if s.storage == nil {
		return nil, apperr.Internal("object storage is not configured")
	}
	if err := validateExportKey(fileKey); err != nil {
		return nil, err
	}

	rc, err := s.storage.DownloadFile(ctx, s.bucket, fileKey)
	if err != nil {
		s.log.Error("export download failed", "fileKey", fileKey, "error", err)
		return nil, apperr.Internal("failed to fetch export")
	}
	return rc, nil
}

// Delete removes a finished export object.
func (s *Service) Delete(ctx context.Context, fileKey string) error {
	if s.storage == nil {
		return apperr.Internal("object storage is not configured")
	}
	if err := validateExportKey(fileKey); err != nil {
		return err
	}

	if err := s.storage.DeleteObject(ctx, s.bucket, fileKey); err != nil {
		s.log.Error("export deletion failed", "fileKey", fileKey, "error", err)
		return apperr.Internal("failed to delete export")
	}
	s.log.Info("export deleted", "fileKey", fileKey)
	return nil
}

// validateExportKey restricts file keys to the exports folder so the
// endpoints cannot reach arbitrary objects in the bucket.
func validateExportKey(fileKey string) error {
	if !strings.HasPrefix(fileKey, exportFolder+"/") || strings.Contains(fileKey, "..") {
		return apperr.Validation("invalid export file key")
	}
	return nil
}

func writeCSV(w io.Writer, leads []domain.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, l := range leads {
		row := []string{
			l.ID,
			l.DisplayName,
			l.ExternalHandle,
			l.Phone,
			string(l.CaptureChannel),
			string(l.Status),
			l.Remark,
			strconv.Itoa(l.FriendCount),
			strconv.Itoa(l.Battery),
			strconv.FormatBool(l.HasActiveCampaign),
			strconv.Itoa(l.Score.Recency),
			strconv.Itoa(l.Score.Frequency),
			strconv.Itoa(l.Score.Monetary),
			strconv.Itoa(l.Score.Total),
			l.Score.Segment,
			string(l.Score.Priority),
			strconv.FormatBool(l.IsDuplicate),
			strings.Join(l.MergedIdentities, ";"),
			strings.Join(l.PoolIDs, ";"),
			strings.Join(l.Tags, ";"),
			l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
