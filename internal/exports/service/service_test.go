package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"trafficpool_backend/internal/adapters/storage"
	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/platform/apperr"
	"trafficpool_backend/platform/logger"
)

func TestWriteCSV_HeaderAndRows(t *testing.T) {
	leads := []domain.Lead{
		{
			ID:             "u1",
			DisplayName:    "Chen Wei",
			Phone:          "+8613800138000",
			CaptureChannel: domain.ChannelPoster,
			Status:         domain.StatusPending,
			FriendCount:    120,
			Battery:        80,
			Score: domain.RFMScore{
				Recency: 5, Frequency: 4, Monetary: 3, Total: 12,
				Segment: "High Value", Priority: domain.PriorityHigh,
			},
			PoolIDs:   []string{"pool-a", "pool-b"},
			Tags:      []string{"vip"},
			CreatedAt: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
		},
		{ID: "u2", DisplayName: "Li Na", Status: domain.StatusLost},
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, leads); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if records[0][0] != "id" || len(records[0]) != len(csvHeader) {
		t.Fatalf("unexpected header %v", records[0])
	}

	row := records[1]
	if row[0] != "u1" || row[1] != "Chen Wei" {
		t.Fatalf("unexpected first row %v", row)
	}
	if row[14] != "High Value" || row[15] != "high" {
		t.Fatalf("expected segment and priority columns, got %q/%q", row[14], row[15])
	}
	if row[18] != "pool-a;pool-b" {
		t.Fatalf("expected joined pool ids, got %q", row[18])
	}
	if row[20] != "2026-01-10T08:00:00Z" {
		t.Fatalf("expected RFC3339 created_at, got %q", row[20])
	}
}

func TestWriteCSV_EmptyViewStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected header only, got %d records", len(records))
	}
}

// stubStorage records calls so the export file operations can be tested
// without a live object store.
type stubStorage struct {
	objects map[string]string
	deleted []string
}

func newStubStorage() *stubStorage {
	return &stubStorage{objects: map[string]string{}}
}

func (s *stubStorage) UploadFile(_ context.Context, _, folder, fileName, _ string, reader io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	key := folder + "/" + fileName
	s.objects[key] = string(data)
	return key, nil
}

func (s *stubStorage) GenerateDownloadURL(_ context.Context, _, fileKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://example.test/" + fileKey, FileKey: fileKey}, nil
}

func (s *stubStorage) DownloadFile(_ context.Context, _, fileKey string) (io.ReadCloser, error) {
	data, ok := s.objects[fileKey]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (s *stubStorage) DeleteObject(_ context.Context, _, fileKey string) error {
	delete(s.objects, fileKey)
	s.deleted = append(s.deleted, fileKey)
	return nil
}

func (s *stubStorage) EnsureBucketExists(context.Context, string) error { return nil }

type staticSource struct{ leads []domain.Lead }

func (s staticSource) QueryAll(context.Context, domain.FilterSpec) []domain.Lead { return s.leads }

func TestFetchAndDelete_RoundTripThroughStorage(t *testing.T) {
	st := newStubStorage()
	svc := New(staticSource{leads: []domain.Lead{{ID: "u1", DisplayName: "Chen Wei"}}}, st, "lead-exports", logger.New("development"))

	result, err := svc.ExportLeads(context.Background(), domain.FilterSpec{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	rc, err := svc.Fetch(context.Background(), result.FileKey)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "u1") {
		t.Fatalf("fetched CSV must contain the exported lead, got %q", data)
	}

	if err := svc.Delete(context.Background(), result.FileKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(st.deleted) != 1 || st.deleted[0] != result.FileKey {
		t.Fatalf("expected deletion of %s, got %v", result.FileKey, st.deleted)
	}
}

func TestFetch_RejectsKeysOutsideExportsFolder(t *testing.T) {
	svc := New(staticSource{}, newStubStorage(), "lead-exports", logger.New("development"))

	for _, key := range []string{"secrets/creds.txt", "exports/../secrets", ""} {
		if _, err := svc.Fetch(context.Background(), key); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("key %q: expected validation error, got %v", key, err)
		}
		if err := svc.Delete(context.Background(), key); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("key %q: expected validation error on delete, got %v", key, err)
		}
	}
}
