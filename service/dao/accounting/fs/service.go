package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/service/dao"
	daoaccounting "github.com/viant/nucleus/service/dao/accounting"
	"github.com/viant/nucleus/service/dao/criteria"
)

// Service stores one JSON document per terminated process under baseURL.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ dao.Service[int, accounting.Record] = (*Service)(nil)

// Save persists a record.
func (s *Service) Save(ctx context.Context, record *accounting.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.PID <= 0 {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %d: %w", record.PID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(record.PID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save record %s: %w", URL, err)
	}
	return nil
}

// Load reads the record of pid.
func (s *Service) Load(ctx context.Context, pid int) (*accounting.Record, error) {
	if pid <= 0 {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.recordURL(pid)
	if exists, _ := s.fs.Exists(ctx, URL); !exists {
		return nil, fmt.Errorf("%w: record %d", dao.ErrNotFound, pid)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", URL, err)
	}
	record := &accounting.Record{}
	if err = json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", URL, err)
	}
	return record, nil
}

// Delete removes the record of pid.
func (s *Service) Delete(ctx context.Context, pid int) error {
	if pid <= 0 {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(pid)
	if exists, _ := s.fs.Exists(ctx, URL); !exists {
		return fmt.Errorf("%w: record %d", dao.ErrNotFound, pid)
	}
	return s.fs.Delete(ctx, URL)
}

// List returns the matching records ordered by PID.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*accounting.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	var records []*accounting.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read record %s: %w", object.URL(), err)
		}
		record := &accounting.Record{}
		if err = json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", object.URL(), err)
		}
		if criteria.MatchRecord(record, parameters) {
			records = append(records, record)
		}
	}
	daoaccounting.SortByPID(records)
	return records, nil
}

func (s *Service) recordURL(pid int) string {
	return url.Join(s.baseURL, fmt.Sprintf("%d.json", pid))
}

// New creates a store rooted at baseURL, creating it when missing.
func New(ctx context.Context, fs afs.Service, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("accounting URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	baseURL = url.Normalize(baseURL, file.Scheme)
	if exists, _ := fs.Exists(ctx, baseURL); !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create accounting directory: %w", err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs}, nil
}
