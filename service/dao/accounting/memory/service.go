package memory

import (
	"context"

	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/service/dao"
	daoaccounting "github.com/viant/nucleus/service/dao/accounting"
	"github.com/viant/nucleus/service/dao/criteria"
	"github.com/viant/nucleus/service/dao/store"
)

// Service keeps accounting records in memory, keyed by PID.
type Service struct {
	*store.MemoryStore[int, accounting.Record]
}

var _ dao.Service[int, accounting.Record] = (*Service)(nil)

// Save validates and stores a record.
func (s *Service) Save(ctx context.Context, record *accounting.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.PID <= 0 {
		return dao.ErrInvalidID
	}
	return s.MemoryStore.Save(ctx, record)
}

// Load returns the record of pid.
func (s *Service) Load(ctx context.Context, pid int) (*accounting.Record, error) {
	if pid <= 0 {
		return nil, dao.ErrInvalidID
	}
	return s.MemoryStore.Load(ctx, pid)
}

// List returns the matching records ordered by PID.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*accounting.Record, error) {
	all, err := s.MemoryStore.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*accounting.Record, 0, len(all))
	for _, record := range all {
		if criteria.MatchRecord(record, parameters) {
			out = append(out, record)
		}
	}
	daoaccounting.SortByPID(out)
	return out, nil
}

func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[int, accounting.Record](func(r *accounting.Record) int { return r.PID })}
}
