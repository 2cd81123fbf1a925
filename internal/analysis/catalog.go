package analysis

import (
	"context"

	"github.com/yasi-python/censtau/pkg/dataset"
	"github.com/yasi-python/censtau/pkg/metrics"
	"github.com/yasi-python/censtau/pkg/storage"
)

func (s *Service) ListDatasets() ([]storage.Summary, error) {
	if s.db == nil {
		return nil, ErrNoStore
	}
	return s.db.ListDatasets()
}

func (s *Service) GetDataset(name string) (*dataset.Dataset, error) {
	if s.db == nil {
		return nil, ErrNoStore
	}
	rec, err := s.db.GetDataset(name)
	if err != nil {
		return nil, err
	}
	return &rec.Dataset, nil
}

func (s *Service) PutDataset(ds dataset.Dataset) error {
	if s.db == nil {
		return ErrNoStore
	}
	if err := s.checkSize(&ds); err != nil {
		return err
	}
	if err := s.db.PutDataset(ds); err != nil {
		return err
	}
	s.log.Info("dataset_stored", "name", ds.Name, "n", ds.Len())
	s.refreshGauge()
	return nil
}

func (s *Service) DeleteDataset(name string) error {
	if s.db == nil {
		return ErrNoStore
	}
	if err := s.db.DeleteDataset(name); err != nil {
		return err
	}
	s.log.Info("dataset_deleted", "name", name)
	s.refreshGauge()
	return nil
}

// ExportDataset writes a stored dataset to dir as JSON.
func (s *Service) ExportDataset(name, dir string) (string, error) {
	ds, err := s.GetDataset(name)
	if err != nil {
		return "", err
	}
	return s.db.SnapshotDataset(*ds, dir)
}

// AnalyzeStored runs Interval on a stored dataset.
func (s *Service) AnalyzeStored(ctx context.Context, name string, req IntervalRequest) (*Report, error) {
	ds, err := s.GetDataset(name)
	if err != nil {
		return nil, err
	}
	return s.Interval(ctx, ds, req)
}

func (s *Service) refreshGauge() {
	n, err := s.db.Count()
	if err != nil {
		s.log.Warn("dataset_count_failed", "err", err)
		return
	}
	metrics.StoredDatasets.Set(float64(n))
}
