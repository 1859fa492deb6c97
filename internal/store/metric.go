package store

import (
	"context"

	"github.com/skystorehq/geogw/internal/gwerr"
	"github.com/skystorehq/geogw/internal/model"
)

// RecordMetric persists one observed request (spec §3 Metric, §6
// update_metrics). The stored rows are not read back by any policy.
func (s *Store) RecordMetric(ctx context.Context, m model.Metric) error {
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return gwerr.Internal("update_metrics", "%v", err)
	}
	return nil
}
