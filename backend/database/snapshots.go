package database

import (
	"context"
	"errors"
	"time"

	"github.com/PhilHem/go-dashboard-shell/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotStore keeps keyed state snapshots in the snapshots table.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Get returns the data stored under key. The bool is false when nothing is stored.
func (s *SnapshotStore) Get(ctx context.Context, key string) (string, bool, error) {
	var snap models.Snapshot
	err := s.db.WithContext(ctx).Where("id = ?", key).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return snap.Data, true, nil
}

// Put replaces the data stored under key.
func (s *SnapshotStore) Put(ctx context.Context, key, data string) error {
	snap := models.Snapshot{ID: key, Data: data, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&snap).Error
}

// Delete removes the snapshot stored under key, if any.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("id = ?", key).Delete(&models.Snapshot{}).Error
}

// PruneBefore removes snapshots last written before cutoff.
func (s *SnapshotStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.Snapshot{})
	return res.RowsAffected, res.Error
}
