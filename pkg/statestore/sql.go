package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/attos/attos-backend/pkg/db/models"
)

// SQLStore keeps payloads in the state_entries table through gorm.
type SQLStore struct {
	db        *gorm.DB
	namespace string
	now       func() time.Time
}

func NewSQLStore(db *gorm.DB, namespace string) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("gorm db required")
	}
	return &SQLStore{db: db, namespace: namespace, now: time.Now}, nil
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var entry models.StateEntry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND state_key = ?", s.namespace, key).
		Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load state %s: %w", key, err)
	}
	return []byte(entry.Payload), nil
}

func (s *SQLStore) Save(ctx context.Context, key string, payload []byte) error {
	entry := models.StateEntry{
		Namespace: s.namespace,
		StateKey:  key,
		Payload:   string(payload),
		UpdatedAt: s.now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("save state %s: %w", key, err)
	}
	return nil
}
