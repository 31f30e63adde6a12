package repository

import (
	"context"
	"errors"
	"time"

	"invoicegen/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRepository is the persistent key-value collaborator behind the invoice store.
// Get reports found=false for missing keys instead of returning an error.
type KVRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type kvRepository struct {
	db *gorm.DB
}

// NewKVRepository stores entries in the kv_entries table (postgres or mysql)
func NewKVRepository(db *gorm.DB) KVRepository {
	return &kvRepository{db: db}
}

func (r *kvRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry model.KVEntry
	err := byKey(r.db.WithContext(ctx), key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (r *kvRepository) Set(ctx context.Context, key, value string) error {
	entry := model.KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return upsert(r.db.WithContext(ctx), &entry).Error
}

func upsert(tx *gorm.DB, entry *model.KVEntry) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry)
}

func (r *kvRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return byKey(r.db.WithContext(ctx), keys...).Delete(&model.KVEntry{}).Error
}

// byKey filters on the key column through clause expressions so the column
// name is quoted for the dialect; key is reserved in MySQL.
func byKey(tx *gorm.DB, keys ...string) *gorm.DB {
	col := clause.Column{Table: clause.CurrentTable, Name: "key"}
	if len(keys) == 1 {
		return tx.Where(clause.Eq{Column: col, Value: keys[0]})
	}
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	return tx.Where(clause.IN{Column: col, Values: values})
}
