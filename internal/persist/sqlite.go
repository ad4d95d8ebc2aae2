package persist

import (
	"context"
	"errors"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const slotKey = "saved_sessions"

// slot is a one-row key/value table. The whole saved-session list lives in
// a single value, overwritten wholesale on every store.
type slot struct {
	Key   string `gorm:"primaryKey;type:varchar(64)"`
	Value []byte `gorm:"type:blob;not null"`
}

func (slot) TableName() string { return "kv_slots" }

type SQLiteAdapter struct {
	db *gorm.DB
}

func OpenSQLite(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return NewSQLiteAdapter(db)
}

func NewSQLiteAdapter(db *gorm.DB) (*SQLiteAdapter, error) {
	if err := db.AutoMigrate(&slot{}); err != nil {
		return nil, err
	}
	return &SQLiteAdapter{db: db}, nil
}

// DB exposes the underlying handle so other tables (ask jobs) can share it.
func (a *SQLiteAdapter) DB() *gorm.DB { return a.db }

func (a *SQLiteAdapter) Load(ctx context.Context) ([]Record, error) {
	var s slot
	err := a.db.WithContext(ctx).First(&s, "key = ?", slotKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Record{}, nil
		}
		return nil, err
	}
	return decode(s.Value), nil
}

func (a *SQLiteAdapter) Store(ctx context.Context, records []Record) error {
	raw, err := encode(records)
	if err != nil {
		return err
	}
	s := slot{Key: slotKey, Value: raw}
	return a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&s).Error
}
