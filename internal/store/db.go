package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// blobObject is the GORM row backing one stored blob.
type blobObject struct {
	Name      string `gorm:"primaryKey;size:255"`
	Content   []byte `gorm:"type:mediumblob"`
	CreatedAt time.Time
}

func (blobObject) TableName() string { return "blob_objects" }

// DB is a Store backed by a SQL database through GORM. MySQL serves shared
// deployments; SQLite serves local single-host setups and tests.
type DB struct {
	db *gorm.DB
}

// DSN builds a MySQL DSN for the shared store database.
func DSN(host string, port int, database string) string {
	return fmt.Sprintf("root@tcp(%s:%d)/%s?parseTime=true", host, port, database)
}

// OpenMySQL opens a MySQL-backed store and ensures its schema.
func OpenMySQL(host string, port int, database string) (*DB, error) {
	dsn := DSN(host, port, database)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect to %s:%d/%s: %v: %w", host, port, database, err, protocol.ErrStoreUnavailable)
	}
	return wrap(db)
}

// OpenSQLite opens a SQLite-backed store at path and ensures its schema.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %v: %w", path, err, protocol.ErrStoreUnavailable)
	}
	return wrap(db)
}

func wrap(db *gorm.DB) (*DB, error) {
	if err := db.AutoMigrate(&blobObject{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %v: %w", err, protocol.ErrStoreUnavailable)
	}
	return &DB{db: db}, nil
}

// Put stores content under name, overwriting any existing object.
func (s *DB) Put(ctx context.Context, name string, content []byte) error {
	obj := blobObject{Name: name, Content: content, CreatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&obj).Error
	if err != nil {
		return fmt.Errorf("store: put %s: %v: %w", name, err, protocol.ErrStoreUnavailable)
	}
	return nil
}

// List returns the names of all objects with the given prefix.
func (s *DB) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&blobObject{}).
		Where("name LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %v: %w", prefix, err, protocol.ErrStoreUnavailable)
	}
	return names, nil
}

// Get returns the content of the named object.
func (s *DB) Get(ctx context.Context, name string) ([]byte, error) {
	var obj blobObject
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %v: %w", name, err, protocol.ErrStoreUnavailable)
	}
	return obj.Content, nil
}

// Delete removes the named object, returning ErrNotFound if absent.
func (s *DB) Delete(ctx context.Context, name string) error {
	result := s.db.WithContext(ctx).Where("name = ?", name).Delete(&blobObject{})
	if result.Error != nil {
		return fmt.Errorf("store: delete %s: %v: %w", name, result.Error, protocol.ErrStoreUnavailable)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards in a prefix so object names containing
// '%' or '_' (command ids use underscores) match literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
