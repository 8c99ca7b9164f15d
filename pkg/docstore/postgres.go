package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Document is one row of the documents table.
type Document struct {
	Path      string         `gorm:"primaryKey"`
	Parent    string         `gorm:"index;not null"`
	DocID     string         `gorm:"not null"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (Document) TableName() string {
	return "documents"
}

// PostgresStore keeps documents as JSONB rows. Watchers are only woken by
// writes made through the same process.
type PostgresStore struct {
	db    *gorm.DB
	clock clockwork.Clock
	hub   *hub
}

// NewPostgresConnection opens a gorm connection with driver errors translated
// to gorm's sentinel errors.
func NewPostgresConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *gorm.DB, clock clockwork.Clock) (*PostgresStore, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return &PostgresStore{db: db, clock: clock, hub: newHub()}, nil
}

func (s *PostgresStore) Get(ctx context.Context, path string) (*Snapshot, error) {
	if _, _, err := Split(path); err != nil {
		return nil, err
	}
	return s.get(s.db.WithContext(ctx), path, false)
}

func (s *PostgresStore) get(db *gorm.DB, path string, lock bool) (*Snapshot, error) {
	_, id, _ := Split(path)
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var doc Document
	err := db.Where("path = ?", path).Take(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Snapshot{Path: path, ID: id}, nil
		}
		return nil, err
	}
	return decodeDocument(&doc)
}

func (s *PostgresStore) Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	cfg := applySetOptions(opts)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.write(tx, pendingWrite{path: path, data: data, cfg: cfg}, false)
	})
	if err != nil {
		return err
	}
	s.hub.publish(path)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("path = ?", path).Delete(&Document{}).Error; err != nil {
		return err
	}
	s.hub.publish(path)
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	if !validCollection(q.Collection) {
		return nil, fmt.Errorf("%w: collection %q", ErrInvalidPath, q.Collection)
	}

	db := s.db.WithContext(ctx).Where("parent = ?", q.Collection)
	for _, f := range q.Where {
		if !fieldName.MatchString(f.Field) {
			return nil, fmt.Errorf("docstore: invalid field name %q", f.Field)
		}
		db = db.Where(datatypes.JSONQuery("data").Equals(encodeValue(f.Value, s.clock.Now()), f.Field))
	}
	if q.OrderBy != "" {
		if !fieldName.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("docstore: invalid field name %q", q.OrderBy)
		}
		db = db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: fmt.Sprintf("data->>'%s'", q.OrderBy), Raw: true},
			Desc:   q.Descending,
		})
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var docs []Document
	if err := db.Find(&docs).Error; err != nil {
		return nil, err
	}

	out := make([]*Snapshot, 0, len(docs))
	for i := range docs {
		snap, err := decodeDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	// Text ordering in SQL is only exact for fixed width values; re-sort the page in Go.
	return orderAndLimit(out, q), nil
}

func (s *PostgresStore) Watch(ctx context.Context, q Query) (<-chan []*Snapshot, error) {
	if !validCollection(q.Collection) {
		return nil, fmt.Errorf("%w: collection %q", ErrInvalidPath, q.Collection)
	}
	return s.hub.watch(ctx, q, s.Query)
}

func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		var paths []string
		err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			tx := &postgresTx{store: s, db: gtx, missing: make(map[string]bool)}
			if err := fn(ctx, tx); err != nil {
				return err
			}
			for _, w := range tx.writes {
				if err := s.write(gtx, w, tx.missing[w.path]); err != nil {
					return err
				}
				paths = append(paths, w.path)
			}
			return nil
		})
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}
		s.hub.publish(paths...)
		return nil
	}
	return ErrConflict
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// write applies one buffered write inside tx. A path that the transaction read
// as missing is inserted, so a concurrent creator turns into ErrConflict.
func (s *PostgresStore) write(tx *gorm.DB, w pendingWrite, readMissing bool) error {
	if w.delete {
		return tx.Where("path = ?", w.path).Delete(&Document{}).Error
	}

	now := s.clock.Now()
	data := w.data
	if w.cfg.merge && !readMissing {
		existing, err := s.get(tx, w.path, true)
		if err != nil {
			return err
		}
		if existing.Exists {
			data = mergeInto(existing.Data, data)
		}
	}

	doc, err := encodeDocument(w.path, data, now)
	if err != nil {
		return err
	}

	if readMissing {
		if err := tx.Create(doc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return err
		}
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(doc).Error
}

type postgresTx struct {
	store   *PostgresStore
	db      *gorm.DB
	missing map[string]bool
	writes  []pendingWrite
}

func (tx *postgresTx) Get(path string) (*Snapshot, error) {
	if _, _, err := Split(path); err != nil {
		return nil, err
	}
	snap, err := tx.store.get(tx.db, path, true)
	if err != nil {
		return nil, err
	}
	tx.missing[path] = !snap.Exists
	return snap, nil
}

func (tx *postgresTx) Set(path string, data map[string]any, opts ...SetOption) {
	tx.writes = coalesce(tx.writes, pendingWrite{path: path, data: data, cfg: applySetOptions(opts)})
}

func (tx *postgresTx) Delete(path string) {
	tx.writes = coalesce(tx.writes, pendingWrite{path: path, delete: true})
}

func encodeDocument(path string, data map[string]any, now time.Time) (*Document, error) {
	parent, id, err := Split(path)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(encodeValue(data, now))
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", path, err)
	}
	return &Document{Path: path, Parent: parent, DocID: id, Data: datatypes.JSON(raw), UpdatedAt: now}, nil
}

func decodeDocument(doc *Document) (*Snapshot, error) {
	data := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(doc.Data))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", doc.Path, err)
	}
	return &Snapshot{Path: doc.Path, ID: doc.DocID, Exists: true, Data: data}, nil
}

// encodeValue resolves ServerTimestamp and renders times in timeLayout.
func encodeValue(v any, now time.Time) any {
	switch vv := normalize(v, now).(type) {
	case time.Time:
		return vv.UTC().Format(timeLayout)
	case map[string]any:
		for k, item := range vv {
			vv[k] = encodeValue(item, now)
		}
		return vv
	case []any:
		for i, item := range vv {
			vv[i] = encodeValue(item, now)
		}
		return vv
	default:
		return vv
	}
}

var _ Store = (*PostgresStore)(nil)
