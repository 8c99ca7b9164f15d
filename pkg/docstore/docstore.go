// Package docstore is a small document database abstraction modelled on
// Firestore: documents live at slash separated paths of alternating
// collection and document ids, carry a map of fields, and can be read,
// written, queried, watched and modified in optimistic transactions.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidPath = errors.New("docstore: invalid document path")
	// ErrConflict is returned when a transaction could not commit after retrying.
	ErrConflict = errors.New("docstore: transaction conflict")
)

// MaxAttempts bounds how many times a transaction function is run.
const MaxAttempts = 5

type serverTimestamp struct{}

// ServerTimestamp is replaced with the store's commit time when written.
var ServerTimestamp = serverTimestamp{}

type Store interface {
	// Get returns the document at path. A missing document yields a snapshot with Exists false.
	Get(ctx context.Context, path string) (*Snapshot, error)
	Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, q Query) ([]*Snapshot, error)
	// Watch emits the full query result now and after every change to the
	// collection. The channel is closed when ctx is done.
	Watch(ctx context.Context, q Query) (<-chan []*Snapshot, error)
	// RunTransaction runs fn atomically. fn may be called more than once.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Tx reads committed state and buffers writes until the transaction commits.
// Buffered writes to the same path coalesce, the last one wins.
type Tx interface {
	Get(path string) (*Snapshot, error)
	Set(path string, data map[string]any, opts ...SetOption)
	Delete(path string)
}

type Snapshot struct {
	Path   string
	ID     string
	Exists bool
	Data   map[string]any
}

type Filter struct {
	Field string
	Value any
}

type Query struct {
	// Collection is a collection path such as "chatrooms/123456/messages".
	Collection string
	Where      []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

type SetOption func(*setConfig)

type setConfig struct {
	merge bool
}

// Merge makes Set merge fields into an existing document instead of replacing it.
func Merge() SetOption {
	return func(c *setConfig) { c.merge = true }
}

func applySetOptions(opts []SetOption) setConfig {
	var cfg setConfig
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Doc joins path segments into a document path.
func Doc(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidID reports whether s can be used as a single path segment. Firestore
// reserves ".", ".." and ids of the form __x__.
func ValidID(s string) bool {
	if s == "" || s == "." || s == ".." || strings.Contains(s, "/") {
		return false
	}
	return !(len(s) >= 4 && strings.HasPrefix(s, "__") && strings.HasSuffix(s, "__"))
}

// Collection joins path segments into a collection path.
func Collection(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split returns the parent collection path and document id of a document path.
func Split(path string) (collection, id string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || len(parts)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, p := range parts {
		if p == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1], nil
}

func validCollection(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts)%2 != 1 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

func (s *Snapshot) value(key string) (any, bool) {
	if s == nil || s.Data == nil {
		return nil, false
	}
	v, ok := s.Data[key]
	return v, ok
}

func (s *Snapshot) Has(key string) bool {
	v, ok := s.value(key)
	return ok && v != nil
}

func (s *Snapshot) String(key string) string {
	v, _ := s.value(key)
	str, _ := v.(string)
	return str
}

func (s *Snapshot) Int64(key string) int64 {
	v, _ := s.value(key)
	n, _ := toInt64(v)
	return n
}

func (s *Snapshot) Time(key string) time.Time {
	v, _ := s.value(key)
	t, _ := toTime(v)
	return t
}

func (s *Snapshot) Map(key string) map[string]any {
	v, _ := s.value(key)
	m, _ := v.(map[string]any)
	return m
}

func (s *Snapshot) Strings(key string) []string {
	v, _ := s.value(key)
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return 0, false
	}
	i, ok := toInt64(v)
	return float64(i), ok
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

// normalize deep copies a value and resolves ServerTimestamp to now.
func normalize(v any, now time.Time) any {
	switch vv := v.(type) {
	case serverTimestamp:
		return now
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, item := range vv {
			out[k] = normalize(item, now)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalize(item, now)
		}
		return out
	case []string:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = item
		}
		return out
	case int:
		return int64(vv)
	case int32:
		return int64(vv)
	case time.Time:
		return vv.UTC()
	}
	return v
}

func normalizeMap(m map[string]any, now time.Time) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return normalize(m, now).(map[string]any)
}

// mergeInto merges src into dst recursively, like Firestore's MergeAll.
func mergeInto(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = mergeInto(dstMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}

func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := toTime(b)
		return ok && ta.Equal(tb)
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders times, numbers and strings. Missing values sort first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !equalValues(v, f.Value) {
			return false
		}
	}
	return true
}

// orderAndLimit sorts snapshots by q.OrderBy, ties broken by id, and applies q.Limit.
func orderAndLimit(snaps []*Snapshot, q Query) []*Snapshot {
	sort.SliceStable(snaps, func(i, j int) bool {
		if q.OrderBy != "" {
			c := compareValues(snaps[i].Data[q.OrderBy], snaps[j].Data[q.OrderBy])
			if c != 0 {
				if q.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return snaps[i].ID < snaps[j].ID
	})
	if q.Limit > 0 && len(snaps) > q.Limit {
		snaps = snaps[:q.Limit]
	}
	return snaps
}
