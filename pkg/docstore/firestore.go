package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore maps the Store contract onto Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc(path string) (*firestore.DocumentRef, error) {
	if _, _, err := Split(path); err != nil {
		return nil, err
	}
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return ref, nil
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (*Snapshot, error) {
	ref, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	return fromFirestore(path, snap, err)
}

func (s *FirestoreStore) Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, toFirestore(data), setOptions(opts)...)
	return err
}

func (s *FirestoreStore) Delete(ctx context.Context, path string) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return err
}

func (s *FirestoreStore) query(q Query) (firestore.Query, error) {
	if !validCollection(q.Collection) {
		return firestore.Query{}, fmt.Errorf("%w: collection %q", ErrInvalidPath, q.Collection)
	}
	query := s.client.Collection(q.Collection).Query
	for _, f := range q.Where {
		query = query.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query, nil
}

func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	query, err := s.query(q)
	if err != nil {
		return nil, err
	}
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return fromFirestoreDocs(q.Collection, docs), nil
}

func (s *FirestoreStore) Watch(ctx context.Context, q Query) (<-chan []*Snapshot, error) {
	query, err := s.query(q)
	if err != nil {
		return nil, err
	}

	it := query.Snapshots(ctx)
	out := make(chan []*Snapshot)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				return
			}
			select {
			case out <- fromFirestoreDocs(q.Collection, docs):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		tx := &firestoreTx{store: s, tx: ftx}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		for _, w := range tx.writes {
			ref, err := s.doc(w.path)
			if err != nil {
				return err
			}
			if w.delete {
				err = ftx.Delete(ref)
			} else {
				var opts []firestore.SetOption
				if w.cfg.merge {
					opts = append(opts, firestore.MergeAll)
				}
				err = ftx.Set(ref, toFirestore(w.data), opts...)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if status.Code(err) == codes.Aborted {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

type firestoreTx struct {
	store  *FirestoreStore
	tx     *firestore.Transaction
	writes []pendingWrite
}

func (tx *firestoreTx) Get(path string) (*Snapshot, error) {
	ref, err := tx.store.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := tx.tx.Get(ref)
	return fromFirestore(path, snap, err)
}

func (tx *firestoreTx) Set(path string, data map[string]any, opts ...SetOption) {
	tx.writes = coalesce(tx.writes, pendingWrite{path: path, data: data, cfg: applySetOptions(opts)})
}

func (tx *firestoreTx) Delete(path string) {
	tx.writes = coalesce(tx.writes, pendingWrite{path: path, delete: true})
}

func setOptions(opts []SetOption) []firestore.SetOption {
	if applySetOptions(opts).merge {
		return []firestore.SetOption{firestore.MergeAll}
	}
	return nil
}

func fromFirestore(path string, snap *firestore.DocumentSnapshot, err error) (*Snapshot, error) {
	_, id, _ := Split(path)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &Snapshot{Path: path, ID: id}, nil
		}
		return nil, err
	}
	if snap == nil || !snap.Exists() {
		return &Snapshot{Path: path, ID: id}, nil
	}
	return &Snapshot{Path: path, ID: id, Exists: true, Data: snap.Data()}, nil
}

func fromFirestoreDocs(collection string, docs []*firestore.DocumentSnapshot) []*Snapshot {
	out := make([]*Snapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, &Snapshot{
			Path:   Doc(collection, d.Ref.ID),
			ID:     d.Ref.ID,
			Exists: true,
			Data:   d.Data(),
		})
	}
	return out
}

// toFirestore swaps the ServerTimestamp sentinel for Firestore's own.
func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) any {
	switch vv := v.(type) {
	case serverTimestamp:
		return firestore.ServerTimestamp
	case map[string]any:
		return toFirestore(vv)
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = toFirestoreValue(item)
		}
		return out
	}
	return v
}

var _ Store = (*FirestoreStore)(nil)
var _ Store = (*MemoryStore)(nil)
