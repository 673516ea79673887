package store

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
)

// Record is a value that can be kept in a Bucket.
type Record interface {
	// RecordID returns the primary key.
	RecordID() string

	// IndexKey returns the value of the record for a declared index.
	IndexKey(idx Index) any
}

// Bucket is a typed view over one collection of a Store.
type Bucket[T Record] struct {
	store *Store
	name  Name
}

// NewBucket returns a typed view over the collection name of s.
func NewBucket[T Record](s *Store, name Name) *Bucket[T] {
	return &Bucket[T]{store: s, name: name}
}

// Name returns the collection name.
func (b *Bucket[T]) Name() Name {
	return b.name
}

// Put inserts or replaces rec and returns it.
func (b *Bucket[T]) Put(ctx context.Context, rec T) (T, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		var zero T

		return zero, fmt.Errorf("encoding %s record: %w", b.name, err)
	}

	keys := make(map[Index]any, len(schema[b.name]))
	for _, idx := range schema[b.name] {
		keys[idx] = rec.IndexKey(idx)
	}

	if err = b.store.putRaw(ctx, b.name, rec.RecordID(), keys, data); err != nil {
		var zero T

		return zero, err
	}

	return rec, nil
}

// Get returns the record with the given id or an error wrapping ErrNotFound.
func (b *Bucket[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T

	data, err := b.store.getRaw(ctx, b.name, id)
	if err != nil {
		return rec, err
	}

	if err = json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decoding %s %s: %w", b.name, id, err)
	}

	return rec, nil
}

// All yields every record in stored order.
func (b *Bucket[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return b.decode(b.store.scanRaw(ctx, b.name, "", nil, "rowid"))
}

// Query yields the records whose idx value lies in r, in ascending index
// order. Records with equal index values keep their stored order.
func (b *Bucket[T]) Query(ctx context.Context, idx Index, r KeyRange) iter.Seq2[T, error] {
	if !hasIndex(b.name, idx) {
		return func(yield func(T, error) bool) {
			var zero T
			yield(zero, fmt.Errorf("%s on %s: %w", idx, b.name, ErrUnknownIndex))
		}
	}

	col := indexColumns[idx]
	where, args := r.where(col)

	return b.decode(b.store.scanRaw(ctx, b.name, where, args, col+", rowid"))
}

// Delete removes the record with the given id. Missing ids are not an error.
func (b *Bucket[T]) Delete(ctx context.Context, id string) error {
	return b.store.Delete(ctx, b.name, id)
}

// Clear removes all records.
func (b *Bucket[T]) Clear(ctx context.Context) error {
	return b.store.Clear(ctx, b.name)
}

// Count returns the number of records.
func (b *Bucket[T]) Count(ctx context.Context) (int, error) {
	return b.store.Count(ctx, b.name)
}

func (b *Bucket[T]) decode(raw iter.Seq2[[]byte, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for data, err := range raw {
			var rec T
			if err != nil {
				yield(rec, err)

				return
			}

			if err = json.Unmarshal(data, &rec); err != nil {
				yield(rec, fmt.Errorf("decoding %s record: %w", b.name, err))

				return
			}

			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}

	return out, nil
}
