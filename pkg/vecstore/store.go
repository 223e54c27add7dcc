// Package vecstore persists vectors of pointer-free elements in a pebble
// database.
//
// A snapshot is stored as a metadata record and a run of chunk records
// holding the raw element bytes:
//
//	v/<name>/meta               JSON meta
//	v/<name>/c/<uint64 BE idx>  up to ChunkElems elements
//
// The metadata carries a blake2b-256 digest of all element bytes, checked on
// load.
package vecstore

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"golang.org/x/crypto/blake2b"

	"github.com/eigerco/rawvec/internal/safemath"
	"github.com/eigerco/rawvec/internal/unsafecast"
	"github.com/eigerco/rawvec/pkg/alloc"
	"github.com/eigerco/rawvec/pkg/log"
	"github.com/eigerco/rawvec/pkg/vec"
)

// DefaultChunkElems is the number of elements per chunk record.
const DefaultChunkElems = 4096

type meta struct {
	Len      int    `json:"len"`
	ElemSize int    `json:"elem_size"`
	Chunk    int    `json:"chunk"`
	Digest   string `json:"digest"`
}

type Store struct {
	db         *pebble.DB
	chunkElems int

	mu     sync.RWMutex
	closed bool
}

type Option func(*pebble.Options, *Store)

// WithChunkElems sets how many elements go into one chunk record.
func WithChunkElems(n int) Option {
	return func(_ *pebble.Options, s *Store) {
		if n > 0 {
			s.chunkElems = n
		}
	}
}

// WithCacheSize sets the pebble block cache size in bytes.
func WithCacheSize(size int64) Option {
	return func(o *pebble.Options, _ *Store) {
		o.Cache = pebble.NewCache(size)
	}
}

// InMemory keeps the database in memory, for tests and dry runs.
func InMemory() Option {
	return func(o *pebble.Options, _ *Store) {
		o.FS = vfs.NewMem()
	}
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{chunkElems: DefaultChunkElems}
	o := &pebble.Options{
		MemTableSize: 32 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(o, s)
	}

	db, err := pebble.Open(path, o)
	if o.Cache != nil {
		// pebble holds its own reference while the database is open.
		o.Cache.Unref()
	}
	if err != nil {
		return nil, fmt.Errorf("vecstore: open %s: %w", path, err)
	}
	s.db = db
	return s, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func metaKey(name string) []byte {
	return []byte("v/" + name + "/meta")
}

func chunkPrefix(name string) []byte {
	return []byte("v/" + name + "/c/")
}

func chunkKey(name string, idx uint64) []byte {
	return binary.BigEndian.AppendUint64(chunkPrefix(name), idx)
}

// prefixEnd returns the smallest key greater than every key starting with p.
func prefixEnd(p []byte) []byte {
	end := bytes.Clone(p)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func checkName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", ErrName, name)
	}
	return nil
}

func checkElem[T any]() error {
	if elem := reflect.TypeFor[T](); alloc.HasPointers(elem) {
		return fmt.Errorf("%w: %v", ErrPointerElem, elem)
	}
	return nil
}

// Save writes the live elements of v under name, replacing any previous
// snapshot with that name. The vector is not modified.
func Save[T any](s *Store, name string, v *vec.Vec[T]) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := checkElem[T](); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	elemSize := int(unsafecast.Sizeof[T]())
	raw := unsafecast.Slice[T, byte](v.Slice())
	chunkBytes, ok := safemath.Mul(s.chunkElems, elemSize)
	if !ok {
		return fmt.Errorf("vecstore: chunk of %d elements: %w", s.chunkElems, alloc.ErrCapacityOverflow)
	}

	b := s.db.NewBatch()
	defer b.Close() //nolint:errcheck // nothing to recover once committed

	prefix := chunkPrefix(name)
	if err := b.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return err
	}

	var idx uint64
	for off := 0; off < len(raw); off += chunkBytes {
		end := min(off+chunkBytes, len(raw))
		if err := b.Set(chunkKey(name, idx), raw[off:end], nil); err != nil {
			return err
		}
		idx++
	}

	digest := blake2b.Sum256(raw)
	m, err := json.Marshal(meta{
		Len:      v.Len(),
		ElemSize: elemSize,
		Chunk:    s.chunkElems,
		Digest:   hex.EncodeToString(digest[:]),
	})
	if err != nil {
		return err
	}
	if err := b.Set(metaKey(name), m, nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("vecstore: commit %s: %w", name, err)
	}

	log.Store.Debug().Str("name", name).Int("len", v.Len()).Uint64("chunks", idx).Msg("saved")
	return nil
}

func (s *Store) readMeta(name string) (meta, error) {
	var m meta
	value, closer, err := s.db.Get(metaKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return m, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return m, err
	}
	defer closer.Close() //nolint:errcheck // read-only handle

	if err := json.Unmarshal(value, &m); err != nil {
		return m, fmt.Errorf("%w: meta: %v", ErrCorrupt, err)
	}
	return m, nil
}

// Load reads the snapshot stored under name into a new vector built with
// opts. On error no vector is returned, nothing is leaked, and no element
// Drop runs. On success the caller owns the loaded elements.
func Load[T any](s *Store, name string, opts ...vec.Option) (*vec.Vec[T], error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := checkElem[T](); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	m, err := s.readMeta(name)
	if err != nil {
		return nil, err
	}
	elemSize := int(unsafecast.Sizeof[T]())
	if m.ElemSize != elemSize {
		return nil, fmt.Errorf("%w: stored %d bytes, %v has %d", ErrElemSize, m.ElemSize, reflect.TypeFor[T](), elemSize)
	}

	prefix := chunkPrefix(name)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close() //nolint:errcheck // read-only iterator

	v := vec.New[T](opts...)
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}

	remaining := m.Len
	var x T
	slot := unsafecast.Bytes(&x)
	for valid := it.First(); valid; valid = it.Next() {
		value, err := it.ValueAndErr()
		if err != nil {
			discard(v)
			return nil, err
		}
		if len(value)%elemSize != 0 {
			discard(v)
			return nil, fmt.Errorf("%w: chunk %x has %d bytes", ErrCorrupt, it.Key(), len(value))
		}
		h.Write(value)
		for off := 0; off < len(value); off += elemSize {
			copy(slot, value[off:off+elemSize])
			v.Push(x)
		}
		var ok bool
		if remaining, ok = safemath.Sub(remaining, len(value)/elemSize); !ok || remaining < 0 {
			discard(v)
			return nil, fmt.Errorf("%w: more elements than the recorded %d", ErrCorrupt, m.Len)
		}
	}
	if err := it.Error(); err != nil {
		discard(v)
		return nil, err
	}
	if remaining != 0 {
		discard(v)
		return nil, fmt.Errorf("%w: %d of %d elements missing", ErrCorrupt, remaining, m.Len)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != m.Digest {
		discard(v)
		return nil, fmt.Errorf("%w: digest %s, recorded %s", ErrCorrupt, got, m.Digest)
	}

	log.Store.Debug().Str("name", name).Int("len", v.Len()).Msg("loaded")
	return v, nil
}

// discard frees a partially loaded vector without running Drop on its
// elements. They are byte copies of stored data and own nothing yet.
func discard[T any](v *vec.Vec[T]) {
	for v.Len() > 0 {
		v.Pop()
	}
	v.Drop()
}

// Delete removes the snapshot stored under name.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	if _, err := s.readMeta(name); err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close() //nolint:errcheck // nothing to recover once committed

	prefix := chunkPrefix(name)
	if err := b.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return err
	}
	if err := b.Delete(metaKey(name), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Names lists the stored snapshots in key order.
func (s *Store) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	prefix := []byte("v/")
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close() //nolint:errcheck // read-only iterator

	var names []string
	for valid := it.First(); valid; valid = it.Next() {
		name, ok := strings.CutSuffix(strings.TrimPrefix(string(it.Key()), "v/"), "/meta")
		if ok && !strings.Contains(name, "/") {
			names = append(names, name)
		}
	}
	return names, it.Error()
}
