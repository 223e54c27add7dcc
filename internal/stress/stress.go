// Package stress drives random operation sequences against vec.Vec and
// checks them against a plain slice, along with the ownership accounting:
// every element made is dropped exactly once and every block allocated is
// freed.
package stress

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/rand"

	"github.com/eigerco/rawvec/pkg/alloc"
	"github.com/eigerco/rawvec/pkg/log"
	"github.com/eigerco/rawvec/pkg/vec"
	"github.com/eigerco/rawvec/pkg/vecstore"
)

var (
	ErrDiverged = errors.New("stress: vector diverged from model")
	ErrLeak     = errors.New("stress: ownership accounting mismatch")
)

// item is pointer free so it can live in libc memory and be snapshotted.
type item struct {
	ID  uint64
	Run uint32
	Gen uint32
}

type ledger struct {
	mu      sync.Mutex
	made    int
	dropped map[uint64]int
}

var (
	runSeq  atomic.Uint32
	ledgers sync.Map // run id -> *ledger
)

func (it item) Drop() {
	l, ok := ledgers.Load(it.Run)
	if !ok {
		return
	}
	lg := l.(*ledger)
	lg.mu.Lock()
	lg.dropped[it.ID]++
	lg.mu.Unlock()
}

type Report struct {
	Ops      int         `json:"ops"`
	Pushes   int         `json:"pushes"`
	Pops     int         `json:"pops"`
	Inserts  int         `json:"inserts"`
	Removes  int         `json:"removes"`
	Drains   int         `json:"drains"`
	Checks   int         `json:"checks"`
	MaxLen   int         `json:"max_len"`
	MaxCap   int         `json:"max_cap"`
	Made     int         `json:"made"`
	Dropped  int         `json:"dropped"`
	Snapshot string      `json:"snapshot,omitempty"`
	Alloc    alloc.Stats `json:"alloc"`
}

type runner struct {
	rng   *rand.Rand
	run   uint32
	lg    *ledger
	v     *vec.Vec[item]
	model []item
	a     alloc.Allocator
	rep   Report
}

func (r *runner) make() item {
	r.lg.mu.Lock()
	defer r.lg.mu.Unlock()
	r.lg.made++
	return item{ID: uint64(r.lg.made), Run: r.run, Gen: r.rng.Uint32()}
}

// Run executes cfg.Ops random operations on a vector backed by a. When store
// is not nil the final vector is saved, loaded back and compared.
func Run(cfg Config, a alloc.Allocator, store *vecstore.Store) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	tr := alloc.NewTracking(a)
	r := &runner{
		rng: rand.New(rand.NewSource(cfg.Seed)),
		run: runSeq.Add(1),
		lg:  &ledger{dropped: make(map[uint64]int)},
		a:   tr,
	}
	ledgers.Store(r.run, r.lg)
	defer ledgers.Delete(r.run)

	r.v = vec.New[item](vec.WithAllocator(tr))
	for op := range cfg.Ops {
		if err := r.step(); err != nil {
			r.v.Drop()
			return r.rep, fmt.Errorf("op %d: %w", op, err)
		}
		r.rep.Ops++
		r.rep.MaxLen = max(r.rep.MaxLen, r.v.Len())
		r.rep.MaxCap = max(r.rep.MaxCap, r.v.Cap())
	}

	if store != nil {
		name := fmt.Sprintf("stress-%d", cfg.Seed)
		if err := r.snapshot(store, name); err != nil {
			r.v.Drop()
			return r.rep, err
		}
		r.rep.Snapshot = name
	}

	r.v.Drop()
	return r.finish(tr)
}

func (r *runner) step() error {
	switch p := r.rng.Intn(100); {
	case p < 40:
		x := r.make()
		r.v.Push(x)
		r.model = append(r.model, x)
		r.rep.Pushes++
	case p < 60:
		x, ok := r.v.Pop()
		if ok != (len(r.model) > 0) {
			return fmt.Errorf("%w: pop reported %v with model length %d", ErrDiverged, ok, len(r.model))
		}
		if ok {
			want := r.model[len(r.model)-1]
			r.model = r.model[:len(r.model)-1]
			if x != want {
				return fmt.Errorf("%w: pop returned %+v, want %+v", ErrDiverged, x, want)
			}
			x.Drop()
		}
		r.rep.Pops++
	case p < 75:
		i := r.rng.Intn(len(r.model) + 1)
		x := r.make()
		r.v.Insert(i, x)
		r.model = slices.Insert(r.model, i, x)
		r.rep.Inserts++
	case p < 90:
		if len(r.model) == 0 {
			if _, ok := r.v.Remove(0); ok {
				return fmt.Errorf("%w: remove on empty vector returned a value", ErrDiverged)
			}
			break
		}
		i := r.rng.Intn(len(r.model))
		x, ok := r.v.Remove(i)
		if !ok || x != r.model[i] {
			return fmt.Errorf("%w: remove(%d) returned %+v, %v, want %+v", ErrDiverged, i, x, ok, r.model[i])
		}
		r.model = slices.Delete(r.model, i, i+1)
		x.Drop()
		r.rep.Removes++
	case p < 98:
		if !slices.Equal(r.v.Slice(), r.model) {
			return fmt.Errorf("%w: contents differ at length %d", ErrDiverged, len(r.model))
		}
		r.rep.Checks++
	default:
		return r.drain()
	}
	return nil
}

// drain consumes part of the vector through an iterator from random ends and
// closes it, leaving the rest for the iterator to drop.
func (r *runner) drain() error {
	it := r.v.IntoIter()
	defer it.Close() //nolint:errcheck // Close never fails

	take := r.rng.Intn(len(r.model) + 1)
	lo, hi := 0, len(r.model)
	for range take {
		var (
			x    item
			ok   bool
			want item
		)
		if r.rng.Intn(2) == 0 {
			x, ok = it.Next()
			want = r.model[lo]
			lo++
		} else {
			x, ok = it.NextBack()
			hi--
			want = r.model[hi]
		}
		if !ok || x != want {
			return fmt.Errorf("%w: iterator yielded %+v, %v, want %+v", ErrDiverged, x, ok, want)
		}
		x.Drop()
	}
	if it.Len() != hi-lo {
		return fmt.Errorf("%w: iterator has %d left, want %d", ErrDiverged, it.Len(), hi-lo)
	}

	r.v = vec.New[item](vec.WithAllocator(r.a))
	r.model = r.model[:0]
	r.rep.Drains++
	return nil
}

func (r *runner) snapshot(store *vecstore.Store, name string) error {
	if err := vecstore.Save(store, name, r.v); err != nil {
		return err
	}
	loaded, err := vecstore.Load[item](store, name, vec.WithAllocator(r.a))
	if err != nil {
		return err
	}
	// The loaded copies are not separate ledger entries; release the memory
	// without running their Drop.
	defer func() {
		for range loaded.Len() {
			loaded.Pop()
		}
		loaded.Drop()
	}()
	if !slices.Equal(loaded.Slice(), r.v.Slice()) {
		return fmt.Errorf("%w: snapshot %s differs", ErrDiverged, name)
	}
	return nil
}

func (r *runner) finish(tr *alloc.Tracking) (Report, error) {
	r.lg.mu.Lock()
	defer r.lg.mu.Unlock()

	r.rep.Made = r.lg.made
	r.rep.Alloc = tr.Stats()
	for id, n := range r.lg.dropped {
		r.rep.Dropped += n
		if n != 1 {
			return r.rep, fmt.Errorf("%w: element %d dropped %d times", ErrLeak, id, n)
		}
	}
	if r.rep.Dropped != r.rep.Made {
		return r.rep, fmt.Errorf("%w: made %d elements, dropped %d", ErrLeak, r.rep.Made, r.rep.Dropped)
	}
	if live := tr.Live(); live != 0 {
		return r.rep, fmt.Errorf("%w: %d blocks still allocated", ErrLeak, live)
	}

	log.Root.Debug().Int("ops", r.rep.Ops).Int("made", r.rep.Made).Msg("workload balanced")
	return r.rep, nil
}
