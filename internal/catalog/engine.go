package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// engine holds the collection shared by MemStore and FileStore. Mutations
// build a new slice, hand it to persist and only swap it in once persist
// succeeds, so memory never runs ahead of the backing file.
type engine struct {
	mu      sync.RWMutex
	items   []Product
	nextID  int64
	persist func([]Product) error
	log     *zap.Logger
}

func newEngine(items []Product, persist func([]Product) error, log *zap.Logger) *engine {
	if log == nil {
		log = zap.NewNop()
	}
	if items == nil {
		items = make([]Product, 0)
	}
	return &engine{
		items:   items,
		nextID:  nextIDFor(items),
		persist: persist,
		log:     log,
	}
}

func nextIDFor(items []Product) int64 {
	var top int64
	for _, p := range items {
		if p.ID > top {
			top = p.ID
		}
	}
	return top + 1
}

func (e *engine) List(ctx context.Context) ([]Product, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Product, len(e.items))
	for i, p := range e.items {
		out[i] = p.clone()
	}
	return out, nil
}

func (e *engine) Get(ctx context.Context, id int64) (Product, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	i := e.indexOf(id)
	if i < 0 {
		e.log.Info("product not found", zap.Int64("id", id))
		return Product{}, ErrNotFound
	}
	return e.items[i].clone(), nil
}

func (e *engine) Create(ctx context.Context, in NewProduct) (Product, error) {
	if err := in.Validate(); err != nil {
		e.log.Info("product rejected", zap.Error(err))
		return Product{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codeTaken(in.Code, 0) {
		e.log.Info("product rejected: duplicate code", zap.String("code", in.Code))
		return Product{}, ErrDuplicateCode
	}

	p := in.withID(e.nextID)

	next := make([]Product, len(e.items), len(e.items)+1)
	copy(next, e.items)
	next = append(next, p)

	if err := e.commit(next); err != nil {
		return Product{}, err
	}
	e.nextID++

	e.log.Info("product created", zap.Int64("id", p.ID), zap.String("code", p.Code))
	return p, nil
}

func (e *engine) Update(ctx context.Context, id int64, patch Patch) (Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(id)
	if i < 0 {
		e.log.Info("update: product not found", zap.Int64("id", id))
		return Product{}, ErrNotFound
	}

	p := patch.Apply(e.items[i])
	if patch.Code != nil && e.codeTaken(p.Code, id) {
		e.log.Info("update rejected: duplicate code", zap.Int64("id", id), zap.String("code", p.Code))
		return Product{}, ErrDuplicateCode
	}

	next := make([]Product, len(e.items))
	copy(next, e.items)
	next[i] = p

	if err := e.commit(next); err != nil {
		return Product{}, err
	}

	e.log.Info("product updated", zap.Int64("id", id))
	return p.clone(), nil
}

func (e *engine) Delete(ctx context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(id)
	if i < 0 {
		e.log.Info("delete: product not found", zap.Int64("id", id))
		return ErrNotFound
	}

	next := make([]Product, 0, len(e.items)-1)
	next = append(next, e.items[:i]...)
	next = append(next, e.items[i+1:]...)

	if err := e.commit(next); err != nil {
		return err
	}

	e.log.Info("product deleted", zap.Int64("id", id))
	return nil
}

// commit must be called with mu held.
func (e *engine) commit(next []Product) error {
	if e.persist != nil {
		if err := e.persist(next); err != nil {
			e.log.Error("persist products failed", zap.Error(err))
			return err
		}
	}
	e.items = next
	return nil
}

func (e *engine) indexOf(id int64) int {
	for i := range e.items {
		if e.items[i].ID == id {
			return i
		}
	}
	return -1
}

// codeTaken ignores the product with id except (0 matches nothing).
func (e *engine) codeTaken(code string, except int64) bool {
	for i := range e.items {
		if e.items[i].Code == code && e.items[i].ID != except {
			return true
		}
	}
	return false
}
