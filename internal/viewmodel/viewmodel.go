// Package viewmodel keeps a local mirror of the product list for a UI. The
// list follows the search term after a debounce window, deletions are
// applied once the server confirms them, and creates and updates trigger a
// full refetch.
package viewmodel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inventory/internal/client"
	"inventory/internal/models"

	"go.uber.org/zap"
)

const (
	DefaultDebounce     = 300 * time.Millisecond
	defaultFetchTimeout = 10 * time.Second
)

// API is the part of *client.ProductClient the view-model uses.
type API interface {
	List(ctx context.Context, search string) ([]models.Product, error)
	Create(ctx context.Context, in client.ProductPayload) (*models.Product, error)
	Update(ctx context.Context, id string, in client.ProductPayload) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

// State is a snapshot of the view-model.
type State struct {
	Products []models.Product
	Loading  bool
	Error    string
	Search   string
	// RefreshVersion increases with every Refresh.
	RefreshVersion uint64
}

type Option func(*ViewModel)

// WithDebounce sets the delay between the last trigger and the fetch.
func WithDebounce(d time.Duration) Option {
	return func(vm *ViewModel) {
		if d > 0 {
			vm.debounce = d
		}
	}
}

// WithFetchTimeout bounds each list request.
func WithFetchTimeout(d time.Duration) Option {
	return func(vm *ViewModel) {
		if d > 0 {
			vm.fetchTimeout = d
		}
	}
}

// WithOrderedResponses discards a list response when a response to a later
// request has already been applied. Without it the last response to arrive wins.
func WithOrderedResponses() Option {
	return func(vm *ViewModel) { vm.ordered = true }
}

// OnChange registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
func OnChange(fn func(State)) Option {
	return func(vm *ViewModel) { vm.onChange = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(vm *ViewModel) {
		if log != nil {
			vm.log = log
		}
	}
}

type ViewModel struct {
	api          API
	form         *formValidator
	log          *zap.Logger
	debounce     time.Duration
	fetchTimeout time.Duration
	ordered      bool
	onChange     func(State)

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	timer *time.Timer
	// generation identifies the live timer. A timer that fired after being
	// replaced sees a newer generation and does nothing.
	generation uint64
	inflight   int
	issued     uint64
	applied    uint64
	closed     bool
}

// New creates a view-model and schedules the initial fetch.
func New(api API, opts ...Option) *ViewModel {
	ctx, cancel := context.WithCancel(context.Background())
	vm := &ViewModel{
		api:          api,
		form:         newFormValidator(),
		log:          zap.NewNop(),
		debounce:     DefaultDebounce,
		fetchTimeout: defaultFetchTimeout,
		ctx:          ctx,
		cancel:       cancel,
		state:        State{Products: []models.Product{}, Loading: true},
	}
	for _, opt := range opts {
		opt(vm)
	}

	vm.mu.Lock()
	vm.scheduleLocked()
	vm.mu.Unlock()
	return vm
}

// State returns a copy of the current state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshotLocked()
}

// SetSearch changes the search term and schedules a fetch for it.
func (vm *ViewModel) SetSearch(term string) {
	vm.mu.Lock()
	vm.state.Search = term
	vm.scheduleLocked()
	s := vm.snapshotLocked()
	vm.mu.Unlock()
	vm.notify(s)
}

// Refresh schedules a fetch for the current search term.
func (vm *ViewModel) Refresh() {
	vm.mu.Lock()
	vm.state.RefreshVersion++
	vm.scheduleLocked()
	s := vm.snapshotLocked()
	vm.mu.Unlock()
	vm.notify(s)
}

// Delete asks the server to delete id and removes it from the local list
// once the server confirms. On failure the list is left as it was.
func (vm *ViewModel) Delete(ctx context.Context, id string) error {
	if err := vm.api.Delete(ctx, id); err != nil {
		vm.log.Warn("delete product failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete product %s: %w", id, err)
	}

	vm.mu.Lock()
	kept := make([]models.Product, 0, len(vm.state.Products))
	for _, p := range vm.state.Products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	vm.state.Products = kept
	s := vm.snapshotLocked()
	vm.mu.Unlock()
	vm.notify(s)
	return nil
}

// Create validates form, sends it and refreshes the list.
func (vm *ViewModel) Create(ctx context.Context, form ProductForm) (*models.Product, error) {
	if err := vm.form.check(form); err != nil {
		return nil, err
	}
	p, err := vm.api.Create(ctx, form.payload())
	if err != nil {
		vm.log.Warn("create product failed", zap.Error(err))
		return nil, fmt.Errorf("create product: %w", err)
	}
	vm.Refresh()
	return p, nil
}

// Update validates form, sends it as the new content of id and refreshes the list.
func (vm *ViewModel) Update(ctx context.Context, id string, form ProductForm) (*models.Product, error) {
	if err := vm.form.check(form); err != nil {
		return nil, err
	}
	p, err := vm.api.Update(ctx, id, form.payload())
	if err != nil {
		vm.log.Warn("update product failed", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	vm.Refresh()
	return p, nil
}

// Close stops the pending timer. Responses that arrive afterwards are dropped.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.closed = true
	if vm.timer != nil {
		vm.timer.Stop()
		vm.timer = nil
	}
	vm.cancel()
}

func (vm *ViewModel) scheduleLocked() {
	if vm.closed {
		return
	}
	vm.generation++
	gen := vm.generation
	if vm.timer != nil {
		vm.timer.Stop()
	}
	vm.timer = time.AfterFunc(vm.debounce, func() { vm.fetch(gen) })
}

func (vm *ViewModel) fetch(gen uint64) {
	vm.mu.Lock()
	if vm.closed || gen != vm.generation {
		vm.mu.Unlock()
		return
	}
	vm.timer = nil
	term := vm.state.Search
	vm.issued++
	seq := vm.issued
	vm.inflight++
	vm.state.Loading = true
	s := vm.snapshotLocked()
	vm.mu.Unlock()
	vm.notify(s)

	ctx, cancel := context.WithTimeout(vm.ctx, vm.fetchTimeout)
	products, err := vm.api.List(ctx, term)
	cancel()

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.inflight--
	if vm.ordered && seq < vm.applied {
		vm.log.Debug("stale product list dropped",
			zap.Uint64("seq", seq),
			zap.Uint64("applied", vm.applied),
		)
	} else {
		if err != nil {
			vm.log.Warn("load products failed", zap.String("search", term), zap.Error(err))
			vm.state.Error = "failed to load products: " + err.Error()
		} else {
			vm.state.Products = products
			vm.state.Error = ""
		}
		if seq > vm.applied {
			vm.applied = seq
		}
	}
	vm.state.Loading = vm.inflight > 0
	s = vm.snapshotLocked()
	vm.mu.Unlock()
	vm.notify(s)
}

func (vm *ViewModel) snapshotLocked() State {
	s := vm.state
	s.Products = append([]models.Product(nil), vm.state.Products...)
	if s.Products == nil {
		s.Products = []models.Product{}
	}
	return s
}

func (vm *ViewModel) notify(s State) {
	if vm.onChange != nil {
		vm.onChange(s)
	}
}
