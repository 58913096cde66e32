package inmem

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/ports"
	"courier-dispatch/internal/pkg/errs"
)

// Store holds committed courier and package states. Aggregates are stored as State
// values and restored on every read, so callers never share instances.
type Store struct {
	mu       sync.Mutex
	couriers map[kernel.UUID]courier.State
	packages map[kernel.UUID]parcel.State
	outbox   *Outbox

	// BeforeCommit, when set, runs inside Commit before version checks. Tests use it to
	// interleave concurrent writers deterministically.
	BeforeCommit func()
}

// NewStore creates an empty store writing events to outbox.
func NewStore(outbox *Outbox) *Store {
	return &Store{
		couriers: map[kernel.UUID]courier.State{},
		packages: map[kernel.UUID]parcel.State{},
		outbox:   outbox,
	}
}

// Courier returns the committed courier.
func (s *Store) Courier(id kernel.UUID) (*courier.Courier, error) {
	s.mu.Lock()
	st, ok := s.couriers[id]
	s.mu.Unlock()
	if !ok {
		return nil, errs.NewObjectNotFoundError("courier", id)
	}
	return courier.RestoreCourier(st)
}

// Package returns the committed package.
func (s *Store) Package(id kernel.UUID) (*parcel.Package, error) {
	s.mu.Lock()
	st, ok := s.packages[id]
	s.mu.Unlock()
	if !ok {
		return nil, errs.NewObjectNotFoundError("package", id)
	}
	return parcel.RestorePackage(st)
}

// Packages returns every committed package.
func (s *Store) Packages() []*parcel.Package {
	s.mu.Lock()
	states := make([]parcel.State, 0, len(s.packages))
	for _, st := range s.packages {
		states = append(states, st)
	}
	s.mu.Unlock()

	out := make([]*parcel.Package, 0, len(states))
	for _, st := range states {
		p, err := parcel.RestorePackage(st)
		if err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Factory returns a unit of work factory over the store.
func (s *Store) Factory() *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: s}
}

type write struct {
	aggregate ports.Aggregate
	isNew     bool
}

// UnitOfWorkFactory implements ports.UnitOfWorkFactory.
type UnitOfWorkFactory struct {
	store *Store
}

// Create implements ports.UnitOfWorkFactory.
func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork stages writes and applies them atomically on Commit. Version checks run
// both when a write is staged and again under the store lock at commit.
type UnitOfWork struct {
	store  *Store
	active bool
	writes []write
}

func (u *UnitOfWork) Begin(context.Context) error {
	u.active = true
	return nil
}

func (u *UnitOfWork) Rollback(context.Context) error {
	if !u.active {
		return fmt.Errorf("no active transaction")
	}
	u.active = false
	u.writes = nil
	return nil
}

func (u *UnitOfWork) Commit(context.Context) error {
	if !u.active {
		return fmt.Errorf("no active transaction")
	}
	if hook := u.store.BeforeCommit; hook != nil {
		hook()
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range u.writes {
		if err := s.checkLocked(w); err != nil {
			return err
		}
	}

	var msgs []ports.OutboxMessage
	for _, w := range u.writes {
		for _, e := range w.aggregate.DomainEvents() {
			m, err := ports.NewOutboxMessage(e)
			if err != nil {
				return err
			}
			msgs = append(msgs, m)
		}
	}

	for _, w := range u.writes {
		switch a := w.aggregate.(type) {
		case *courier.Courier:
			s.couriers[a.ID()] = a.State()
		case *parcel.Package:
			s.packages[a.ID()] = a.State()
		}
	}
	s.outbox.append(msgs...)

	for _, w := range u.writes {
		w.aggregate.ClearDomainEvents()
	}
	u.active = false
	u.writes = nil
	return nil
}

func (u *UnitOfWork) CourierRepository() ports.CourierRepository {
	return &courierRepo{uow: u}
}

func (u *UnitOfWork) PackageRepository() ports.PackageRepository {
	return &packageRepo{uow: u}
}

func (u *UnitOfWork) stage(a ports.Aggregate, isNew bool) error {
	w := write{aggregate: a, isNew: isNew}
	for _, staged := range u.writes {
		if staged.aggregate.ID().IsEqual(a.ID()) && staged.isNew {
			w.isNew = true
		}
	}
	u.store.mu.Lock()
	err := u.store.checkLocked(w)
	u.store.mu.Unlock()
	if err != nil {
		return err
	}

	if !u.active {
		// Without Begin every write commits immediately.
		u.active = true
		u.writes = []write{w}
		return u.Commit(context.Background())
	}
	u.writes = slices.DeleteFunc(u.writes, func(x write) bool { return x.aggregate.ID().IsEqual(a.ID()) })
	u.writes = append(u.writes, w)
	return nil
}

func (s *Store) checkLocked(w write) error {
	var (
		stored    uint64
		exists    bool
		persisted uint64
		kind      string
	)
	switch a := w.aggregate.(type) {
	case *courier.Courier:
		st, ok := s.couriers[a.ID()]
		stored, exists, persisted, kind = st.Version, ok, a.PersistedVersion(), "courier"
	case *parcel.Package:
		st, ok := s.packages[a.ID()]
		stored, exists, persisted, kind = st.Version, ok, a.PersistedVersion(), "package"
	default:
		return fmt.Errorf("unsupported aggregate %T", w.aggregate)
	}

	if w.isNew {
		if exists {
			return fmt.Errorf("%s %s already exists", kind, w.aggregate.ID())
		}
		return nil
	}
	if !exists {
		return errs.NewObjectNotFoundError(kind, w.aggregate.ID())
	}
	if stored != persisted {
		return errs.NewVersionIsInvalidError(kind, fmt.Errorf("stored %d, loaded %d", stored, persisted))
	}
	return nil
}

type courierRepo struct {
	uow *UnitOfWork
}

func (r *courierRepo) Add(_ context.Context, c *courier.Courier) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.uow.stage(c, true)
}

func (r *courierRepo) Update(_ context.Context, c *courier.Courier) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.uow.stage(c, false)
}

func (r *courierRepo) Get(_ context.Context, id kernel.UUID) (*courier.Courier, error) {
	return r.uow.store.Courier(id)
}

func (r *courierRepo) Exists(_ context.Context, id kernel.UUID) (bool, error) {
	r.uow.store.mu.Lock()
	defer r.uow.store.mu.Unlock()
	_, ok := r.uow.store.couriers[id]
	return ok, nil
}

func (r *courierRepo) FindDispatchable(_ context.Context, zone string) ([]*courier.Courier, error) {
	s := r.uow.store
	s.mu.Lock()
	var states []courier.State
	for _, st := range s.couriers {
		if st.Status == courier.StatusFree && st.CurrentLoad < st.MaxLoad &&
			(st.WorkZone == zone || st.WorkZone == courier.WildcardZone) {
			states = append(states, st)
		}
	}
	s.mu.Unlock()

	out := make([]*courier.Courier, 0, len(states))
	for _, st := range states {
		c, err := courier.RestoreCourier(st)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type packageRepo struct {
	uow *UnitOfWork
}

func (r *packageRepo) Add(_ context.Context, p *parcel.Package) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return r.uow.stage(p, true)
}

func (r *packageRepo) Update(_ context.Context, p *parcel.Package) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return r.uow.stage(p, false)
}

func (r *packageRepo) Get(_ context.Context, id kernel.UUID) (*parcel.Package, error) {
	return r.uow.store.Package(id)
}

func (r *packageRepo) FindByOrderID(_ context.Context, orderID kernel.UUID) (*parcel.Package, error) {
	for _, p := range r.uow.store.Packages() {
		if p.OrderID().IsEqual(orderID) {
			return p, nil
		}
	}
	return nil, errs.NewObjectNotFoundError("order", orderID)
}

func (r *packageRepo) FindPooled(_ context.Context, limit int) ([]*parcel.Package, error) {
	var pooled []*parcel.Package
	for _, p := range r.uow.store.Packages() {
		if p.Status() == parcel.StatusInPool {
			pooled = append(pooled, p)
		}
	}
	slices.SortFunc(pooled, func(a, b *parcel.Package) int {
		if a.Priority() != b.Priority() {
			return a.Priority() - b.Priority()
		}
		return a.AcceptedAt().Compare(b.AcceptedAt())
	})
	if len(pooled) > limit {
		pooled = pooled[:limit]
	}
	return pooled, nil
}
