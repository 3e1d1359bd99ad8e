package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/assetsync/internal/fixture"
	"github.com/nerrad567/assetsync/internal/registry"
)

// journal records calls across fakes so tests can assert cross-system order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeRegistry struct {
	log     *journal
	devices map[string]registry.Device
	groups  map[string]int

	createErr     error
	updateErr     error
	deleteErr     error
	associateErr  error
	panicOnCreate bool
}

func newFakeRegistry(log *journal) *fakeRegistry {
	return &fakeRegistry{
		log:     log,
		devices: make(map[string]registry.Device),
		groups:  make(map[string]int),
	}
}

func (r *fakeRegistry) Create(_ context.Context, d registry.Device) registry.CreateResult {
	r.log.add("registry.create %s", d.Serial)
	if r.panicOnCreate {
		panic("registry client exploded")
	}
	if r.createErr != nil {
		return registry.Failed(r.createErr)
	}
	if _, ok := r.devices[d.Serial]; ok {
		return registry.Conflict("serial number already exists")
	}
	r.devices[d.Serial] = d
	return registry.Created()
}

func (r *fakeRegistry) Update(_ context.Context, serial string, d registry.Device) error {
	r.log.add("registry.update %s", serial)
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.devices[serial]; !ok {
		return fmt.Errorf("%w: %s", registry.ErrDeviceNotFound, serial)
	}
	r.devices[serial] = d
	return nil
}

func (r *fakeRegistry) Delete(_ context.Context, serial string) error {
	r.log.add("registry.delete %s", serial)
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.devices[serial]; !ok {
		return fmt.Errorf("%w: %s", registry.ErrDeviceNotFound, serial)
	}
	delete(r.devices, serial)
	return nil
}

func (r *fakeRegistry) AssociateToGroup(_ context.Context, serial string, groupID int) error {
	r.log.add("registry.associate %s %d", serial, groupID)
	if r.associateErr != nil {
		return r.associateErr
	}
	r.groups[serial] = groupID
	return nil
}

type fakeStore struct {
	log  *journal
	rows map[string]fixture.Row

	beginErr  error
	insertErr error
	commitErr error
	deleteErr error

	begins    int
	commits   int
	rollbacks int
	nextID    int64
}

func newFakeStore(log *journal) *fakeStore {
	return &fakeStore{log: log, rows: make(map[string]fixture.Row)}
}

func (s *fakeStore) Begin(context.Context) (fixture.Tx, error) {
	s.log.add("fixture.begin")
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begins++
	pending := make(map[string]fixture.Row, len(s.rows))
	for k, v := range s.rows {
		pending[k] = v
	}
	return &fakeTx{s: s, pending: pending}, nil
}

func (s *fakeStore) Delete(_ context.Context, name string) error {
	s.log.add("fixture.delete %s", name)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.rows[name]; !ok {
		return fmt.Errorf("%w: %s", fixture.ErrNotFound, name)
	}
	delete(s.rows, name)
	return nil
}

type fakeTx struct {
	s       *fakeStore
	pending map[string]fixture.Row
}

func (t *fakeTx) Exists(_ context.Context, name string) (bool, error) {
	_, ok := t.pending[name]
	return ok, nil
}

func (t *fakeTx) Insert(_ context.Context, row fixture.Row) (int64, error) {
	t.s.log.add("fixture.insert %s", row.Name)
	if t.s.insertErr != nil {
		return 0, t.s.insertErr
	}
	t.s.nextID++
	row.ID = t.s.nextID
	t.pending[row.Name] = row
	return row.ID, nil
}

func (t *fakeTx) Update(_ context.Context, row fixture.Row, name string) error {
	t.s.log.add("fixture.update %s", name)
	if _, ok := t.pending[name]; !ok {
		return fmt.Errorf("%w: %s", fixture.ErrNotFound, name)
	}
	row.ID = t.pending[name].ID
	t.pending[name] = row
	return nil
}

func (t *fakeTx) Delete(_ context.Context, name string) error {
	delete(t.pending, name)
	return nil
}

func (t *fakeTx) Commit() error {
	t.s.log.add("fixture.commit")
	t.s.commits++
	if t.s.commitErr != nil {
		return t.s.commitErr
	}
	t.s.rows = t.pending
	return nil
}

func (t *fakeTx) Rollback() error {
	t.s.log.add("fixture.rollback")
	t.s.rollbacks++
	return nil
}

type fakeZones struct {
	ident string
	err   error
}

func (z fakeZones) Resolve(float64, float64) (string, error) {
	return z.ident, z.err
}
