package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"portal-service/internal/domain/payment"
	"portal-service/internal/domain/project"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*project.Project
	payments []*payment.Payment
	writes   int
	listErr  error
}

func newMemStore() *memStore {
	return &memStore{projects: map[uuid.UUID]*project.Project{}}
}

func (m *memStore) addProject(status project.Status) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.projects[id] = &project.Project{ID: id, Status: status}
	return id
}

func (m *memStore) addPayment(projectID uuid.UUID, typ payment.Type, status payment.Status) *payment.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &payment.Payment{ID: uuid.New(), ProjectID: projectID, Type: typ, Status: status}
	m.payments = append(m.payments, p)
	return p
}

func (m *memStore) setStatus(p *payment.Payment, status payment.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Status = status
}

func (m *memStore) status(id uuid.UUID) project.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[id].Status
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, errors.New("project not found")
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) AdvanceStatus(_ context.Context, in project.AdvanceStatusInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.projects[in.ProjectID]
	for _, from := range in.From {
		if p.Status == from {
			p.Status = in.To
			m.writes++
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListByProject(_ context.Context, projectID uuid.UUID, status *payment.Status) ([]*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*payment.Payment
	for _, p := range m.payments {
		if p.ProjectID == projectID && (status == nil || p.Status == *status) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newResolver(store *memStore) *Resolver {
	return NewResolver(store, store, zerolog.Nop())
}

func TestFold(t *testing.T) {
	pay := func(typ payment.Type, status payment.Status) *payment.Payment {
		return &payment.Payment{Type: typ, Status: status}
	}

	tests := []struct {
		name     string
		payments []*payment.Payment
		want     project.Status
	}{
		{"empty", nil, project.StatusConfirmed},
		{"initial", []*payment.Payment{pay(payment.TypeInitial, payment.StatusSucceeded)}, project.StatusInProgress},
		{"final alone", []*payment.Payment{pay(payment.TypeFinal, payment.StatusSucceeded)}, project.StatusCompleted},
		{"initial and final", []*payment.Payment{
			pay(payment.TypeInitial, payment.StatusSucceeded),
			pay(payment.TypeFinal, payment.StatusSucceeded),
		}, project.StatusCompleted},
		{"pending final ignored", []*payment.Payment{
			pay(payment.TypeInitial, payment.StatusSucceeded),
			pay(payment.TypeFinal, payment.StatusPending),
		}, project.StatusInProgress},
		{"failed initial ignored", []*payment.Payment{pay(payment.TypeInitial, payment.StatusFailed)}, project.StatusConfirmed},
		{"maintenance only", []*payment.Payment{pay(payment.TypeMaintenance, payment.StatusSucceeded)}, project.StatusConfirmed},
		{"nil entry", []*payment.Payment{nil, pay(payment.TypeInitial, payment.StatusSucceeded)}, project.StatusInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.payments))
		})
	}
}

func TestResolveInitialThenFinal(t *testing.T) {
	store := newMemStore()
	id := store.addProject(project.StatusConfirmed)
	store.addPayment(id, payment.TypeInitial, payment.StatusSucceeded)
	final := store.addPayment(id, payment.TypeFinal, payment.StatusPending)
	r := newResolver(store)

	res, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, project.StatusInProgress, res.Current)
	assert.True(t, res.Changed)

	store.setStatus(final, payment.StatusSucceeded)

	res, err = r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, project.StatusInProgress, res.Previous)
	assert.Equal(t, project.StatusCompleted, res.Current)
	assert.Equal(t, project.StatusCompleted, store.status(id))
}

func TestResolveIsIdempotent(t *testing.T) {
	store := newMemStore()
	id := store.addProject(project.StatusConfirmed)
	store.addPayment(id, payment.TypeInitial, payment.StatusSucceeded)
	r := newResolver(store)

	_, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	res, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Equal(t, 1, store.writes)
}

func TestResolveNeverRegresses(t *testing.T) {
	tests := []struct {
		name    string
		current project.Status
		typ     payment.Type
	}{
		{"completed with initial only", project.StatusCompleted, payment.TypeInitial},
		{"in design with initial", project.StatusInDesign, payment.TypeInitial},
		{"in progress with maintenance", project.StatusInProgress, payment.TypeMaintenance},
		{"review with maintenance", project.StatusReview, payment.TypeMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			id := store.addProject(tt.current)
			store.addPayment(id, tt.typ, payment.StatusSucceeded)

			res, err := newResolver(store).Resolve(context.Background(), id)
			require.NoError(t, err)

			assert.False(t, res.Changed)
			assert.Equal(t, tt.current, store.status(id))
			assert.Zero(t, store.writes)
		})
	}
}

func TestResolveWithoutPaymentsAppliesFloor(t *testing.T) {
	store := newMemStore()
	id := store.addProject(project.StatusSubmitted)
	store.addPayment(id, payment.TypeInitial, payment.StatusPending)

	res, err := newResolver(store).Resolve(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, project.StatusConfirmed, res.Current)
	assert.Equal(t, project.StatusConfirmed, store.status(id))

	started := store.addProject(project.StatusInDesign)
	res, err = newResolver(store).Resolve(context.Background(), started)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Equal(t, project.StatusInDesign, store.status(started))
}

func TestResolveLiftsEarlyProjectsToEvidence(t *testing.T) {
	store := newMemStore()
	id := store.addProject(project.StatusWaitingForConfirmation)
	store.addPayment(id, payment.TypeMaintenance, payment.StatusSucceeded)

	res, err := newResolver(store).Resolve(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, project.StatusConfirmed, store.status(id))
}

func TestResolveConcurrentConverges(t *testing.T) {
	store := newMemStore()
	id := store.addProject(project.StatusConfirmed)
	store.addPayment(id, payment.TypeInitial, payment.StatusSucceeded)
	store.addPayment(id, payment.TypeFinal, payment.StatusSucceeded)
	r := newResolver(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	changed := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), id)
			assert.NoError(t, err)
			if res != nil && res.Changed {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, project.StatusCompleted, store.status(id))
	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, store.writes)
}

func TestResolveMonotonicUnderAnyOrder(t *testing.T) {
	store := newMemStore()
	id := store.addProject(project.StatusConfirmed)
	initial := store.addPayment(id, payment.TypeInitial, payment.StatusPending)
	final := store.addPayment(id, payment.TypeFinal, payment.StatusPending)
	r := newResolver(store)

	store.setStatus(final, payment.StatusSucceeded)
	_, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, project.StatusCompleted, store.status(id))

	store.setStatus(initial, payment.StatusSucceeded)
	_, err = r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, project.StatusCompleted, store.status(id))
}

func TestResolvePropagatesListError(t *testing.T) {
	store := newMemStore()
	id := store.addProject(project.StatusConfirmed)
	store.listErr = errors.New("connection reset")

	_, err := newResolver(store).Resolve(context.Background(), id)
	assert.ErrorIs(t, err, store.listErr)
	assert.Equal(t, project.StatusConfirmed, store.status(id))
}
