package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

// memRepo is an in-memory Repository. calls records write operations in order.
type memRepo struct {
	mu           sync.Mutex
	items        map[uuid.UUID]Appointment
	events       []EventLog
	calls        []string
	overlapCalls int
	lastFilter   ListFilter

	failStatusUpdate error
	failCreate       error
}

func newMemRepo(seed ...Appointment) *memRepo {
	r := &memRepo{items: map[uuid.UUID]Appointment{}}
	for _, a := range seed {
		r.items[a.ID] = a
	}
	return r
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) ListAppointments(_ context.Context, f ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	var out []Appointment
	for _, a := range r.items {
		if f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *memRepo) FindOverlapping(_ context.Context, q OverlapQuery) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlapCalls++
	for _, a := range r.items {
		if !a.Status.IsActive() || a.ID == q.ExcludeID {
			continue
		}
		owner := a.ProfessionalID
		if q.Axis == AxisPatient {
			owner = a.PatientID
		}
		if owner == q.ID && availability.Overlaps(a.Start, a.End, q.Start, q.End) {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memRepo) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "create")
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.items[a.ID] = a
	return &a, nil
}

func (r *memRepo) UpdateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "update")
	cur, ok := r.items[a.ID]
	if !ok || cur.Status == StatusRescheduled {
		return nil, ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now()
	r.items[a.ID] = a
	return &a, nil
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "update_status:"+to.String())
	if r.failStatusUpdate != nil {
		return nil, r.failStatusUpdate
	}
	a, ok := r.items[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	r.items[id] = a
	return &a, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *memRepo) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	r.mu.Lock()
	snapshot := make(map[uuid.UUID]Appointment, len(r.items))
	for k, v := range r.items {
		snapshot[k] = v
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.items = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

func (r *memRepo) byStatus(s Status) []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.items {
		if a.Status == s {
			out = append(out, a)
		}
	}
	return out
}

type stubValidator struct {
	mu       sync.Mutex
	warnings []availability.Warning
	err      error
	calls    int
}

func (v *stubValidator) Validate(context.Context, availability.Request) ([]availability.Warning, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.warnings, v.err
}

type stubLocker struct {
	err  error
	keys []string
}

func (l *stubLocker) WithBookingLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	l.keys = keys
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}
