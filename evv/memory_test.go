package evv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"careloop.com/careloop/evv/model"
)

// memRepository is the test double for Repository. InTx holds one mutex for the
// whole callback, which models the row-locked transaction the gorm
// implementation gets from the database.
type memRepository struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

type memData struct {
	visits    map[int32]*model.Visit
	clients   map[int32]*model.Client
	records   map[int32]*model.EVVRecord
	auths     map[int32]*model.Authorization
	usage     []model.AuthorizationUsageEntry
	mutations map[string]bool
	nextUsage int64
}

func newMemRepository() *memRepository {
	return &memRepository{
		mu: &sync.Mutex{},
		data: &memData{
			visits:    make(map[int32]*model.Visit),
			clients:   make(map[int32]*model.Client),
			records:   make(map[int32]*model.EVVRecord),
			auths:     make(map[int32]*model.Authorization),
			mutations: make(map[string]bool),
		},
	}
}

func (r *memRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *memRepository) VisitByID(_ context.Context, id int32) (*model.Visit, error) {
	defer r.lock()()
	v, ok := r.data.visits[id]
	if !ok {
		return nil, fmt.Errorf("visit %d: %w", id, ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func (r *memRepository) ClientByID(_ context.Context, id int32) (*model.Client, error) {
	defer r.lock()()
	c, ok := r.data.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", id, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *memRepository) StartVisit(_ context.Context, visitID int32, at time.Time) (bool, error) {
	defer r.lock()()
	v, ok := r.data.visits[visitID]
	if !ok || v.Status != model.VisitStatusScheduled || v.ActualStart != nil {
		return false, nil
	}
	v.Status = model.VisitStatusInProgress
	t := at
	v.ActualStart = &t
	return true, nil
}

func (r *memRepository) FinishVisit(_ context.Context, visitID int32, at time.Time) (bool, error) {
	defer r.lock()()
	v, ok := r.data.visits[visitID]
	if !ok || v.Status != model.VisitStatusInProgress || v.ActualEnd != nil {
		return false, nil
	}
	v.Status = model.VisitStatusCompleted
	t := at
	v.ActualEnd = &t
	return true, nil
}

func (r *memRepository) CreateEVVRecord(_ context.Context, rec *model.EVVRecord) error {
	defer r.lock()()
	cp := *rec
	r.data.records[rec.VisitID] = &cp
	return nil
}

func (r *memRepository) EVVRecordByVisit(_ context.Context, visitID int32) (*model.EVVRecord, error) {
	defer r.lock()()
	rec, ok := r.data.records[visitID]
	if !ok {
		return nil, fmt.Errorf("evv record for visit %d: %w", visitID, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r *memRepository) SaveEVVRecord(_ context.Context, rec *model.EVVRecord) error {
	defer r.lock()()
	cp := *rec
	r.data.records[rec.VisitID] = &cp
	return nil
}

func (r *memRepository) AuthorizationByID(_ context.Context, id int32) (*model.Authorization, error) {
	defer r.lock()()
	a, ok := r.data.auths[id]
	if !ok {
		return nil, fmt.Errorf("authorization %d: %w", id, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r *memRepository) AuthorizationForUpdate(ctx context.Context, id int32) (*model.Authorization, error) {
	return r.AuthorizationByID(ctx, id)
}

func (r *memRepository) UsedUnitsInWindow(_ context.Context, authorizationID int32, w Window) (int, error) {
	defer r.lock()()
	used := 0
	for _, e := range r.data.usage {
		if e.AuthorizationID == authorizationID && w.Contains(e.ServiceDate) {
			used += e.Units
		}
	}
	return used, nil
}

func (r *memRepository) UsageEntriesInWindow(_ context.Context, authorizationID int32, w Window) ([]model.AuthorizationUsageEntry, error) {
	defer r.lock()()
	var out []model.AuthorizationUsageEntry
	for _, e := range r.data.usage {
		if e.AuthorizationID == authorizationID && w.Contains(e.ServiceDate) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepository) AppendUsageEntry(_ context.Context, e *model.AuthorizationUsageEntry) error {
	defer r.lock()()
	r.data.nextUsage++
	cp := *e
	cp.ID = r.data.nextUsage
	r.data.usage = append(r.data.usage, cp)
	return nil
}

func (r *memRepository) AddUsedUnits(_ context.Context, authorizationID int32, units int) error {
	defer r.lock()()
	a, ok := r.data.auths[authorizationID]
	if !ok {
		return fmt.Errorf("authorization %d: %w", authorizationID, ErrNotFound)
	}
	a.UnitsUsed += units
	return nil
}

func (r *memRepository) MutationSeen(_ context.Context, deviceID, token string) (bool, error) {
	defer r.lock()()
	return r.data.mutations[deviceID+"|"+token], nil
}

func (r *memRepository) RecordMutation(_ context.Context, m *model.SyncedMutation) error {
	defer r.lock()()
	key := m.DeviceID + "|" + m.IdempotencyToken
	if r.data.mutations[key] {
		return fmt.Errorf("mutation %s: %w", key, ErrDuplicateMutation)
	}
	r.data.mutations[key] = true
	return nil
}

func (r *memRepository) SearchVisits(_ context.Context, q VisitSearch) ([]model.Visit, int64, error) {
	defer r.lock()()
	var out []model.Visit
	for _, v := range r.data.visits {
		if v.ScheduledStart.Before(q.StartDate) || !v.ScheduledStart.Before(q.EndDate.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (r *memRepository) InTx(_ context.Context, fn func(tx Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&memRepository{mu: r.mu, data: r.data, inTx: true})
}
