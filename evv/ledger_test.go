package evv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"careloop.com/careloop/evv/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAuthorization(repo *memRepository, a model.Authorization) {
	cp := a
	repo.data.auths[a.ID] = &cp
}

func seedUsage(repo *memRepository, authID, visitID int32, units int, serviceDate time.Time) {
	repo.data.nextUsage++
	repo.data.usage = append(repo.data.usage, model.AuthorizationUsageEntry{
		ID:              repo.data.nextUsage,
		AuthorizationID: authID,
		VisitID:         visitID,
		Units:           units,
		ServiceDate:     serviceDate,
	})
}

func weeklyAuth(id int32, authorized int) model.Authorization {
	return model.Authorization{
		ID:              id,
		ClientID:        1,
		ServiceCode:     "T1019",
		UnitsAuthorized: authorized,
		UnitsPeriod:     string(PeriodWeekly),
		ISPStartDate:    date(2025, 1, 1),
		ISPEndDate:      date(2025, 12, 31),
		Status:          model.AuthorizationActive,
	}
}

func TestRecordUsageQuotaScenario(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedAuthorization(repo, weeklyAuth(1, 100))

	// 95 units already consumed this week (Sun 2025-08-24 .. Sat 2025-08-30).
	seedUsage(repo, 1, 10, 95, date(2025, 8, 25))

	ledger := NewLedger(repo)
	serviceDate := date(2025, 8, 27)

	err := ledger.RecordUsage(ctx, 1, 11, 10, serviceDate)
	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, 5, quotaErr.Available)
	assert.Equal(t, 10, quotaErr.Requested)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	// The failed request must leave no trace.
	av, err := ledger.AvailableUnits(ctx, 1, serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 5, av.Available)

	require.NoError(t, ledger.RecordUsage(ctx, 1, 12, 5, serviceDate))

	av, err = ledger.AvailableUnits(ctx, 1, serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 100, av.WindowUsed)
	assert.Equal(t, 0, av.Available)
	assert.Equal(t, 5, av.UnitsUsed)
}

func TestRecordUsageIgnoresOtherWindows(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedAuthorization(repo, weeklyAuth(1, 100))

	// Previous week's usage must not count against this week.
	seedUsage(repo, 1, 10, 95, date(2025, 8, 20))

	ledger := NewLedger(repo)
	require.NoError(t, ledger.RecordUsage(ctx, 1, 11, 60, date(2025, 8, 27)))

	av, err := ledger.AvailableUnits(ctx, 1, date(2025, 8, 27))
	require.NoError(t, err)
	assert.Equal(t, 60, av.WindowUsed)
	assert.Equal(t, 40, av.Available)
}

func TestRecordUsageISPPeriodSpansWholePlan(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()

	a := weeklyAuth(1, 100)
	a.UnitsPeriod = string(PeriodISP)
	seedAuthorization(repo, a)
	seedUsage(repo, 1, 10, 95, date(2025, 2, 1))

	ledger := NewLedger(repo)

	err := ledger.RecordUsage(ctx, 1, 11, 10, date(2025, 11, 1))
	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, 5, quotaErr.Available)
}

func TestRecordUsagePreconditions(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()

	suspended := weeklyAuth(1, 100)
	suspended.Status = model.AuthorizationSuspended
	seedAuthorization(repo, suspended)
	seedAuthorization(repo, weeklyAuth(2, 100))

	ledger := NewLedger(repo)

	err := ledger.RecordUsage(ctx, 1, 10, 4, date(2025, 8, 27))
	assert.True(t, errors.Is(err, ErrConflict))

	err = ledger.RecordUsage(ctx, 2, 10, 4, date(2026, 2, 1))
	assert.True(t, errors.Is(err, ErrValidation))

	err = ledger.RecordUsage(ctx, 2, 10, 0, date(2025, 8, 27))
	assert.True(t, errors.Is(err, ErrValidation))

	err = ledger.RecordUsage(ctx, 99, 10, 4, date(2025, 8, 27))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecordUsageConcurrentNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedAuthorization(repo, weeklyAuth(1, 100))

	ledger := NewLedger(repo)
	serviceDate := date(2025, 8, 27)

	var wg sync.WaitGroup
	results := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ledger.RecordUsage(ctx, 1, int32(100+i), 10, serviceDate)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, ErrQuotaExceeded))
		}
	}
	assert.Equal(t, 10, succeeded)

	av, err := ledger.AvailableUnits(ctx, 1, serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 100, av.WindowUsed)
	assert.Equal(t, 0, av.Available)
	assert.LessOrEqual(t, av.WindowUsed, av.UnitsAuthorized)
}
