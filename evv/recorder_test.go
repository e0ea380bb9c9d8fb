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

const (
	testClientID    = int32(1)
	testCaregiverID = int32(7)
	testVisitID     = int32(100)
)

var (
	homeGPS = GPS{Latitude: 40.7128, Longitude: -74.0060, Accuracy: 10}
	farGPS  = GPS{Latitude: 40.7528, Longitude: -74.0060, Accuracy: 10}

	clockInAt = time.Date(2025, 8, 27, 9, 0, 0, 0, time.UTC)
)

func seedVisit(repo *memRepository, authorizationID *int32) {
	repo.data.clients[testClientID] = &model.Client{
		ID:        testClientID,
		Latitude:  40.7128,
		Longitude: -74.0060,
	}
	repo.data.visits[testVisitID] = &model.Visit{
		ID:              testVisitID,
		ClientID:        testClientID,
		CaregiverID:     testCaregiverID,
		ServiceCode:     "T1019",
		ScheduledStart:  clockInAt,
		ScheduledEnd:    clockInAt.Add(2 * time.Hour),
		Status:          model.VisitStatusScheduled,
		AuthorizationID: authorizationID,
	}
}

func clockIn(visitID int32) ClockInParams {
	return ClockInParams{
		VisitID:     visitID,
		CaregiverID: testCaregiverID,
		Timestamp:   clockInAt,
		GPS:         homeGPS,
	}
}

func clockOut(visitID int32, at time.Time) ClockOutParams {
	return ClockOutParams{
		VisitID:        visitID,
		CaregiverID:    testCaregiverID,
		Timestamp:      at,
		GPS:            homeGPS,
		TasksCompleted: []string{"bathing", "meal prep"},
		Notes:          "client in good spirits",
	}
}

func TestClockInHappyPath(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedVisit(repo, nil)
	rec := NewRecorder(repo)

	res, err := rec.ClockIn(ctx, clockIn(testVisitID))
	require.NoError(t, err)
	assert.NotEmpty(t, res.EVVRecordID)
	assert.Equal(t, clockInAt, res.ClockInTime)
	assert.True(t, res.GeofenceValid)
	assert.Equal(t, 0.0, res.DistanceMeters)

	visit := repo.data.visits[testVisitID]
	assert.Equal(t, model.VisitStatusInProgress, visit.Status)
	require.NotNil(t, visit.ActualStart)
	assert.Equal(t, clockInAt, *visit.ActualStart)

	evv := repo.data.records[testVisitID]
	require.NotNil(t, evv)
	assert.Equal(t, model.GeofenceInside, evv.ClockInGeofence)
	assert.Equal(t, model.ValidationValid, evv.ValidationStatus)
	assert.Equal(t, model.SandataPending, evv.SandataStatus)
}

func TestClockInOutsideGeofenceStillSucceeds(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedVisit(repo, nil)
	rec := NewRecorder(repo)

	p := clockIn(testVisitID)
	p.GPS = farGPS

	res, err := rec.ClockIn(ctx, p)
	require.NoError(t, err)
	assert.False(t, res.GeofenceValid)
	assert.Greater(t, res.DistanceMeters, DefaultGeofenceRadiusM)
	assert.Equal(t, model.GeofenceOutside, repo.data.records[testVisitID].ClockInGeofence)
}

func TestClockInErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown visit", func(t *testing.T) {
		repo := newMemRepository()
		seedVisit(repo, nil)
		_, err := NewRecorder(repo).ClockIn(ctx, clockIn(999))
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("wrong caregiver", func(t *testing.T) {
		repo := newMemRepository()
		seedVisit(repo, nil)
		p := clockIn(testVisitID)
		p.CaregiverID = 8
		_, err := NewRecorder(repo).ClockIn(ctx, p)
		assert.True(t, errors.Is(err, ErrForbidden))
	})

	t.Run("already clocked in", func(t *testing.T) {
		repo := newMemRepository()
		seedVisit(repo, nil)
		rec := NewRecorder(repo)
		_, err := rec.ClockIn(ctx, clockIn(testVisitID))
		require.NoError(t, err)
		_, err = rec.ClockIn(ctx, clockIn(testVisitID))
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("cancelled visit", func(t *testing.T) {
		repo := newMemRepository()
		seedVisit(repo, nil)
		repo.data.visits[testVisitID].Status = model.VisitStatusCancelled
		_, err := NewRecorder(repo).ClockIn(ctx, clockIn(testVisitID))
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("negative accuracy", func(t *testing.T) {
		repo := newMemRepository()
		seedVisit(repo, nil)
		p := clockIn(testVisitID)
		p.GPS.Accuracy = -1
		_, err := NewRecorder(repo).ClockIn(ctx, p)
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("missing timestamp", func(t *testing.T) {
		repo := newMemRepository()
		seedVisit(repo, nil)
		p := clockIn(testVisitID)
		p.Timestamp = time.Time{}
		_, err := NewRecorder(repo).ClockIn(ctx, p)
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("out of range coordinates", func(t *testing.T) {
		repo := newMemRepository()
		seedVisit(repo, nil)
		p := clockIn(testVisitID)
		p.GPS.Latitude = 95
		_, err := NewRecorder(repo).ClockIn(ctx, p)
		assert.True(t, errors.Is(err, ErrValidation))
	})
}

func TestClockOutRequiresClockIn(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedVisit(repo, nil)

	_, err := NewRecorder(repo).ClockOut(ctx, clockOut(testVisitID, clockInAt.Add(time.Hour)))
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestClockOutCompletesVisit(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedVisit(repo, nil)
	rec := NewRecorder(repo)

	_, err := rec.ClockIn(ctx, clockIn(testVisitID))
	require.NoError(t, err)

	res, err := rec.ClockOut(ctx, clockOut(testVisitID, clockInAt.Add(65*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, 65, res.DurationMinutes)
	assert.Equal(t, 5, res.BillableUnits)
	assert.Equal(t, model.SandataReadyToSubmit, res.SandataStatus)
	assert.Equal(t, model.ValidationValid, res.ValidationStatus)
	assert.Nil(t, res.QuotaFinding)

	visit := repo.data.visits[testVisitID]
	assert.Equal(t, model.VisitStatusCompleted, visit.Status)
	require.NotNil(t, visit.ActualEnd)

	evv := repo.data.records[testVisitID]
	require.NotNil(t, evv.BillableUnits)
	assert.Equal(t, 5, *evv.BillableUnits)
	assert.JSONEq(t, `["bathing","meal prep"]`, evv.TasksCompleted)
	assert.Equal(t, "client in good spirits", evv.Notes)
	assert.Equal(t, model.SandataReadyToSubmit, evv.SandataStatus)

	// A second clock-out is a conflict, not a silent overwrite.
	_, err = rec.ClockOut(ctx, clockOut(testVisitID, clockInAt.Add(2*time.Hour)))
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestClockOutBeforeClockInTimestampRejected(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedVisit(repo, nil)
	rec := NewRecorder(repo)

	_, err := rec.ClockIn(ctx, clockIn(testVisitID))
	require.NoError(t, err)

	_, err = rec.ClockOut(ctx, clockOut(testVisitID, clockInAt.Add(-time.Minute)))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestClockOutRecordsAuthorizationUsage(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	authID := int32(1)
	seedVisit(repo, &authID)
	seedAuthorization(repo, weeklyAuth(authID, 100))
	rec := NewRecorder(repo)

	_, err := rec.ClockIn(ctx, clockIn(testVisitID))
	require.NoError(t, err)

	res, err := rec.ClockOut(ctx, clockOut(testVisitID, clockInAt.Add(60*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, 4, res.BillableUnits)
	assert.Nil(t, res.QuotaFinding)

	require.Len(t, repo.data.usage, 1)
	entry := repo.data.usage[0]
	assert.Equal(t, authID, entry.AuthorizationID)
	assert.Equal(t, testVisitID, entry.VisitID)
	assert.Equal(t, 4, entry.Units)
	assert.Equal(t, date(2025, 8, 27), entry.ServiceDate)
	assert.Equal(t, 4, repo.data.auths[authID].UnitsUsed)
}

func TestClockOutQuotaExceededFlagsWarning(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	authID := int32(1)
	seedVisit(repo, &authID)
	seedAuthorization(repo, weeklyAuth(authID, 100))
	seedUsage(repo, authID, 50, 98, date(2025, 8, 25))
	rec := NewRecorder(repo)

	_, err := rec.ClockIn(ctx, clockIn(testVisitID))
	require.NoError(t, err)

	// 65 minutes is 5 units; only 2 remain this week. The visit happened, so the
	// clock-out must still be written, flagged for billing review.
	res, err := rec.ClockOut(ctx, clockOut(testVisitID, clockInAt.Add(65*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, model.ValidationWarning, res.ValidationStatus)
	require.NotNil(t, res.QuotaFinding)
	assert.Equal(t, 2, res.QuotaFinding.Available)
	assert.Equal(t, 5, res.QuotaFinding.Requested)

	// No usage may be booked past the quota.
	assert.Len(t, repo.data.usage, 1)
	assert.Equal(t, 0, repo.data.auths[authID].UnitsUsed)
	assert.Equal(t, model.ValidationWarning, repo.data.records[testVisitID].ValidationStatus)
	assert.Equal(t, model.VisitStatusCompleted, repo.data.visits[testVisitID].Status)
}

func TestClockInIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedVisit(repo, nil)
	rec := NewRecorder(repo)

	p := clockIn(testVisitID)
	p.DeviceID = "device-1"
	p.IdempotencyToken = "tok-1"

	_, err := rec.ClockIn(ctx, p)
	require.NoError(t, err)

	// A retry after a timeout-after-commit replays the same token.
	_, err = rec.ClockIn(ctx, p)
	assert.True(t, errors.Is(err, ErrDuplicateMutation))

	// State unchanged: still exactly one EVV record, visit still in progress.
	assert.Len(t, repo.data.records, 1)
	assert.Equal(t, model.VisitStatusInProgress, repo.data.visits[testVisitID].Status)
}

func TestConcurrentClockInExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepository()
	seedVisit(repo, nil)
	rec := NewRecorder(repo)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = rec.ClockIn(ctx, clockIn(testVisitID))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrConflict))
		}
	}
	assert.Equal(t, 1, winners)
}
