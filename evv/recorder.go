package evv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"careloop.com/careloop/evv/model"
	"github.com/google/uuid"
)

// GPS is the location payload captured on the device at a clock event.
type GPS struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

type ClockInParams struct {
	VisitID     int32
	CaregiverID int32
	Timestamp   time.Time
	GPS         GPS

	// DeviceID and IdempotencyToken identify a queued offline mutation so a
	// replay after a timeout-after-commit is detected, not double-applied.
	DeviceID         string
	IdempotencyToken string
}

type ClockInResult struct {
	EVVRecordID    string
	ClockInTime    time.Time
	GeofenceValid  bool
	DistanceMeters float64
}

type ClockOutParams struct {
	VisitID        int32
	CaregiverID    int32
	Timestamp      time.Time
	GPS            GPS
	TasksCompleted []string
	Notes          string

	DeviceID         string
	IdempotencyToken string
}

type ClockOutResult struct {
	EVVRecordID      string
	ClockOutTime     time.Time
	GeofenceValid    bool
	DistanceMeters   float64
	DurationMinutes  int
	BillableUnits    int
	SandataStatus    string
	ValidationStatus string

	// QuotaFinding is set when the visit's authorization could not admit the
	// billed units. The clock-out itself still succeeds; a visit that occurred
	// must be documented. Billing review picks the finding up.
	QuotaFinding *QuotaExceededError
}

// Recorder owns the per-visit clock state machine:
// scheduled -> in_progress on clock-in, in_progress -> completed on clock-out.
// Missed and cancelled visits refuse clock operations.
type Recorder struct {
	repo        Repository
	unitMinutes int
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, unitMinutes: DefaultUnitMinutes}
}

// ClockIn validates the caregiver's arrival and opens the EVV record.
// A geofence miss is recorded, never rejected.
func (r *Recorder) ClockIn(ctx context.Context, p ClockInParams) (*ClockInResult, error) {
	if err := validateClockEvent(p.Timestamp, p.GPS); err != nil {
		return nil, err
	}

	if p.IdempotencyToken != "" {
		seen, err := r.repo.MutationSeen(ctx, p.DeviceID, p.IdempotencyToken)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, fmt.Errorf("clock-in token %s: %w", p.IdempotencyToken, ErrDuplicateMutation)
		}
	}

	visit, err := r.repo.VisitByID(ctx, p.VisitID)
	if err != nil {
		return nil, err
	}
	if visit.CaregiverID != p.CaregiverID {
		return nil, fmt.Errorf("visit %d: %w", visit.ID, ErrForbidden)
	}
	if visit.Status != model.VisitStatusScheduled {
		return nil, fmt.Errorf("visit %d is %s: %w", visit.ID, visit.Status, ErrConflict)
	}

	geo, err := r.checkGeofence(ctx, visit.ClientID, p.GPS)
	if err != nil {
		return nil, err
	}

	rec := &model.EVVRecord{
		ID:               uuid.NewString(),
		VisitID:          visit.ID,
		ClockInTime:      &p.Timestamp,
		ClockInLatitude:  &p.GPS.Latitude,
		ClockInLongitude: &p.GPS.Longitude,
		ClockInAccuracy:  &p.GPS.Accuracy,
		ClockInGeofence:  geofenceStatus(geo),
		ClockInDistanceM: &geo.DistanceMeters,
		ValidationStatus: model.ValidationValid,
		SandataStatus:    model.SandataPending,
	}

	err = r.repo.InTx(ctx, func(tx Repository) error {
		ok, err := tx.StartVisit(ctx, visit.ID, p.Timestamp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("visit %d already clocked in: %w", visit.ID, ErrConflict)
		}
		if err := tx.CreateEVVRecord(ctx, rec); err != nil {
			return err
		}
		return recordMutation(ctx, tx, "clock-in", visit.ID, p.DeviceID, p.IdempotencyToken)
	})
	if err != nil {
		return nil, err
	}

	return &ClockInResult{
		EVVRecordID:    rec.ID,
		ClockInTime:    p.Timestamp,
		GeofenceValid:  geo.WithinRadius,
		DistanceMeters: geo.DistanceMeters,
	}, nil
}

// ClockOut closes the visit: departure geofence, billable units, and, when the
// visit draws on a unit authorization, quota admission. A quota failure flags the
// record instead of rejecting the write.
func (r *Recorder) ClockOut(ctx context.Context, p ClockOutParams) (*ClockOutResult, error) {
	if err := validateClockEvent(p.Timestamp, p.GPS); err != nil {
		return nil, err
	}

	if p.IdempotencyToken != "" {
		seen, err := r.repo.MutationSeen(ctx, p.DeviceID, p.IdempotencyToken)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, fmt.Errorf("clock-out token %s: %w", p.IdempotencyToken, ErrDuplicateMutation)
		}
	}

	visit, err := r.repo.VisitByID(ctx, p.VisitID)
	if err != nil {
		return nil, err
	}
	if visit.CaregiverID != p.CaregiverID {
		return nil, fmt.Errorf("visit %d: %w", visit.ID, ErrForbidden)
	}
	if visit.Status != model.VisitStatusInProgress || visit.ActualStart == nil {
		return nil, fmt.Errorf("visit %d is %s, not in progress: %w", visit.ID, visit.Status, ErrConflict)
	}

	geo, err := r.checkGeofence(ctx, visit.ClientID, p.GPS)
	if err != nil {
		return nil, err
	}

	units, err := BillableUnits(*visit.ActualStart, p.Timestamp, r.unitMinutes)
	if err != nil {
		return nil, err
	}

	tasks, err := json.Marshal(p.TasksCompleted)
	if err != nil {
		return nil, err
	}

	result := &ClockOutResult{
		ClockOutTime:     p.Timestamp,
		GeofenceValid:    geo.WithinRadius,
		DistanceMeters:   geo.DistanceMeters,
		DurationMinutes:  int(p.Timestamp.Sub(*visit.ActualStart) / time.Minute),
		BillableUnits:    units,
		SandataStatus:    model.SandataReadyToSubmit,
		ValidationStatus: model.ValidationValid,
	}

	err = r.repo.InTx(ctx, func(tx Repository) error {
		ok, err := tx.FinishVisit(ctx, visit.ID, p.Timestamp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("visit %d already clocked out: %w", visit.ID, ErrConflict)
		}

		rec, err := tx.EVVRecordByVisit(ctx, visit.ID)
		if err != nil {
			return err
		}
		if rec.SandataStatus == model.SandataSubmitted {
			return fmt.Errorf("evv record %s already submitted: %w", rec.ID, ErrConflict)
		}

		if visit.AuthorizationID != nil && units > 0 {
			serviceDate := *visit.ActualStart
			ledgerErr := recordUsage(ctx, tx, *visit.AuthorizationID, visit.ID, units, serviceDate)

			var quotaErr *QuotaExceededError
			switch {
			case ledgerErr == nil:
			case errors.As(ledgerErr, &quotaErr):
				result.ValidationStatus = model.ValidationWarning
				result.QuotaFinding = quotaErr
			case errors.Is(ledgerErr, ErrConflict) || errors.Is(ledgerErr, ErrValidation):
				// Inactive or out-of-range authorization. Same policy as quota:
				// document the visit, flag the record for billing review.
				result.ValidationStatus = model.ValidationWarning
			default:
				return ledgerErr
			}
		}

		rec.ClockOutTime = &p.Timestamp
		rec.ClockOutLatitude = &p.GPS.Latitude
		rec.ClockOutLongitude = &p.GPS.Longitude
		rec.ClockOutAccuracy = &p.GPS.Accuracy
		rec.ClockOutGeofence = geofenceStatus(geo)
		rec.ClockOutDistanceM = &geo.DistanceMeters
		rec.BillableUnits = &units
		rec.TasksCompleted = string(tasks)
		rec.Notes = p.Notes
		rec.ValidationStatus = result.ValidationStatus
		rec.SandataStatus = model.SandataReadyToSubmit

		if err := tx.SaveEVVRecord(ctx, rec); err != nil {
			return err
		}
		result.EVVRecordID = rec.ID

		return recordMutation(ctx, tx, "clock-out", visit.ID, p.DeviceID, p.IdempotencyToken)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *Recorder) checkGeofence(ctx context.Context, clientID int32, gps GPS) (GeofenceResult, error) {
	client, err := r.repo.ClientByID(ctx, clientID)
	if err != nil {
		return GeofenceResult{}, err
	}

	radius := client.GeofenceRadiusM
	if radius <= 0 {
		radius = DefaultGeofenceRadiusM
	}

	return CheckGeofence(
		Coordinate{Latitude: gps.Latitude, Longitude: gps.Longitude},
		Coordinate{Latitude: client.Latitude, Longitude: client.Longitude},
		radius,
	)
}

func validateClockEvent(ts time.Time, gps GPS) error {
	if ts.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "missing"}
	}
	if gps.Accuracy < 0 {
		return &ValidationError{Field: "gps.accuracy", Reason: "must be non-negative"}
	}
	return nil
}

func geofenceStatus(g GeofenceResult) string {
	if g.WithinRadius {
		return model.GeofenceInside
	}
	return model.GeofenceOutside
}

func recordMutation(ctx context.Context, tx Repository, kind string, visitID int32, deviceID, token string) error {
	if token == "" {
		return nil
	}
	return tx.RecordMutation(ctx, &model.SyncedMutation{
		DeviceID:         deviceID,
		IdempotencyToken: token,
		Kind:             kind,
		VisitID:          visitID,
	})
}
