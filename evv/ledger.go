package evv

import (
	"context"
	"fmt"
	"time"

	"careloop.com/careloop/evv/model"
)

// Availability describes the quota state of one authorization window.
type Availability struct {
	AuthorizationID int32
	Window          Window
	UnitsAuthorized int
	WindowUsed      int
	Available       int

	// UnitsUsed is the running counter across the whole authorization.
	UnitsUsed int
}

// UtilizationPercent is window usage relative to the authorized quota.
func (a *Availability) UtilizationPercent() float64 {
	if a.UnitsAuthorized == 0 {
		return 0
	}
	return float64(a.WindowUsed) / float64(a.UnitsAuthorized) * 100
}

// Ledger owns per-authorization unit bookkeeping. Usage entries are append-only;
// the running counter on the authorization row is derived from them.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// AvailableUnits computes the remaining quota for the window containing serviceDate.
func (l *Ledger) AvailableUnits(ctx context.Context, authorizationID int32, serviceDate time.Time) (*Availability, error) {
	auth, err := l.repo.AuthorizationByID(ctx, authorizationID)
	if err != nil {
		return nil, err
	}
	return availability(ctx, l.repo, auth, serviceDate)
}

// RecordUsage admits or rejects unit consumption for a visit. The availability
// check, the usage-entry append and the counter increment run in one transaction
// with the authorization row locked, so two concurrent clock-outs cannot jointly
// overdraw the window.
func (l *Ledger) RecordUsage(ctx context.Context, authorizationID, visitID int32, units int, serviceDate time.Time) error {
	return l.repo.InTx(ctx, func(tx Repository) error {
		return recordUsage(ctx, tx, authorizationID, visitID, units, serviceDate)
	})
}

// recordUsage must run inside a transaction; the recorder calls it with its own
// tx so a clock-out and its usage entry commit together.
func recordUsage(ctx context.Context, tx Repository, authorizationID, visitID int32, units int, serviceDate time.Time) error {
	if units <= 0 {
		return &ValidationError{Field: "units", Reason: "must be positive"}
	}

	auth, err := tx.AuthorizationForUpdate(ctx, authorizationID)
	if err != nil {
		return err
	}

	if auth.Status != model.AuthorizationActive {
		return fmt.Errorf("authorization %d is %s: %w", auth.ID, auth.Status, ErrConflict)
	}

	ispWindow := Window{Start: dateOnly(auth.ISPStartDate), End: dateOnly(auth.ISPEndDate)}
	if !ispWindow.Contains(serviceDate) {
		return &ValidationError{Field: "serviceDate", Reason: "outside ISP period " + ispWindow.String()}
	}

	av, err := availability(ctx, tx, auth, serviceDate)
	if err != nil {
		return err
	}

	if units > av.Available {
		return &QuotaExceededError{
			AuthorizationID: auth.ID,
			Available:       av.Available,
			Requested:       units,
		}
	}

	entry := &model.AuthorizationUsageEntry{
		AuthorizationID: auth.ID,
		VisitID:         visitID,
		Units:           units,
		ServiceDate:     dateOnly(serviceDate),
	}
	if err := tx.AppendUsageEntry(ctx, entry); err != nil {
		return err
	}
	return tx.AddUsedUnits(ctx, auth.ID, units)
}

func availability(ctx context.Context, repo Repository, auth *model.Authorization, serviceDate time.Time) (*Availability, error) {
	w, err := WindowFor(UnitsPeriod(auth.UnitsPeriod), serviceDate, auth.ISPStartDate, auth.ISPEndDate)
	if err != nil {
		return nil, err
	}

	used, err := repo.UsedUnitsInWindow(ctx, auth.ID, w)
	if err != nil {
		return nil, err
	}

	return &Availability{
		AuthorizationID: auth.ID,
		Window:          w,
		UnitsAuthorized: auth.UnitsAuthorized,
		WindowUsed:      used,
		Available:       auth.UnitsAuthorized - used,
		UnitsUsed:       auth.UnitsUsed,
	}, nil
}
