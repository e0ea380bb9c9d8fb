package evv

import (
	"context"
	"time"

	"careloop.com/careloop/evv/model"
)

// VisitSearch filters the visit listing for review screens.
type VisitSearch struct {
	StartDate  time.Time
	EndDate    time.Time
	Caregivers []int32
	Clients    []int32
	Limit      int
	Offset     int
}

// Repository is the persistence boundary for the visit verification core.
// The gorm implementation backs production; tests use an in-memory one.
type Repository interface {
	VisitByID(ctx context.Context, id int32) (*model.Visit, error)
	ClientByID(ctx context.Context, id int32) (*model.Client, error)

	// StartVisit transitions scheduled -> in_progress iff actual_start is still
	// null. Returns false when the conditional update matched no row, which is
	// how the loser of two concurrent clock-ins finds out.
	StartVisit(ctx context.Context, visitID int32, at time.Time) (bool, error)

	// FinishVisit transitions in_progress -> completed iff actual_end is still null.
	FinishVisit(ctx context.Context, visitID int32, at time.Time) (bool, error)

	CreateEVVRecord(ctx context.Context, rec *model.EVVRecord) error
	EVVRecordByVisit(ctx context.Context, visitID int32) (*model.EVVRecord, error)
	SaveEVVRecord(ctx context.Context, rec *model.EVVRecord) error

	AuthorizationByID(ctx context.Context, id int32) (*model.Authorization, error)

	// AuthorizationForUpdate locks the authorization row for the remainder of the
	// surrounding transaction. Only valid inside InTx.
	AuthorizationForUpdate(ctx context.Context, id int32) (*model.Authorization, error)

	UsedUnitsInWindow(ctx context.Context, authorizationID int32, w Window) (int, error)
	UsageEntriesInWindow(ctx context.Context, authorizationID int32, w Window) ([]model.AuthorizationUsageEntry, error)
	AppendUsageEntry(ctx context.Context, e *model.AuthorizationUsageEntry) error
	AddUsedUnits(ctx context.Context, authorizationID int32, units int) error

	MutationSeen(ctx context.Context, deviceID, token string) (bool, error)
	RecordMutation(ctx context.Context, m *model.SyncedMutation) error

	SearchVisits(ctx context.Context, q VisitSearch) ([]model.Visit, int64, error)

	// InTx runs fn inside one transaction; every Repository call made through the
	// argument shares that transaction.
	InTx(ctx context.Context, fn func(tx Repository) error) error
}
