package evv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careloop.com/careloop/evv/model"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository implements Repository on a *gorm.DB obtained from the
// DatabaseManager for the request's agency schema.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) VisitByID(ctx context.Context, id int32) (*model.Visit, error) {
	var v model.Visit
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("visit %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &v, nil
}

func (r *GormRepository) ClientByID(ctx context.Context, id int32) (*model.Client, error) {
	var c model.Client
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) StartVisit(ctx context.Context, visitID int32, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Visit{}).
		Where("id = ? AND status = ? AND actual_start IS NULL", visitID, model.VisitStatusScheduled).
		Updates(map[string]interface{}{
			"status":       model.VisitStatusInProgress,
			"actual_start": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) FinishVisit(ctx context.Context, visitID int32, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Visit{}).
		Where("id = ? AND status = ? AND actual_end IS NULL", visitID, model.VisitStatusInProgress).
		Updates(map[string]interface{}{
			"status":     model.VisitStatusCompleted,
			"actual_end": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) CreateEVVRecord(ctx context.Context, rec *model.EVVRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormRepository) EVVRecordByVisit(ctx context.Context, visitID int32) (*model.EVVRecord, error) {
	var rec model.EVVRecord
	err := r.db.WithContext(ctx).Where("visit_id = ?", visitID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("evv record for visit %d: %w", visitID, ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepository) SaveEVVRecord(ctx context.Context, rec *model.EVVRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *GormRepository) AuthorizationByID(ctx context.Context, id int32) (*model.Authorization, error) {
	var a model.Authorization
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("authorization %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormRepository) AuthorizationForUpdate(ctx context.Context, id int32) (*model.Authorization, error) {
	var a model.Authorization
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("authorization %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormRepository) UsedUnitsInWindow(ctx context.Context, authorizationID int32, w Window) (int, error) {
	var used int
	err := r.db.WithContext(ctx).Model(&model.AuthorizationUsageEntry{}).
		Where("authorization_id = ? AND service_date BETWEEN ? AND ?", authorizationID, w.Start, w.End).
		Select("COALESCE(SUM(units), 0)").
		Scan(&used).Error
	return used, err
}

func (r *GormRepository) UsageEntriesInWindow(ctx context.Context, authorizationID int32, w Window) ([]model.AuthorizationUsageEntry, error) {
	var entries []model.AuthorizationUsageEntry
	err := r.db.WithContext(ctx).
		Where("authorization_id = ? AND service_date BETWEEN ? AND ?", authorizationID, w.Start, w.End).
		Order("service_date, id").
		Find(&entries).Error
	return entries, err
}

func (r *GormRepository) AppendUsageEntry(ctx context.Context, e *model.AuthorizationUsageEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *GormRepository) AddUsedUnits(ctx context.Context, authorizationID int32, units int) error {
	return r.db.WithContext(ctx).Model(&model.Authorization{}).
		Where("id = ?", authorizationID).
		UpdateColumn("units_used", gorm.Expr("units_used + ?", units)).Error
}

func (r *GormRepository) MutationSeen(ctx context.Context, deviceID, token string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SyncedMutation{}).
		Where("device_id = ? AND idempotency_token = ?", deviceID, token).
		Count(&count).Error
	return count > 0, err
}

// RecordMutation inserts the accepted token. Two replays racing past the
// MutationSeen pre-check both land here; the unique index decides, and the
// loser's duplicate-key error maps to ErrDuplicateMutation so the device sees
// "skipped", not a server fault.
func (r *GormRepository) RecordMutation(ctx context.Context, m *model.SyncedMutation) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("mutation %s/%s: %w", m.DeviceID, m.IdempotencyToken, ErrDuplicateMutation)
		}
		return err
	}
	return nil
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (r *GormRepository) SearchVisits(ctx context.Context, q VisitSearch) ([]model.Visit, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Visit{}).
		Where("scheduled_start >= ? AND scheduled_start < ?", q.StartDate, q.EndDate.AddDate(0, 0, 1))

	if len(q.Caregivers) > 0 {
		query = query.Where("caregiver_id IN ?", q.Caregivers)
	}
	if len(q.Clients) > 0 {
		query = query.Where("client_id IN ?", q.Clients)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var visits []model.Visit
	err := query.Preload("Client").Preload("Caregiver").
		Order("scheduled_start").
		Limit(q.Limit).Offset(q.Offset).
		Find(&visits).Error
	if err != nil {
		return nil, 0, err
	}
	return visits, total, nil
}

// ReadyToSubmitEVVRecords lists records the submission sweep should pick up.
// Not part of Repository; only the batch job needs it.
func (r *GormRepository) ReadyToSubmitEVVRecords(ctx context.Context) ([]model.EVVRecord, error) {
	var records []model.EVVRecord
	err := r.db.WithContext(ctx).
		Where("sandata_status = ?", model.SandataReadyToSubmit).
		Order("clock_out_time").
		Find(&records).Error
	return records, err
}

// MarkEVVSubmitted flips the given records to submitted after the batch lands.
func (r *GormRepository) MarkEVVSubmitted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.EVVRecord{}).
		Where("id IN ?", ids).
		Update("sandata_status", model.SandataSubmitted).Error
}

func (r *GormRepository) InTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}
