package evv

import (
	"encoding/json"
	"fmt"
	"time"

	"careloop.com/careloop/evv/model"
)

// SubmissionVisit is one verified visit in a Sandata batch. Field names follow
// the aggregator's ingest contract.
type SubmissionVisit struct {
	RecordID         string     `json:"recordId"`
	VisitID          int32      `json:"visitId"`
	ClockInTime      *time.Time `json:"clockInTime"`
	ClockOutTime     *time.Time `json:"clockOutTime"`
	ClockInGeofence  string     `json:"clockInGeofence"`
	ClockOutGeofence string     `json:"clockOutGeofence"`
	ValidationStatus string     `json:"validationStatus"`
	BillableUnits    *int       `json:"billableUnits"`
	Tasks            []string   `json:"tasks"`
}

type SubmissionBatch struct {
	Agency      string            `json:"agency"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Visits      []SubmissionVisit `json:"visits"`
}

// BuildSubmissionBatch serializes completed verification records for the
// aggregator. Records still missing a clock-out are not eligible and are
// rejected rather than silently dropped.
func BuildSubmissionBatch(agency string, records []model.EVVRecord, generatedAt time.Time) ([]byte, error) {
	batch := SubmissionBatch{
		Agency:      agency,
		GeneratedAt: generatedAt.UTC(),
		Visits:      make([]SubmissionVisit, 0, len(records)),
	}

	for _, rec := range records {
		if rec.SandataStatus != model.SandataReadyToSubmit {
			return nil, fmt.Errorf("record %s is %s, not ready to submit", rec.ID, rec.SandataStatus)
		}
		if rec.ClockOutTime == nil {
			return nil, fmt.Errorf("record %s has no clock-out", rec.ID)
		}

		var tasks []string
		if rec.TasksCompleted != "" {
			if err := json.Unmarshal([]byte(rec.TasksCompleted), &tasks); err != nil {
				return nil, fmt.Errorf("record %s has malformed task list: %w", rec.ID, err)
			}
		}

		batch.Visits = append(batch.Visits, SubmissionVisit{
			RecordID:         rec.ID,
			VisitID:          rec.VisitID,
			ClockInTime:      rec.ClockInTime,
			ClockOutTime:     rec.ClockOutTime,
			ClockInGeofence:  rec.ClockInGeofence,
			ClockOutGeofence: rec.ClockOutGeofence,
			ValidationStatus: rec.ValidationStatus,
			BillableUnits:    rec.BillableUnits,
			Tasks:            tasks,
		})
	}

	return json.MarshalIndent(batch, "", "  ")
}

// SubmissionKey is the archive object key for one agency batch.
func SubmissionKey(agency string, generatedAt time.Time) string {
	return fmt.Sprintf("sandata/%s/%s.json", agency, generatedAt.UTC().Format("2006-01-02T15-04-05"))
}
