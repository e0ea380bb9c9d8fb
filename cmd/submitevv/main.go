package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"careloop.com/careloop/core"
	"careloop.com/careloop/evv"
	"careloop.com/careloop/infrastructure/communication"
	"careloop.com/careloop/infrastructure/devops"
	"careloop.com/careloop/infrastructure/filesystem"
	"gorm.io/gorm"
)

// Sweeps every agency in the SSM roster for verification records that are ready
// to submit, archives a batch per agency and marks the records submitted.
// Runs from cron; a failed agency does not stop the others.
func main() {
	dsn := os.Getenv("DSN")
	if dsn == "" {
		log.Fatal("DSN is not set")
	}
	bucket := os.Getenv("EVV_ARCHIVE_BUCKET")
	if bucket == "" {
		log.Fatal("EVV_ARCHIVE_BUCKET is not set")
	}

	ctx := context.Background()

	agencies, err := devops.LoadAgencies(ctx)
	if err != nil {
		log.Fatalf("failed to load agency roster: %v", err)
	}

	dm, err := core.New(dsn, 4)
	if err != nil {
		log.Fatalf("failed to connect database pool: %v", err)
	}
	defer dm.Close()

	alerts := communication.ConnectSlack()

	for _, agency := range agencies {
		submitted, err := submitAgency(ctx, dm, agency.Schema, bucket)
		if err != nil {
			log.Printf("[ERROR] %s", agencyFailure(agency.Schema, err))
			if slackErr := alerts.Error(agencyFailure(agency.Schema, err)); slackErr != nil {
				log.Printf("[WARN] slack alert failed: %v", slackErr)
			}
			continue
		}
		if submitted > 0 {
			log.Print(agencySummary(agency.Schema, submitted, bucket))
			if slackErr := alerts.Info(agencySummary(agency.Schema, submitted, bucket)); slackErr != nil {
				log.Printf("[WARN] slack alert failed: %v", slackErr)
			}
		}
	}
}

func agencyFailure(schema string, err error) string {
	return fmt.Sprintf("EVV submission failed for agency %s: %v", schema, err)
}

func agencySummary(schema string, submitted int, bucket string) string {
	return fmt.Sprintf("agency %s: submitted %d EVV records to s3://%s", schema, submitted, bucket)
}

func submitAgency(ctx context.Context, dm *core.DatabaseManager, schema string, bucket string) (int, error) {
	submitted := 0
	err := dm.Exec(ctx, schema, func(db *gorm.DB) error {
		repo := evv.NewGormRepository(db)

		records, err := repo.ReadyToSubmitEVVRecords(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		now := time.Now()
		batch, err := evv.BuildSubmissionBatch(schema, records, now)
		if err != nil {
			return err
		}

		key := evv.SubmissionKey(schema, now)
		if err := filesystem.WriteFile(ctx, bucket, key, batch); err != nil {
			return err
		}

		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		if err := repo.MarkEVVSubmitted(ctx, ids); err != nil {
			return err
		}

		submitted = len(records)
		return nil
	})
	return submitted, err
}
