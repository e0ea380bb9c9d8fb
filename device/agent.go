package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	v1 "careloop.com/careloop/careloop/v1"
	"careloop.com/careloop/device/queue"
	"github.com/google/uuid"
)

// Agent runs on a caregiver's phone. Clock events are captured into the durable
// queue first and replayed to the server when connectivity allows, so a dead
// zone at a client's home never loses a visit.
type Agent struct {
	client   *v1.CareloopClient
	queue    *queue.Queue
	deviceID string

	// one drain pass at a time
	mu sync.Mutex
}

func NewAgent(client *v1.CareloopClient, q *queue.Queue, deviceID string) *Agent {
	return &Agent{client: client, queue: q, deviceID: deviceID}
}

// DrainReport summarizes one replay pass.
type DrainReport struct {
	Sent    int
	Skipped int
	Failed  int
}

// CaptureClockIn stores a clock-in for replay. The idempotency token is fixed
// at capture time so retries across drain passes stay exactly-once.
func (a *Agent) CaptureClockIn(ctx context.Context, dto *v1.ClockInDTO) error {
	a.stamp(&dto.IdempotencyToken, &dto.DeviceInfo)
	payload, err := json.Marshal(dto)
	if err != nil {
		return err
	}
	return a.queue.Enqueue(ctx, queue.KindClockIn, payload, dto.IdempotencyToken)
}

// CaptureClockOut stores a clock-out for replay.
func (a *Agent) CaptureClockOut(ctx context.Context, dto *v1.ClockOutDTO) error {
	a.stamp(&dto.IdempotencyToken, &dto.DeviceInfo)
	payload, err := json.Marshal(dto)
	if err != nil {
		return err
	}
	return a.queue.Enqueue(ctx, queue.KindClockOut, payload, dto.IdempotencyToken)
}

func (a *Agent) stamp(token *string, info **v1.DeviceInfoDTO) {
	if *token == "" {
		*token = uuid.NewString()
	}
	if *info == nil {
		*info = &v1.DeviceInfoDTO{DeviceID: a.deviceID}
	} else if (*info).DeviceID == "" {
		(*info).DeviceID = a.deviceID
	}
}

// Drain replays queued mutations in capture order. A permanent rejection marks
// the row failed and blocks later events for the same shift, so a clock-out is
// never replayed past its rejected clock-in. A retryable failure ends the pass;
// everything still queued goes out next time.
func (a *Agent) Drain(ctx context.Context) (*DrainReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pending, err := a.queue.Pending(ctx)
	if err != nil {
		return nil, err
	}

	report := &DrainReport{}
	blocked := map[int32]bool{}

	for _, m := range pending {
		var envelope struct {
			ShiftID int32 `json:"shiftId"`
		}
		if err := json.Unmarshal(m.Payload, &envelope); err != nil {
			report.Failed++
			if err := a.queue.MarkFailed(ctx, m.Seq, "malformed payload"); err != nil {
				return report, err
			}
			continue
		}

		if blocked[envelope.ShiftID] {
			report.Failed++
			if err := a.queue.MarkFailed(ctx, m.Seq, "earlier event for this shift was rejected"); err != nil {
				return report, err
			}
			continue
		}

		sendErr := a.send(ctx, m)

		var apiErr *v1.APIError
		switch {
		case sendErr == nil:
			report.Sent++
			if err := a.queue.Remove(ctx, m.Seq); err != nil {
				return report, err
			}

		case errors.As(sendErr, &apiErr) && apiErr.StatusCode == http.StatusConflict:
			// Already applied server-side; the ack was lost, not the write.
			report.Skipped++
			if err := a.queue.Remove(ctx, m.Seq); err != nil {
				return report, err
			}

		case errors.As(sendErr, &apiErr) && !apiErr.Retryable():
			report.Failed++
			blocked[envelope.ShiftID] = true
			if err := a.queue.MarkFailed(ctx, m.Seq, sendErr.Error()); err != nil {
				return report, err
			}

		default:
			// Network failure or server outage: stop, keep order intact.
			if err := a.queue.MarkFailed(ctx, m.Seq, sendErr.Error()); err != nil {
				return report, err
			}
			return report, sendErr
		}
	}

	return report, nil
}

func (a *Agent) send(ctx context.Context, m queue.Mutation) error {
	switch m.Kind {
	case queue.KindClockIn:
		var dto v1.ClockInDTO
		if err := json.Unmarshal(m.Payload, &dto); err != nil {
			return err
		}
		_, err := a.client.Visits.ClockIn(ctx, &dto)
		return err

	case queue.KindClockOut:
		var dto v1.ClockOutDTO
		if err := json.Unmarshal(m.Payload, &dto); err != nil {
			return err
		}
		_, err := a.client.Visits.ClockOut(ctx, &dto)
		return err
	}
	return fmt.Errorf("unknown mutation kind %q", m.Kind)
}
