package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
	TaskSyncSchedule = "sync_schedule"
)

// scheduleTaskPayload is persisted in SyncTask.Payload as JSON.
type scheduleTaskPayload struct {
	ReservationID int64               `json:"reservation_id,omitempty"`
	Reservation   *models.Reservation `json:"reservation,omitempty"`
	Status        string              `json:"status,omitempty"`
	StartDate     time.Time           `json:"start_date,omitempty"`
	EndDate       time.Time           `json:"end_date,omitempty"`
}

// ScheduleWorker consumes sync_queue tasks and applies them to the
// external schedule sheet. Tasks survive restarts in SQLite; Redis is
// the fast hand-off path with an in-memory channel as last resort.
type ScheduleWorker struct {
	db            *database.DB
	writer        domain.ScheduleWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	rangeDays     int
	logger        *zerolog.Logger
}

// NewScheduleWorker builds a worker with sane defaults. A nil writer
// turns the worker into a no-op consumer so the rest of the system does
// not need to care whether sheet sync is configured.
func NewScheduleWorker(db *database.DB, writer domain.ScheduleWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *ScheduleWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &ScheduleWorker{
		db:            db,
		writer:        writer,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, 128),
		redisQueueKey: "schedule:queue",
		deadLetterKey: "schedule:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		rangeDays:     models.DefaultExportRangeDays,
		logger:        logger,
	}
}

// EnqueueTask persists the task and schedules it via redis or the
// in-memory queue.
func (w *ScheduleWorker) EnqueueTask(ctx context.Context, taskType string, reservationID int64, r *models.Reservation, status string) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if reservationID == 0 && (r == nil || r.ID == 0) {
		return errors.New("reservation id is required")
	}

	payload := scheduleTaskPayload{
		ReservationID: reservationID,
		Reservation:   r,
		Status:        status,
	}
	if payload.ReservationID == 0 && r != nil {
		payload.ReservationID = r.ID
	}

	return w.enqueue(ctx, taskType, payload)
}

// EnqueueSyncSchedule queues a full rewrite of the schedule sheet. Zero
// times mean the default range starting today.
func (w *ScheduleWorker) EnqueueSyncSchedule(ctx context.Context, startDate, endDate time.Time) error {
	if startDate.IsZero() {
		startDate = time.Now()
	}
	if endDate.IsZero() {
		endDate = startDate.AddDate(0, 0, w.rangeDays)
	}

	return w.enqueue(ctx, TaskSyncSchedule, scheduleTaskPayload{
		StartDate: startDate,
		EndDate:   endDate,
	})
}

func (w *ScheduleWorker) enqueue(ctx context.Context, taskType string, payload scheduleTaskPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	syncTask := models.SyncTask{
		TaskType:      taskType,
		ReservationID: payload.ReservationID,
		Payload:       string(payloadBytes),
		Status:        "pending",
		CreatedAt:     time.Now(),
	}

	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, syncTask); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- syncTask:
	default:
		w.logger.Warn().Int64("task_id", syncTask.ID).Msg("in-memory queue full, task dropped to polling")
	}

	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *ScheduleWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("schedule worker started")
	defer w.logger.Info().Msg("schedule worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending sync tasks")
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *ScheduleWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *ScheduleWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *ScheduleWorker) processTask(ctx context.Context, task *models.SyncTask) {
	var payload scheduleTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.applyTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark sync task completed")
	}
}

func (w *ScheduleWorker) applyTask(ctx context.Context, taskType string, payload scheduleTaskPayload) error {
	if w.writer == nil {
		return nil
	}

	switch taskType {
	case TaskUpsert:
		if payload.Reservation == nil {
			return errors.New("reservation payload missing")
		}
		return w.writer.UpsertReservation(ctx, payload.Reservation)
	case TaskUpdateStatus:
		if payload.ReservationID == 0 || payload.Status == "" {
			return errors.New("reservation id or status missing")
		}
		return w.writer.UpdateReservationStatus(ctx, payload.ReservationID, payload.Status)
	case TaskSyncSchedule:
		daily, err := w.db.GetDailyReservations(ctx, payload.StartDate, payload.EndDate)
		if err != nil {
			return fmt.Errorf("load schedule range: %w", err)
		}
		return w.writer.ReplaceScheduleSheet(ctx, payload.StartDate, payload.EndDate, daily, w.db.GetEmployees(0))
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *ScheduleWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark sync task failed")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "retry", cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark sync task for retry")
	}
}

func (w *ScheduleWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark sync task failed")
	}
	w.pushDeadLetter(ctx, task)
}

func (w *ScheduleWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *ScheduleWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter task")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push failed")
	}
}
