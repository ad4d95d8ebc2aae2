package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// AskJob is one asynchronous ask exchange. SessionID is the target session
// captured when the job was enqueued; the reply is routed there no matter
// which session is active when the job resolves.
type AskJob struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	SessionID string `gorm:"size:26;index;not null"`
	Question  string `gorm:"type:text;not null"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded
	Reply *string `gorm:"type:text"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AskJob) TableName() string { return "ask_jobs" }

type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) (*JobStore, error) {
	if err := db.AutoMigrate(&AskJob{}); err != nil {
		return nil, err
	}
	return &JobStore{db: db}, nil
}

func (j *JobStore) Create(ctx context.Context, job *AskJob) error {
	return j.db.WithContext(ctx).Create(job).Error
}

func (j *JobStore) Get(ctx context.Context, id string) (*AskJob, error) {
	var job AskJob
	if err := j.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (j *JobStore) MarkRunning(ctx context.Context, id string) error {
	return j.db.WithContext(ctx).Model(&AskJob{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (j *JobStore) MarkSucceeded(ctx context.Context, id, reply string) error {
	return j.db.WithContext(ctx).Model(&AskJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobSucceeded,
			"reply":  reply,
			"error":  nil,
		}).Error
}

func (j *JobStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	return j.db.WithContext(ctx).Model(&AskJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobFailed,
			"error":  errMsg,
			"reply":  nil,
		}).Error
}
