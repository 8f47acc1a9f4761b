package models

import (
	"time"

	"pbs/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobTask records one run of a scheduled background job.
type JobTask struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`

	Name       string      `gorm:"index" json:"name"`
	JobType    string      `json:"job_type"`
	RunsAt     time.Time   `json:"runs_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Payload    types.JSONB `gorm:"type:jsonb" json:"payload,omitempty"`
	Status     string      `gorm:"default:'running'" json:"status"`
	Error      *string     `json:"error,omitempty"`

	types.Timestamps
}

const (
	JOB_RUNNING     = "running"
	JOB_COMPLETED   = "completed"
	JOB_FAILED      = "failed"
	JOB_INTERRUPTED = "interrupted"
)

func (j *JobTask) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// Finish stores the outcome of the run.
func (j *JobTask) Finish(tx *gorm.DB, payload types.JSONB, runErr error) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"finished_at": now,
		"payload":     payload,
		"status":      JOB_COMPLETED,
	}
	if runErr != nil {
		msg := runErr.Error()
		updates["status"] = JOB_FAILED
		updates["error"] = msg
		j.Error = &msg
	}
	j.FinishedAt = &now
	j.Payload = payload
	j.Status = updates["status"].(string)
	return tx.Model(j).Updates(updates).Error
}
