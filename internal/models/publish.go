package models

import "time"

// PublishStatus is the lifecycle state of a publish job.
type PublishStatus string

const (
	PublishQueued  PublishStatus = "QUEUED"
	PublishRunning PublishStatus = "RUNNING"
	PublishDone    PublishStatus = "DONE"
	PublishFailed  PublishStatus = "FAILED"
)

// Finished reports whether s is terminal.
func (s PublishStatus) Finished() bool {
	return s == PublishDone || s == PublishFailed
}

// PublishJob is one asynchronous export of a menu to artifact storage.
type PublishJob struct {
	ID          string        `json:"id"`
	MenuID      string        `json:"menuId"`
	UserID      string        `json:"userId"`
	Format      string        `json:"format"`
	Template    string        `json:"template,omitempty"`
	VisibleOnly bool          `json:"visibleOnly,omitempty"`
	Status      PublishStatus `json:"status"`
	ObjectKey   string        `json:"objectKey,omitempty"`
	URL         string        `json:"url,omitempty"`
	Size        int64         `json:"size,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	FinishedAt  *time.Time    `json:"finishedAt,omitempty"`
}
