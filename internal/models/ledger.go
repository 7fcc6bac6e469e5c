package models

import "time"

// AnswerReceipt records an answer write the backend accepted. One row per
// attendee and question; a retried submission skips questions that already
// have a receipt. Rows are removed when the submission completes.
type AnswerReceipt struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	AttemptID  string `gorm:"size:36;index"`
	AttendeeID int    `gorm:"not null;uniqueIndex:idx_receipt_attendee_question"`
	QuestionID int    `gorm:"not null;uniqueIndex:idx_receipt_attendee_question"`
	SessionID  int    `gorm:"index"`
	ResponseID int
}

// QuizAttempt is the audit row for one timed quiz run.
// State: loading | in_progress | submitting | done | error
type QuizAttempt struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AttendeeID    int `gorm:"index"`
	SessionID     int `gorm:"index"`
	State         string
	StartedAt     time.Time
	FinishedAt    *time.Time
	AutoSubmitted bool
	Answered      int
	Total         int
	LastError     string
}
