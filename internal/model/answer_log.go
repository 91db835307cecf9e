package model

import "time"

// Answer generation modes.
const (
	AnswerModeStructured = "structured"
	AnswerModeFallback   = "fallback"
)

// AnswerLog is one served question/answer pair, persisted asynchronously
// by the answer-log worker.
type AnswerLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Question    string    `gorm:"type:text;not null" json:"question"`
	Answer      string    `gorm:"type:text;not null" json:"answer"`
	Mode        string    `gorm:"size:16;not null" json:"mode"`
	SourceCount int       `gorm:"not null" json:"source_count"`
	CreatedAt   time.Time `json:"created_at"`
}
