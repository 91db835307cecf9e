package model

import "time"

// ScrapeRun records one scrape+normalize pipeline execution.
type ScrapeRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Keyword    string    `gorm:"size:256;not null" json:"keyword"`
	Requested  int       `gorm:"not null" json:"requested"`
	Scraped    int       `gorm:"not null" json:"scraped"`
	Valid      int       `gorm:"not null" json:"valid"`
	DurationMS int64     `gorm:"not null" json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
