package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Event is a domain event appended to the log by a mutating entry point.
type Event interface {
	EventName() string
}

// Record is one row of the append-only event log.
type Record struct {
	ID            int64          `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name          string         `json:"name" gorm:"type:varchar(64);not null;index"`
	Payload       datatypes.JSON `json:"payload" gorm:"not null"`
	EmittedAt     time.Time      `json:"emitted_at" gorm:"not null"`
	PublishedAt   *time.Time     `json:"published_at,omitempty" gorm:"index"`
	Attempts      int            `json:"attempts" gorm:"not null;default:0"`
	NextAttemptAt time.Time      `json:"-" gorm:"not null"`
	LastError     *string        `json:"-" gorm:"type:text"`
}

func (Record) TableName() string { return "event_logs" }

type ListFilter struct {
	Name     string
	AfterID  int64
	PageSize int
}
