package models

import (
	"time"
)

// Subject is something a user studies.
type Subject struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;index"`
	Color     string    `json:"color"`
	UserID    string    `json:"-" gorm:"column:user_id;index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Subject Model
func (Subject) TableName() string {
	return "subjects"
}

// StudySession records time spent on a subject.
type StudySession struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	SubjectID       *uint      `json:"subject_id" gorm:"column:subject_id;index"`
	SubjectName     string     `json:"subject_name" gorm:"column:subject_name"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes" gorm:"not null"`
	Notes           *string    `json:"notes"`
	UserID          string     `json:"-" gorm:"column:user_id;index;not null"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for StudySession Model
func (StudySession) TableName() string {
	return "study_sessions"
}
