package models

import (
	"time"
)

// Defaults applied to habits stored without a frequency or color.
const (
	DefaultTargetFrequency = 7
	DefaultHabitColor      = "#10B981"
)

// Habit is a recurring activity with a weekly target.
type Habit struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"not null;index"`
	Description     *string   `json:"description"`
	TargetFrequency *int      `json:"target_frequency"`
	Color           string    `json:"color"`
	UserID          string    `json:"-" gorm:"column:user_id;index;not null"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for Habit Model
func (Habit) TableName() string {
	return "habits"
}

// WeeklyTarget returns the target frequency or the default.
func (h Habit) WeeklyTarget() int {
	if h.TargetFrequency == nil {
		return DefaultTargetFrequency
	}
	return *h.TargetFrequency
}

// ApplyDefaults fills the fields a response must never leave empty.
func (h *Habit) ApplyDefaults() {
	if h.TargetFrequency == nil {
		f := DefaultTargetFrequency
		h.TargetFrequency = &f
	}
	if h.Color == "" {
		h.Color = DefaultHabitColor
	}
}

// HabitLog marks one completion of a habit.
type HabitLog struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	HabitID       uint      `json:"habit_id" gorm:"column:habit_id;index;not null"`
	CompletedDate time.Time `json:"completed_date" gorm:"index"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for HabitLog Model
func (HabitLog) TableName() string {
	return "habit_logs"
}
