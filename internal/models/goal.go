package models

import (
	"time"
)

// GoalPeriod is the window a goal is measured over.
type GoalPeriod string

const (
	PeriodDaily   GoalPeriod = "daily"
	PeriodWeekly  GoalPeriod = "weekly"
	PeriodMonthly GoalPeriod = "monthly"
)

// GoalTypeStudyTime is the goal type the dashboard reads its daily target from.
const GoalTypeStudyTime = "study_time"

// Goal is a user-defined target such as "study 120 minutes daily".
type Goal struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	GoalType    string     `json:"goal_type" gorm:"not null"`
	TargetValue int        `json:"target_value" gorm:"not null"`
	TargetUnit  string     `json:"target_unit" gorm:"default:'minutes'"`
	Period      GoalPeriod `json:"period" gorm:"not null"`
	Description *string    `json:"description"`
	IsActive    bool       `json:"is_active" gorm:"not null"`
	UserID      string     `json:"user_id" gorm:"column:user_id;index;not null"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName specifies the table name for Goal Model
func (Goal) TableName() string {
	return "goals"
}
