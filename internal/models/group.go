package models

import (
	"time"
)

// GroupRole is a member's role inside a study group.
type GroupRole string

const (
	RoleAdmin  GroupRole = "admin"
	RoleMember GroupRole = "member"
)

// StudyGroup is a set of users sharing a leaderboard.
type StudyGroup struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description *string   `json:"description"`
	CreatedBy   string    `json:"created_by" gorm:"not null"`
	InviteCode  string    `json:"invite_code" gorm:"uniqueIndex;not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for StudyGroup Model
func (StudyGroup) TableName() string {
	return "study_groups"
}

// GroupMembership links a user to a group.
type GroupMembership struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	GroupID  uint      `json:"group_id" gorm:"uniqueIndex:idx_group_user;not null"`
	UserID   string    `json:"user_id" gorm:"uniqueIndex:idx_group_user;not null"`
	Role     GroupRole `json:"role" gorm:"not null;default:'member'"`
	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GroupMembership Model
func (GroupMembership) TableName() string {
	return "group_memberships"
}
