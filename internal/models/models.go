package models

// All lists every model handled by AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Subject{},
		&StudySession{},
		&Habit{},
		&HabitLog{},
		&Goal{},
		&StudyGroup{},
		&GroupMembership{},
	}
}
