package models

import "time"

// Timestamps provides the audit columns shared by every table
type Timestamps struct {
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func stamps(createdAt, updatedAt time.Time) Timestamps {
	now := time.Now()
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return Timestamps{CreatedAt: createdAt, UpdatedAt: updatedAt}
}
