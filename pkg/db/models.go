package db

import (
	"strings"
	"time"
)

// Product is a pantry item. Only its presence is tracked.
type Product struct {
	Name string `gorm:"primaryKey"`
}

// Reminder is a one-off personal reminder. FireAt is stored in UTC.
type Reminder struct {
	ID     uint      `gorm:"primaryKey;autoIncrement"`
	Owner  int64     `gorm:"index;not null"`
	Text   string    `gorm:"not null"`
	FireAt time.Time `gorm:"index;not null"`
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
