package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrEmptyProductName = errors.New("product name is empty")

// Store owns products and reminders. Every method is a single statement, so
// the message handler and both scheduler loops can call it concurrently.
type Store struct {
	gdb *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{gdb: gdb}
}

func (s *Store) AddProduct(ctx context.Context, name string) error {
	name = NormalizeName(name)
	if name == "" {
		return ErrEmptyProductName
	}
	return s.gdb.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Product{Name: name}).Error
}

func (s *Store) RemoveProduct(ctx context.Context, name string) error {
	name = NormalizeName(name)
	if name == "" {
		return nil
	}
	return s.gdb.WithContext(ctx).Where("name = ?", name).Delete(&Product{}).Error
}

func (s *Store) HasProduct(ctx context.Context, name string) (bool, error) {
	name = NormalizeName(name)
	if name == "" {
		return false, nil
	}
	var count int64
	if err := s.gdb.WithContext(ctx).Model(&Product{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.gdb.WithContext(ctx).Model(&Product{}).Order("name ASC").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) CreateReminder(ctx context.Context, owner int64, text string, fireAt time.Time) (uint, error) {
	reminder := Reminder{
		Owner:  owner,
		Text:   text,
		FireAt: fireAt.UTC().Truncate(time.Minute),
	}
	if err := s.gdb.WithContext(ctx).Create(&reminder).Error; err != nil {
		return 0, err
	}
	return reminder.ID, nil
}

func (s *Store) ListReminders(ctx context.Context, owner int64) ([]Reminder, error) {
	var reminders []Reminder
	err := s.gdb.WithContext(ctx).
		Where("owner = ?", owner).
		Order("fire_at ASC, id ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	var reminders []Reminder
	if err := s.gdb.WithContext(ctx).Where("fire_at <= ?", now.UTC()).Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

func (s *Store) DeleteReminder(ctx context.Context, id uint) error {
	return s.gdb.WithContext(ctx).Where("id = ?", id).Delete(&Reminder{}).Error
}
