package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Ошибки хранилища. Проверяются через errors.Is.
var (
	// ErrNotFound - записи за (сотрудник, день) нет
	ErrNotFound = errors.New("time entry not found")
	// ErrUnavailable - хранилище недоступно или отказало;
	// слияние при этом не применяется частично
	ErrUnavailable = errors.New("session store unavailable")
)

// TimeEntryRepository - хранилище дневных записей.
// Естественный ключ (empID, день) уникален на уровне базы.
type TimeEntryRepository interface {
	GetByEmpAndDate(ctx context.Context, empID string, day time.Time) (*models.TimeEntry, error)
	Upsert(ctx context.Context, entry *models.TimeEntry) (*models.TimeEntry, error)
	Delete(ctx context.Context, empID string, day time.Time) (bool, error)
	ListAll(ctx context.Context) ([]*models.TimeEntry, error)
	DeleteByEmpIDs(ctx context.Context, empIDs []string) (int64, error)
}

type GormTimeEntryRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// normalizeDay приводит дату к полуночи UTC перед сравнением:
// драйвер сохраняет time.Time полной меткой, и совпадение по ключу
// держится на одинаковой нормализации с обеих сторон
func normalizeDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func NewGormTimeEntryRepository(db *gorm.DB, logger *logrus.Logger) (*GormTimeEntryRepository, error) {
	// Автомиграция
	if err := db.AutoMigrate(&models.TimeEntry{}, &models.BreakEntry{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate time entry tables")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Info("Time entry repository initialized")

	return &GormTimeEntryRepository{
		db:     db,
		logger: logger,
	}, nil
}

// GetByEmpAndDate возвращает запись за день с перерывами в порядке добавления
func (r *GormTimeEntryRepository) GetByEmpAndDate(ctx context.Context, empID string, day time.Time) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	result := r.db.WithContext(ctx).
		Preload("Breaks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("emp_id = ? AND date = ?", empID, normalizeDay(day)).
		First(&entry)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithFields(logrus.Fields{
			"emp_id": empID,
			"date":   day.Format("2006-01-02"),
		}).Debug("Time entry not found")
		return nil, fmt.Errorf("entry for %s on %s: %w", empID, day.Format("2006-01-02"), ErrNotFound)
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get time entry")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}

	return &entry, nil
}

// Upsert сохраняет запись по естественному ключу (emp_id, date).
// Существующая строка перезаписывается вместе со списком перерывов;
// все в одной транзакции, частичного применения не бывает.
func (r *GormTimeEntryRepository) Upsert(ctx context.Context, entry *models.TimeEntry) (*models.TimeEntry, error) {
	r.logger.WithFields(logrus.Fields{
		"emp_id": entry.EmpID,
		"date":   entry.Date.Format("2006-01-02"),
		"breaks": len(entry.Breaks),
	}).Info("Upserting time entry")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TimeEntry
		result := tx.Where("emp_id = ? AND date = ?", entry.EmpID, normalizeDay(entry.Date)).
			First(&existing)

		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			return tx.Create(entry).Error
		case result.Error != nil:
			return result.Error
		}

		// Перезапись: сохраняем идентичность строки, перерывы заменяем
		// целиком - строки детей пересоздаются с новыми id
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt

		if err := tx.Where("time_entry_id = ?", existing.ID).Delete(&models.BreakEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Breaks").Save(entry).Error; err != nil {
			return err
		}

		if len(entry.Breaks) == 0 {
			return nil
		}
		for i := range entry.Breaks {
			entry.Breaks[i].ID = uuid.Nil
			entry.Breaks[i].TimeEntryID = existing.ID
		}
		return tx.Create(&entry.Breaks).Error
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to upsert time entry")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return r.GetByEmpAndDate(ctx, entry.EmpID, entry.Date)
}

// Delete удаляет запись за день; false - удалять было нечего
func (r *GormTimeEntryRepository) Delete(ctx context.Context, empID string, day time.Time) (bool, error) {
	r.logger.WithFields(logrus.Fields{
		"emp_id": empID,
		"date":   day.Format("2006-01-02"),
	}).Info("Deleting time entry")

	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TimeEntry
		result := tx.Where("emp_id = ? AND date = ?", empID, normalizeDay(day)).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		if result.Error != nil {
			return result.Error
		}

		if err := tx.Where("time_entry_id = ?", existing.ID).Delete(&models.BreakEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&existing).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to delete time entry")
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return deleted, nil
}

// ListAll возвращает все записи (админский список)
func (r *GormTimeEntryRepository) ListAll(ctx context.Context) ([]*models.TimeEntry, error) {
	var entries []*models.TimeEntry
	result := r.db.WithContext(ctx).
		Preload("Breaks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("date DESC, emp_id ASC").
		Find(&entries)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to list time entries")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}

	r.logger.WithField("count", len(entries)).Debug("Retrieved all time entries")
	return entries, nil
}

// DeleteByEmpIDs удаляет все записи перечисленных сотрудников.
// Используется при заливке демо-данных.
func (r *GormTimeEntryRepository) DeleteByEmpIDs(ctx context.Context, empIDs []string) (int64, error) {
	if len(empIDs) == 0 {
		return 0, nil
	}

	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.TimeEntry{}).
			Where("emp_id IN ?", empIDs).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("time_entry_id IN ?", ids).Delete(&models.BreakEntry{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.TimeEntry{})
		affected = result.RowsAffected
		return result.Error
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to delete time entries by emp ids")
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.logger.WithFields(logrus.Fields{
		"emp_ids":       empIDs,
		"rows_affected": affected,
	}).Info("Time entries deleted for employees")

	return affected, nil
}
