package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BreakType - тип перерыва внутри рабочего дня
type BreakType string

const (
	BreakTypeBreak1 BreakType = "break1" // обязательный слот, один на день
	BreakTypeBreak2 BreakType = "break2" // обязательный слот, один на день
	BreakTypeBio    BreakType = "bio"    // повторяемый перерыв
)

// Ошибки валидации перерыва. Тексты отдаются клиентам API как есть.
var (
	ErrUnknownBreakType = errors.New("unknown break type")
	ErrEndNotAfterStart = errors.New("end time must be after start time")
)

// IsValid проверяет, что тип входит в закрытый набор break1/break2/bio
func (t BreakType) IsValid() bool {
	switch t {
	case BreakTypeBreak1, BreakTypeBreak2, BreakTypeBio:
		return true
	}
	return false
}

// IsMandatory - одиночный слот break1 или break2
func (t BreakType) IsMandatory() bool {
	return t == BreakTypeBreak1 || t == BreakTypeBreak2
}

// BreakEntry - один перерыв рабочего дня.
// Position фиксирует порядок добавления: на нем держатся нумерация
// пересечений и порядок обхода в расчете.
type BreakEntry struct {
	ID              uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	TimeEntryID     uuid.UUID  `gorm:"type:char(36);index;not null" json:"-"`
	Position        int        `gorm:"not null;default:0" json:"-"`
	BreakType       BreakType  `gorm:"type:varchar(10);not null" json:"break_type"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Timezone        string     `gorm:"type:varchar(64)" json:"timezone,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (BreakEntry) TableName() string {
	return "break_entries"
}

func (b *BreakEntry) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// NewBreakEntry собирает перерыв и проверяет инварианты:
// тип из допустимого набора; конец строго позже начала, если заданы оба.
// Длительность выводится из пары начало/конец, когда не задана явно.
func NewBreakEntry(breakType BreakType, start, end *time.Time, durationMinutes *int, timezone string) (*BreakEntry, error) {
	if !breakType.IsValid() {
		return nil, ErrUnknownBreakType
	}
	if start != nil && end != nil && !end.After(*start) {
		return nil, ErrEndNotAfterStart
	}

	if timezone == "" {
		timezone = "UTC"
	}

	entry := &BreakEntry{
		BreakType:       breakType,
		StartTime:       toUTC(start),
		EndTime:         toUTC(end),
		DurationMinutes: durationMinutes,
		Timezone:        timezone,
	}

	// Выводим длительность: округление секунд до ближайшей минуты
	if entry.DurationMinutes == nil && entry.StartTime != nil && entry.EndTime != nil {
		minutes := int(math.Round(entry.EndTime.Sub(*entry.StartTime).Seconds() / 60))
		entry.DurationMinutes = &minutes
	}

	return entry, nil
}

// Minutes возвращает длительность перерыва; незаполненная считается нулем
func (b *BreakEntry) Minutes() int {
	if b.DurationMinutes == nil {
		return 0
	}
	return *b.DurationMinutes
}

// IsTimed - заданы и начало, и конец перерыва.
// Перерывы без таймингов в проверке пересечений не участвуют.
func (b *BreakEntry) IsTimed() bool {
	return b.StartTime != nil && b.EndTime != nil
}

func toUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
