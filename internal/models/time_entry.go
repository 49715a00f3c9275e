package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ошибка слияния: после применения обновления выход раньше входа
var ErrLogoutBeforeLogin = errors.New("logout time must not be before login time")

// Location - геоданные, полученные по IP клиента.
// Хранится одной JSON-колонкой: по этим полям нет выборок.
type Location struct {
	Country   string  `json:"country,omitempty"`
	Region    string  `json:"region,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	ISP       string  `json:"isp,omitempty"`
}

// TimeEntry - учетная запись сотрудника за один календарный день.
// Естественный ключ (EmpID, Date) уникален; Date всегда полночь UTC.
// Создается первым событием дня и мутируется последующими,
// удаляется только административно.
type TimeEntry struct {
	ID         uuid.UUID    `gorm:"type:char(36);primaryKey" json:"id"`
	EmpID      string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_emp_date" json:"emp_id"`
	Date       time.Time    `gorm:"type:date;not null;uniqueIndex:idx_emp_date" json:"date"`
	LoginTime  *time.Time   `json:"login_time,omitempty"`
	LogoutTime *time.Time   `json:"logout_time,omitempty"`
	Breaks     []BreakEntry `gorm:"foreignKey:TimeEntryID;constraint:OnDelete:CASCADE" json:"breaks"`
	Timezone   string       `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	IPAddress  string       `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	Location   *Location    `gorm:"serializer:json" json:"location,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

func (e *TimeEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewTimeEntry создает запись дня для сотрудника.
// Дата нормализуется до полуночи UTC - так хранит и сравнивает база.
// Вход/выход здесь не проверяются: сохраненная строка должна
// загружаться всегда, соотношение проверяет слияние.
func NewTimeEntry(empID string, day time.Time, timezone string) *TimeEntry {
	if timezone == "" {
		timezone = "UTC"
	}
	return &TimeEntry{
		EmpID:    empID,
		Date:     time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		Breaks:   []BreakEntry{},
		Timezone: timezone,
	}
}

// HasLogin - зафиксирован ли вход за день
func (e *TimeEntry) HasLogin() bool {
	return e.LoginTime != nil && !e.LoginTime.IsZero()
}

// HasLogout - зафиксирован ли выход за день
func (e *TimeEntry) HasLogout() bool {
	return e.LogoutTime != nil && !e.LogoutTime.IsZero()
}

// NextBreakPosition - позиция для нового перерыва в конце списка
func (e *TimeEntry) NextBreakPosition() int {
	max := 0
	for _, b := range e.Breaks {
		if b.Position > max {
			max = b.Position
		}
	}
	return max + 1
}
