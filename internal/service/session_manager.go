package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"
	"github.com/minaamq/Q2time-tracking-system/internal/repository"
	"github.com/minaamq/Q2time-tracking-system/pkg/tzutil"

	"github.com/sirupsen/logrus"
)

// TimezoneResolver определяет таймзону и геоданные по адресу клиента.
// Никогда не возвращает ошибку: при любом сбое отдается таймзона
// по умолчанию без геоданных.
type TimezoneResolver interface {
	Resolve(ctx context.Context, ip string) (string, *models.Location)
}

// SessionUpdate - одно входящее событие дня.
// Закрытый набор вариантов: слияние разбирает их исчерпывающим switch.
type SessionUpdate interface {
	isSessionUpdate()
}

// LoginUpdate - отметка входа; перезаписывает предыдущую безусловно
type LoginUpdate struct {
	At time.Time
}

// LogoutUpdate - отметка выхода; перезаписывает предыдущую безусловно
type LogoutUpdate struct {
	At time.Time
}

// BreakUpdate - один новый перерыв
type BreakUpdate struct {
	Entry *models.BreakEntry
}

func (LoginUpdate) isSessionUpdate()  {}
func (LogoutUpdate) isSessionUpdate() {}
func (BreakUpdate) isSessionUpdate()  {}

// OverlapWarning - непустое описание пересечений перерывов.
// Не ошибка: перерыв записан, предупреждение едет рядом.
type OverlapWarning struct {
	Details string
}

// SessionManager сливает события дня в запись (сотрудник, сегодня)
// и держит единственную точку мутации долговременного состояния.
// Цикл чтение-слияние-запись сериализуется по ключу (сотрудник, день):
// без этого два одновременных перерыва могут затереть друг друга.
type SessionManager struct {
	repo     repository.TimeEntryRepository
	resolver TimezoneResolver
	clock    Clock
	calc     *TimeCalculator
	logger   *logrus.Logger

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

func NewSessionManager(
	repo repository.TimeEntryRepository,
	resolver TimezoneResolver,
	clock Clock,
	calc *TimeCalculator,
	logger *logrus.Logger,
) *SessionManager {
	return &SessionManager{
		repo:     repo,
		resolver: resolver,
		clock:    clock,
		calc:     calc,
		logger:   logger,
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// lockFor выдает мьютекс ключа (сотрудник, день), создавая лениво
func (s *SessionManager) lockFor(empID string, day time.Time) *sync.Mutex {
	key := empID + "@" + day.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[key] = lock
	}
	return lock
}

// today - календарная дата вызова по локальным часам процесса
func (s *SessionManager) today() time.Time {
	return tzutil.DateOf(s.clock.Now(""))
}

// RecordLogin фиксирует вход сотрудника за сегодня.
// Нулевое at заменяется текущим временем в таймзоне клиента.
func (s *SessionManager) RecordLogin(ctx context.Context, empID string, at *time.Time, clientIP string) (*models.TimeEntry, error) {
	tz, loc := s.resolveClient(ctx, clientIP)

	loginTime := s.eventTime(at, tz)
	entry, err := s.merge(ctx, empID, LoginUpdate{At: loginTime}, tz, loc, clientIP)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"emp_id":     empID,
		"login_time": loginTime.Format("15:04"),
		"timezone":   tz,
	}).Info("Login recorded")

	return entry, nil
}

// RecordLogout фиксирует выход сотрудника за сегодня.
// Запись дня создается и при отсутствии входа: выход может быть
// первым событием дня.
func (s *SessionManager) RecordLogout(ctx context.Context, empID string, at *time.Time, clientIP string) (*models.TimeEntry, error) {
	tz, loc := s.resolveClient(ctx, clientIP)

	logoutTime := s.eventTime(at, tz)
	entry, err := s.merge(ctx, empID, LogoutUpdate{At: logoutTime}, tz, loc, clientIP)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"emp_id":      empID,
		"logout_time": logoutTime.Format("15:04"),
		"timezone":    tz,
	}).Info("Logout recorded")

	return entry, nil
}

// RecordBreak добавляет перерыв в запись дня.
// Пересечение с уже записанными перерывами не блокирует запись:
// перерыв сохраняется, предупреждение возвращается рядом.
func (s *SessionManager) RecordBreak(ctx context.Context, empID string, brk *models.BreakEntry, clientIP string) (*models.TimeEntry, *OverlapWarning, error) {
	tz, loc := s.resolveClient(ctx, clientIP)
	if brk.Timezone == "" || brk.Timezone == "UTC" {
		brk.Timezone = tz
	}

	entry, err := s.merge(ctx, empID, BreakUpdate{Entry: brk}, tz, loc, clientIP)
	if err != nil {
		return nil, nil, err
	}

	var warning *OverlapWarning
	if has, details := CheckOverlappingBreaks(entry.Breaks); has {
		warning = &OverlapWarning{Details: details}
		s.logger.WithFields(logrus.Fields{
			"emp_id":  empID,
			"details": details,
		}).Warn("Break recorded with overlap")
	}

	s.logger.WithFields(logrus.Fields{
		"emp_id":     empID,
		"break_type": brk.BreakType,
		"minutes":    brk.Minutes(),
	}).Info("Break recorded")

	return entry, warning, nil
}

// ComputeHours считает итоговые часы по сегодняшней записи.
// ErrNotFound, если запись за сегодня еще не создана.
func (s *SessionManager) ComputeHours(ctx context.Context, empID string) (float64, CalculationDetails, string, error) {
	entry, err := s.repo.GetByEmpAndDate(ctx, empID, s.today())
	if err != nil {
		return 0, nil, "", err
	}

	hours, details, scenario := s.calc.CalculateWorkHours(entry)
	return hours, details, scenario, nil
}

// PreviewBreakOverlap проверяет, пересекся бы перерыв с уже
// записанными, ничего не меняя. ErrNotFound без записи за сегодня.
func (s *SessionManager) PreviewBreakOverlap(ctx context.Context, empID string, brk *models.BreakEntry) (bool, string, error) {
	entry, err := s.repo.GetByEmpAndDate(ctx, empID, s.today())
	if err != nil {
		return false, "", err
	}

	candidate := append(append([]models.BreakEntry{}, entry.Breaks...), *brk)
	has, details := CheckOverlappingBreaks(candidate)
	return has, details, nil
}

// CurrentSession возвращает сегодняшнюю запись сотрудника
func (s *SessionManager) CurrentSession(ctx context.Context, empID string) (*models.TimeEntry, error) {
	return s.repo.GetByEmpAndDate(ctx, empID, s.today())
}

// ListSessions возвращает все записи (админский список)
func (s *SessionManager) ListSessions(ctx context.Context) ([]*models.TimeEntry, error) {
	return s.repo.ListAll(ctx)
}

// DeleteSession административно удаляет сегодняшнюю запись
func (s *SessionManager) DeleteSession(ctx context.Context, empID string) (bool, error) {
	day := s.today()
	lock := s.lockFor(empID, day)
	lock.Lock()
	defer lock.Unlock()

	return s.repo.Delete(ctx, empID, day)
}

// merge - цикл чтение-слияние-запись под замком ключа дня.
// Любой сбой хранилища фатален для вызова, частичного применения нет.
func (s *SessionManager) merge(ctx context.Context, empID string, upd SessionUpdate, tz string, loc *models.Location, clientIP string) (*models.TimeEntry, error) {
	day := s.today()
	lock := s.lockFor(empID, day)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.repo.GetByEmpAndDate(ctx, empID, day)
	switch {
	case err == nil:
	case isNotFound(err):
		entry = models.NewTimeEntry(empID, day, tz)
	default:
		return nil, err
	}

	if err := foldUpdate(entry, upd); err != nil {
		return nil, err
	}

	// Метаданные клиента освежаются при каждом слиянии
	entry.Timezone = tz
	if loc != nil {
		entry.Location = loc
	}
	if clientIP != "" {
		entry.IPAddress = clientIP
	}

	return s.repo.Upsert(ctx, entry)
}

// foldUpdate вливает событие в запись дня.
// Правило перерывов: bio всегда добавляется в конец; break1/break2
// замещает первый существующий перерыв своего типа, сохраняя его
// позицию, иначе добавляется. Новый список собирается заново и
// подменяется целиком.
func foldUpdate(entry *models.TimeEntry, upd SessionUpdate) error {
	switch u := upd.(type) {
	case LoginUpdate:
		at := u.At.UTC()
		entry.LoginTime = &at
	case LogoutUpdate:
		at := u.At.UTC()
		entry.LogoutTime = &at
	case BreakUpdate:
		entry.Breaks = mergeBreak(entry.Breaks, u.Entry, entry.NextBreakPosition())
	}

	if entry.HasLogin() && entry.HasLogout() && entry.LogoutTime.Before(*entry.LoginTime) {
		return models.ErrLogoutBeforeLogin
	}
	return nil
}

func mergeBreak(existing []models.BreakEntry, brk *models.BreakEntry, nextPos int) []models.BreakEntry {
	merged := make([]models.BreakEntry, 0, len(existing)+1)

	replaced := false
	for _, b := range existing {
		if !replaced && brk.BreakType.IsMandatory() && b.BreakType == brk.BreakType {
			repl := *brk
			repl.Position = b.Position
			merged = append(merged, repl)
			replaced = true
			continue
		}
		merged = append(merged, b)
	}

	if !replaced {
		added := *brk
		added.Position = nextPos
		merged = append(merged, added)
	}

	return merged
}

// resolveClient определяет таймзону и геоданные клиента.
// Без адреса - UTC и никаких геоданных.
func (s *SessionManager) resolveClient(ctx context.Context, clientIP string) (string, *models.Location) {
	if clientIP == "" {
		return "UTC", nil
	}
	return s.resolver.Resolve(ctx, clientIP)
}

// eventTime - явное время события либо текущее в таймзоне клиента
func (s *SessionManager) eventTime(at *time.Time, tz string) time.Time {
	if at != nil {
		return *at
	}
	return s.clock.Now(tz)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
