package tzutil

import "time"

// IsValid - проверяет, что метка таймзоны существует в базе tz
func IsValid(name string) bool {
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// NowIn - возвращает текущее время в указанной таймзоне.
// Неизвестная метка трактуется как UTC.
func NowIn(name string) time.Time {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Now().In(loc)
}

// ToZone - переводит время в указанную таймзону для отображения.
// При неизвестной метке время возвращается как есть.
func ToZone(t time.Time, name string) time.Time {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return t
	}
	return t.In(loc)
}

// DateOf - нормализует момент времени до календарной даты:
// полночь UTC с годом/месяцем/днем исходного значения.
// В таком виде даты хранятся и сравниваются в базе.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
