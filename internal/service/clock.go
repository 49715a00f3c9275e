package service

import (
	"time"

	"github.com/minaamq/Q2time-tracking-system/pkg/tzutil"
)

// Clock отдает текущее время; подменяется в тестах.
// Пустая метка - локальное время процесса (по нему определяется
// "сегодня"), неизвестная метка трактуется как UTC.
type Clock interface {
	Now(timezone string) time.Time
}

type systemClock struct{}

// NewSystemClock - часы на системном времени
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now(timezone string) time.Time {
	if timezone == "" {
		return time.Now()
	}
	return tzutil.NowIn(timezone)
}
