package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"
)

// CheckOverlappingBreaks проверяет попарные пересечения перерывов.
// Сравниваются только перерывы с заданными началом и концом; перерывы
// без таймингов занимают позицию в нумерации, но пересекаться не могут.
// Возвращает признак пересечения и текст по каждой паре в порядке
// обхода (i, j), i < j; позиции в тексте 1-based по исходному списку.
// O(n^2) по числу перерывов - их за день единицы.
func CheckOverlappingBreaks(breaks []models.BreakEntry) (bool, string) {
	var overlapping []string

	for i := 0; i < len(breaks); i++ {
		if !breaks[i].IsTimed() {
			continue
		}
		for j := i + 1; j < len(breaks); j++ {
			if !breaks[j].IsTimed() {
				continue
			}

			first, second := breaks[i], breaks[j]
			if !first.EndTime.After(*second.StartTime) || !second.EndTime.After(*first.StartTime) {
				continue
			}

			overlapStart := maxTime(*first.StartTime, *second.StartTime)
			overlapEnd := minTime(*first.EndTime, *second.EndTime)
			overlapMin := overlapEnd.Sub(overlapStart).Minutes()

			overlapping = append(overlapping, fmt.Sprintf(
				"%s(%d) overlaps %s(%d) for %.0f min",
				first.BreakType, i+1, second.BreakType, j+1, overlapMin,
			))
		}
	}

	if len(overlapping) == 0 {
		return false, ""
	}
	return true, strings.Join(overlapping, "; ")
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
