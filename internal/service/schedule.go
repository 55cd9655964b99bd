package service

import (
	"fmt"
	"time"
)

// cadencePatterns maps posts-per-week to the fixed weekday set posts land on.
var cadencePatterns = map[int][]time.Weekday{
	1: {time.Wednesday},
	2: {time.Monday, time.Wednesday},
	3: {time.Monday, time.Wednesday, time.Friday},
	4: {time.Monday, time.Wednesday, time.Friday, time.Saturday},
}

// CadenceWeekdays returns the weekday pattern for a cadence.
func CadenceWeekdays(perWeek int) ([]time.Weekday, error) {
	pattern, ok := cadencePatterns[perWeek]
	if !ok {
		return nil, fmt.Errorf("unsupported upload cadence: %d per week", perWeek)
	}
	return pattern, nil
}

// PlanItemCount is the number of posts a planning run produces.
func PlanItemCount(weeks, perWeek int) int {
	return weeks * perWeek * 4
}

// BuildSchedule derives the post dates for a plan. The first date is the next
// occurrence of the pattern's first weekday strictly after today; subsequent
// dates cycle through the pattern week by week until count dates exist.
// Dates are civil dates in today's location.
func BuildSchedule(today time.Time, perWeek, count int) ([]time.Time, error) {
	pattern, err := CadenceWeekdays(perWeek)
	if err != nil {
		return nil, err
	}

	first := nextWeekday(today, pattern[0])

	dates := make([]time.Time, 0, count)
	for week := 0; len(dates) < count; week++ {
		for _, wd := range pattern {
			if len(dates) >= count {
				break
			}
			offset := weekdayOffset(pattern[0], wd)
			dates = append(dates, first.AddDate(0, 0, week*7+offset))
		}
	}
	return dates, nil
}

// nextWeekday returns the next occurrence of wd strictly after t, at midnight
// in t's location.
func nextWeekday(t time.Time, wd time.Weekday) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	days := (int(wd) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return day.AddDate(0, 0, days)
}

// weekdayOffset is the number of days from the pattern anchor to wd within
// one week.
func weekdayOffset(anchor, wd time.Weekday) int {
	return (int(wd) - int(anchor) + 7) % 7
}
