package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
)

// SeriesBuilder turns raw attendance rows into a gap-filled daily series.
type SeriesBuilder struct {
	attendance     analytics.AttendanceReader
	schedules      analytics.ScheduleReader
	defaultDays    []time.Weekday
	minWorkingDays int
}

func NewSeriesBuilder(attendance analytics.AttendanceReader, schedules analytics.ScheduleReader, settings analytics.Settings) *SeriesBuilder {
	return &SeriesBuilder{
		attendance:     attendance,
		schedules:      schedules,
		defaultDays:    settings.WorkingWeekdays(),
		minWorkingDays: settings.MinWorkingDays,
	}
}

// truncateDay drops the clock part, keeping the date in UTC.
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Build fetches the window ending at now (inclusive) for one employee.
func (b *SeriesBuilder) Build(ctx context.Context, companyID, employeeID string, window int, now time.Time) (analytics.DailySeries, error) {
	if window <= 0 {
		return analytics.DailySeries{}, analytics.ErrInvalidWindow
	}

	end := truncateDay(now)
	start := end.AddDate(0, 0, -(window - 1))

	weekdays, err := b.schedules.WorkingWeekdays(ctx, companyID, employeeID)
	if err != nil {
		return analytics.DailySeries{}, fmt.Errorf("failed to get working weekdays: %w", err)
	}
	if len(weekdays) == 0 {
		weekdays = b.defaultDays
	}

	rows, err := b.attendance.FetchDailyAttendance(ctx, companyID, employeeID, start, end)
	if err != nil {
		return analytics.DailySeries{}, fmt.Errorf("failed to fetch daily attendance: %w", err)
	}

	series, err := Align(employeeID, rows, weekdays, start, window)
	if err != nil {
		return analytics.DailySeries{}, err
	}

	if err := b.checkSufficient(series); err != nil {
		return analytics.DailySeries{}, err
	}
	return series, nil
}

func (b *SeriesBuilder) checkSufficient(series analytics.DailySeries) error {
	scheduled := len(series.ScheduledDays())
	if scheduled < b.minWorkingDays {
		return fmt.Errorf("%w: %d of %d required working days", analytics.ErrInsufficientData, scheduled, b.minWorkingDays)
	}
	return nil
}

// Align maps store rows onto window calendar days starting at start. Rows
// outside the window are ignored; duplicate dates are rejected.
func Align(subjectID string, rows []analytics.AttendanceDay, weekdays []time.Weekday, start time.Time, window int) (analytics.DailySeries, error) {
	start = truncateDay(start)
	working := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		working[d] = true
	}

	byDate := make(map[string]analytics.AttendanceDay, len(rows))
	for _, row := range rows {
		key := dateKey(truncateDay(row.Date))
		if _, exists := byDate[key]; exists {
			return analytics.DailySeries{}, fmt.Errorf("%w: %s", analytics.ErrDuplicateDate, key)
		}
		byDate[key] = row
	}

	days := make([]analytics.SeriesDay, window)
	for i := range window {
		date := start.AddDate(0, 0, i)
		day := analytics.SeriesDay{Date: date}
		row, found := byDate[dateKey(date)]
		workingDay := working[date.Weekday()]

		switch {
		case found && row.Present != nil && *row.Present:
			day.Scheduled = 1
			day.Present = 1
			if row.LateMinutes <= 0 {
				day.OnTime = 1
			}
			if row.CheckInMinute != nil {
				day.CheckIns = []int{*row.CheckInMinute}
			}
		case found && row.OnLeave:
			// approved leave is neither a failure nor a success
		case workingDay:
			day.Scheduled = 1
		}
		days[i] = day
	}

	return analytics.DailySeries{
		SubjectID: subjectID,
		Start:     start,
		End:       start.AddDate(0, 0, window-1),
		Weekdays:  weekdays,
		Days:      days,
	}, nil
}

// Merge sums aligned employee series into one branch series. All inputs
// must share the same window.
func Merge(subjectID string, series ...analytics.DailySeries) (analytics.DailySeries, error) {
	if len(series) == 0 {
		return analytics.DailySeries{}, analytics.ErrInsufficientData
	}

	first := series[0]
	days := make([]analytics.SeriesDay, first.Len())
	for i, d := range first.Days {
		days[i] = analytics.SeriesDay{Date: d.Date}
	}

	weekdaySet := make(map[time.Weekday]bool)
	for _, s := range series {
		if s.Len() != first.Len() || !s.Start.Equal(first.Start) {
			return analytics.DailySeries{}, fmt.Errorf("cannot merge series %s: window mismatch", s.SubjectID)
		}
		for _, w := range s.Weekdays {
			weekdaySet[w] = true
		}
		for i, d := range s.Days {
			days[i].Scheduled += d.Scheduled
			days[i].Present += d.Present
			days[i].OnTime += d.OnTime
			days[i].CheckIns = append(days[i].CheckIns, d.CheckIns...)
		}
	}

	weekdays := make([]time.Weekday, 0, len(weekdaySet))
	for w := time.Sunday; w <= time.Saturday; w++ {
		if weekdaySet[w] {
			weekdays = append(weekdays, w)
		}
	}

	return analytics.DailySeries{
		SubjectID: subjectID,
		Start:     first.Start,
		End:       first.End,
		Weekdays:  weekdays,
		Days:      days,
	}, nil
}

// CalendarPercent returns one value per calendar day in percent. Days with
// nothing scheduled are imputed with the window mean so they stay neutral.
func CalendarPercent(series analytics.DailySeries) []float64 {
	scheduled, present, _ := series.Totals()
	mean := 0.0
	if scheduled > 0 {
		mean = float64(present) / float64(scheduled) * 100
	}

	out := make([]float64, series.Len())
	for i, d := range series.Days {
		if d.Scheduled == 0 {
			out[i] = mean
			continue
		}
		out[i] = d.Rate() * 100
	}
	return out
}
