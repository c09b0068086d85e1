package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
)

// refDate is a Monday.
var refDate = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

var (
	allWeek  = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
	workWeek = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
)

const testCompanyID = "company-1"

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func presentDay(date time.Time) analytics.AttendanceDay {
	return analytics.AttendanceDay{Date: date, Present: boolPtr(true), CheckInMinute: intPtr(480)}
}

func absentDay(date time.Time) analytics.AttendanceDay {
	return analytics.AttendanceDay{Date: date, Present: boolPtr(false)}
}

// buildRows returns one row per calendar day of the window ending at end.
func buildRows(end time.Time, window int, day func(i int, date time.Time) analytics.AttendanceDay) []analytics.AttendanceDay {
	start := end.AddDate(0, 0, -(window - 1))
	rows := make([]analytics.AttendanceDay, 0, window)
	for i := range window {
		rows = append(rows, day(i, start.AddDate(0, 0, i)))
	}
	return rows
}

func perfectRows(end time.Time, window int) []analytics.AttendanceDay {
	return buildRows(end, window, func(_ int, date time.Time) analytics.AttendanceDay {
		return presentDay(date)
	})
}

// alignedSeries aligns rows for a window ending at end.
func alignedSeries(rows []analytics.AttendanceDay, weekdays []time.Weekday, end time.Time, window int) analytics.DailySeries {
	series, err := Align("emp-1", rows, weekdays, end.AddDate(0, 0, -(window-1)), window)
	if err != nil {
		panic(err)
	}
	return series
}

// ===== IN-MEMORY READERS =====

type fakeAttendance struct {
	mu    sync.Mutex
	rows  map[string][]analytics.AttendanceDay
	errs  map[string]error
	block bool // wait for the context to end
	calls int
}

func newFakeAttendance() *fakeAttendance {
	return &fakeAttendance{
		rows: make(map[string][]analytics.AttendanceDay),
		errs: make(map[string]error),
	}
}

func (f *fakeAttendance) FetchDailyAttendance(ctx context.Context, companyID, subjectID string, start, end time.Time) ([]analytics.AttendanceDay, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.errs[subjectID]; err != nil {
		return nil, err
	}
	var out []analytics.AttendanceDay
	for _, row := range f.rows[subjectID] {
		if row.Date.Before(start) || row.Date.After(end) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

type fakeSchedules struct {
	weekdays map[string][]time.Weekday
}

func (f *fakeSchedules) WorkingWeekdays(ctx context.Context, companyID, employeeID string) ([]time.Weekday, error) {
	return f.weekdays[employeeID], nil
}

type fakeRoster struct {
	employees map[string][]analytics.EmployeeRef
	branches  []analytics.BranchRef
	err       error
}

func (f *fakeRoster) ListActiveEmployees(ctx context.Context, companyID, branchID string) ([]analytics.EmployeeRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.employees[branchID], nil
}

func (f *fakeRoster) ListBranches(ctx context.Context) ([]analytics.BranchRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.branches, nil
}

var errStoreDown = errors.New("attendance store unavailable")
