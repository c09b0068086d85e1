package analytics

import (
	"context"
	"time"
)

// AttendanceReader is the read-only view of the attendance store.
type AttendanceReader interface {
	// FetchDailyAttendance returns one AttendanceDay per calendar day in
	// [start, end]. Days without a record have a nil Present.
	FetchDailyAttendance(ctx context.Context, companyID, subjectID string, start, end time.Time) ([]AttendanceDay, error)
}

// ScheduleReader resolves the declared working weekdays of an employee.
type ScheduleReader interface {
	// WorkingWeekdays returns an empty slice when no schedule is assigned.
	WorkingWeekdays(ctx context.Context, companyID, employeeID string) ([]time.Weekday, error)
}

// RosterReader lists the subjects of branch level analysis.
type RosterReader interface {
	ListActiveEmployees(ctx context.Context, companyID, branchID string) ([]EmployeeRef, error)
	ListBranches(ctx context.Context) ([]BranchRef, error)
}

// AnalyticsRepository is implemented by stores that serve all three views.
type AnalyticsRepository interface {
	AttendanceReader
	ScheduleReader
	RosterReader
}
