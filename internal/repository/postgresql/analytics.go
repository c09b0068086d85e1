package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/database"
)

type analyticsRepositoryImpl struct {
	db *database.DB
}

func NewAnalyticsRepository(db *database.DB) analytics.AnalyticsRepository {
	return &analyticsRepositoryImpl{db: db}
}

// attendance.status values that mean the employee showed up
var presentStatuses = map[string]bool{
	"on_time":     true,
	"late":        true,
	"auto_closed": true,
	"approved":    true,
}

// attendance.status values that mean the employee did not show up
var absentStatuses = map[string]bool{
	"absent":   true,
	"rejected": true,
}

// FetchDailyAttendance implements analytics.AttendanceReader.
// One row per calendar day; days without a decided record come back with a
// nil Present. Check-in minutes are local to the employee's branch.
func (r *analyticsRepositoryImpl) FetchDailyAttendance(ctx context.Context, companyID, subjectID string, start, end time.Time) ([]analytics.AttendanceDay, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		WITH emp AS (
			SELECT e.id, COALESCE(e.branch_id::text, '') AS branch_id, COALESCE(b.timezone, 'UTC') AS tz
			FROM employees e
			LEFT JOIN branches b ON b.id = e.branch_id
			WHERE e.id = $1 AND e.company_id = $2
		)
		SELECT
			d.day::date,
			a.status,
			COALESCE(a.late_minutes, 0),
			(EXTRACT(HOUR FROM a.clock_in AT TIME ZONE emp.tz) * 60
				+ EXTRACT(MINUTE FROM a.clock_in AT TIME ZONE emp.tz))::int,
			(a.leave_type_id IS NOT NULL OR a.status = 'holiday' OR lr.id IS NOT NULL) AS on_leave,
			emp.branch_id
		FROM emp
		CROSS JOIN generate_series($3::date, $4::date, interval '1 day') AS d(day)
		LEFT JOIN LATERAL (
			SELECT status, late_minutes, clock_in, leave_type_id
			FROM attendances
			WHERE employee_id = emp.id AND company_id = $2 AND date = d.day::date
			ORDER BY clock_in ASC NULLS LAST
			LIMIT 1
		) a ON TRUE
		LEFT JOIN LATERAL (
			SELECT id
			FROM leave_requests
			WHERE employee_id = emp.id
			  AND status = 'approved'
			  AND d.day::date BETWEEN start_date AND end_date
			LIMIT 1
		) lr ON TRUE
		ORDER BY d.day
	`

	rows, err := q.Query(ctx, query, subjectID, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily attendance: %w", err)
	}
	defer rows.Close()

	var days []analytics.AttendanceDay
	for rows.Next() {
		var (
			day     analytics.AttendanceDay
			status  *string
			late    int
			checkIn *int
		)
		if err := rows.Scan(&day.Date, &status, &late, &checkIn, &day.OnLeave, &day.BranchID); err != nil {
			return nil, fmt.Errorf("failed to scan daily attendance: %w", err)
		}
		day.LateMinutes = late
		if status != nil && !day.OnLeave {
			switch {
			case presentStatuses[*status]:
				present := true
				day.Present = &present
				day.CheckInMinute = checkIn
			case absentStatuses[*status]:
				present := false
				day.Present = &present
			}
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily attendance: %w", err)
	}

	if len(days) == 0 {
		return nil, fmt.Errorf("%w: %s", analytics.ErrSubjectNotFound, subjectID)
	}
	return days, nil
}

// WorkingWeekdays implements analytics.ScheduleReader.
// The current schedule assignment wins over the employee's default schedule.
func (r *analyticsRepositoryImpl) WorkingWeekdays(ctx context.Context, companyID, employeeID string) ([]time.Weekday, error) {
	q := GetQuerier(ctx, r.db)

	// day_of_week follows ISODOW: 1 (Monday) to 7 (Sunday)
	query := `
		SELECT DISTINCT wst.day_of_week
		FROM employees e
		JOIN work_schedules ws ON ws.id = COALESCE(
			(
				SELECT esa.work_schedule_id
				FROM employee_schedule_assignments esa
				WHERE esa.employee_id = e.id
				  AND CURRENT_DATE BETWEEN esa.start_date AND esa.end_date
				LIMIT 1
			),
			e.work_schedule_id
		)
		JOIN work_schedule_times wst ON wst.work_schedule_id = ws.id
		WHERE e.id = $1
		  AND e.company_id = $2
		  AND ws.deleted_at IS NULL
		ORDER BY wst.day_of_week
	`

	rows, err := q.Query(ctx, query, employeeID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query working weekdays: %w", err)
	}
	defer rows.Close()

	weekdays := []time.Weekday{}
	for rows.Next() {
		var isoDay int
		if err := rows.Scan(&isoDay); err != nil {
			return nil, fmt.Errorf("failed to scan working weekday: %w", err)
		}
		weekdays = append(weekdays, time.Weekday(isoDay%7))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate working weekdays: %w", err)
	}

	return weekdays, nil
}

// ListActiveEmployees implements analytics.RosterReader.
func (r *analyticsRepositoryImpl) ListActiveEmployees(ctx context.Context, companyID, branchID string) ([]analytics.EmployeeRef, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, full_name
		FROM employees
		WHERE company_id = $1
		  AND branch_id = $2
		  AND employment_status = 'active'
		  AND deleted_at IS NULL
		ORDER BY full_name ASC, id ASC
	`

	rows, err := q.Query(ctx, query, companyID, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active employees: %w", err)
	}
	defer rows.Close()

	var employees []analytics.EmployeeRef
	for rows.Next() {
		var e analytics.EmployeeRef
		if err := rows.Scan(&e.ID, &e.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}

// ListBranches implements analytics.RosterReader.
func (r *analyticsRepositoryImpl) ListBranches(ctx context.Context) ([]analytics.BranchRef, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, name
		FROM branches
		ORDER BY company_id ASC, name ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}
	defer rows.Close()

	var branches []analytics.BranchRef
	for rows.Next() {
		var b analytics.BranchRef
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.Name); err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}

	return branches, nil
}
