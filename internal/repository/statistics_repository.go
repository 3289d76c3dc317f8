package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/companyim/talenta-api/internal/models"
)

// QueryObserver receives per-query durations from the heavier aggregate
// repositories.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// StatisticsRepository aggregates attendance and talent data for the
// read-only statistics views.
type StatisticsRepository struct {
	db      *sqlx.DB
	metrics QueryObserver
}

// NewStatisticsRepository constructs a StatisticsRepository. A nil observer
// disables query timing.
func NewStatisticsRepository(db *sqlx.DB, metrics QueryObserver) *StatisticsRepository {
	return &StatisticsRepository{db: db, metrics: metrics}
}

func (r *StatisticsRepository) observe(label string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

// Overview gathers the headline counters, optionally scoped to a grade or
// department. Student and attendance halves run as separate queries so the
// talent sum is counted once per student, not once per attendance row.
func (r *StatisticsRepository) Overview(ctx context.Context, grade, departmentID string) (*models.StatisticsOverview, error) {
	defer r.observe("statistics_overview", time.Now())
	where := []string{"1=1"}
	args := []interface{}{}
	if grade != "" {
		where = append(where, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, grade)
	}
	if departmentID != "" {
		where = append(where, fmt.Sprintf("s.department_id = $%d", len(args)+1))
		args = append(args, departmentID)
	}

	studentQuery := fmt.Sprintf(`SELECT COUNT(*) AS student_count, COALESCE(SUM(s.talent), 0) AS total_talent
        FROM students s WHERE %s`, strings.Join(where, " AND "))
	var base struct {
		StudentCount int `db:"student_count"`
		TotalTalent  int `db:"total_talent"`
	}
	if err := r.db.GetContext(ctx, &base, studentQuery, args...); err != nil {
		return nil, fmt.Errorf("statistics students: %w", err)
	}

	attendanceQuery := fmt.Sprintf(`SELECT COUNT(a.id) AS attendance_count,
        COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count
        FROM attendance a
        JOIN students s ON s.id = a.student_id
        WHERE %s`, strings.Join(where, " AND "))
	var att struct {
		AttendanceCount int `db:"attendance_count"`
		PresentCount    int `db:"present_count"`
	}
	if err := r.db.GetContext(ctx, &att, attendanceQuery, args...); err != nil {
		return nil, fmt.Errorf("statistics attendance: %w", err)
	}

	overview := &models.StatisticsOverview{
		StudentCount:    base.StudentCount,
		TotalTalent:     base.TotalTalent,
		AttendanceCount: att.AttendanceCount,
		PresentCount:    att.PresentCount,
		AbsentCount:     att.AttendanceCount - att.PresentCount,
	}
	if overview.AttendanceCount > 0 {
		overview.AttendanceRate = roundRate(float64(overview.PresentCount) / float64(overview.AttendanceCount) * 100)
	}
	if overview.StudentCount > 0 {
		overview.AverageTalent = float64(overview.TotalTalent) / float64(overview.StudentCount)
	}
	return overview, nil
}

// StudentCounts returns attendance totals for a single student.
func (r *StatisticsRepository) StudentCounts(ctx context.Context, studentID string) (total, present int, err error) {
	defer r.observe("statistics_student", time.Now())
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'present') AS present
        FROM attendance WHERE student_id = $1`
	var row struct {
		Total   int `db:"total"`
		Present int `db:"present"`
	}
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return 0, 0, fmt.Errorf("student statistics: %w", err)
	}
	return row.Total, row.Present, nil
}

// PeriodCounts returns attendance totals between two dates, optionally
// scoped to a grade or department.
func (r *StatisticsRepository) PeriodCounts(ctx context.Context, from, to time.Time, grade, departmentID string) (total, present int, err error) {
	defer r.observe("statistics_period", time.Now())
	where := []string{"a.date >= $1", "a.date <= $2"}
	args := []interface{}{from, to}
	if grade != "" {
		where = append(where, fmt.Sprintf("s.grade = $%d", len(args)+1))
		args = append(args, grade)
	}
	if departmentID != "" {
		where = append(where, fmt.Sprintf("a.department_id = $%d", len(args)+1))
		args = append(args, departmentID)
	}
	query := fmt.Sprintf(`SELECT COUNT(a.id) AS total,
        COUNT(a.id) FILTER (WHERE a.status = 'present') AS present
        FROM attendance a
        JOIN students s ON s.id = a.student_id
        WHERE %s`, strings.Join(where, " AND "))
	var row struct {
		Total   int `db:"total"`
		Present int `db:"present"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return 0, 0, fmt.Errorf("period statistics: %w", err)
	}
	return row.Total, row.Present, nil
}

// GradeComparison aggregates attendance and talent per grade.
func (r *StatisticsRepository) GradeComparison(ctx context.Context) ([]models.GroupStatistics, error) {
	defer r.observe("grade_comparison", time.Now())
	const query = `SELECT grp, student_count, total_count, present_count, total_talent FROM (
        SELECT s.grade AS grp,
            COUNT(DISTINCT s.id) AS student_count,
            (SELECT COALESCE(SUM(t.talent), 0) FROM students t WHERE t.grade = s.grade) AS total_talent,
            COUNT(a.id) AS total_count,
            COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count
        FROM students s
        LEFT JOIN attendance a ON a.student_id = s.id
        GROUP BY s.grade
    ) g ORDER BY grp ASC`
	var rows []models.GroupStatistics
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("grade comparison: %w", err)
	}
	for i := range rows {
		if rows[i].TotalCount > 0 {
			rows[i].AttendanceRate = roundRate(float64(rows[i].PresentCount) / float64(rows[i].TotalCount) * 100)
		}
	}
	return rows, nil
}

// DepartmentComparison aggregates attendance and talent per department.
func (r *StatisticsRepository) DepartmentComparison(ctx context.Context) ([]models.GroupStatistics, error) {
	defer r.observe("department_comparison", time.Now())
	const query = `SELECT grp, student_count, total_count, present_count, total_talent FROM (
        SELECT d.name AS grp,
            COUNT(DISTINCT s.id) AS student_count,
            (SELECT COALESCE(SUM(t.talent), 0) FROM students t WHERE t.department_id = d.id) AS total_talent,
            COUNT(a.id) AS total_count,
            COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count
        FROM departments d
        LEFT JOIN students s ON s.department_id = d.id
        LEFT JOIN attendance a ON a.department_id = d.id
        GROUP BY d.id, d.name
    ) g ORDER BY grp ASC`
	var rows []models.GroupStatistics
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("department comparison: %w", err)
	}
	for i := range rows {
		if rows[i].TotalCount > 0 {
			rows[i].AttendanceRate = roundRate(float64(rows[i].PresentCount) / float64(rows[i].TotalCount) * 100)
		}
	}
	return rows, nil
}

// TalentDistribution buckets the transaction log by type.
func (r *StatisticsRepository) TalentDistribution(ctx context.Context) ([]models.TalentDistributionRow, error) {
	defer r.observe("talent_distribution", time.Now())
	const query = `SELECT type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount
        FROM talent_transactions
        GROUP BY type
        ORDER BY type ASC`
	var rows []models.TalentDistributionRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("talent distribution: %w", err)
	}
	return rows, nil
}

// ExportRows flattens the whole dataset for the export endpoint.
func (r *StatisticsRepository) ExportRows(ctx context.Context) ([]models.ExportRow, error) {
	defer r.observe("export_rows", time.Now())
	const query = `SELECT s.name AS student_name, s.grade, COALESCE(d.name, '') AS department_name,
        TO_CHAR(a.date, 'YYYY-MM-DD') AS date, a.type, a.status, a.talent_given, s.talent
        FROM attendance a
        JOIN students s ON s.id = a.student_id
        LEFT JOIN departments d ON d.id = a.department_id
        ORDER BY s.grade ASC, s.name ASC, a.date ASC`
	var rows []models.ExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("export rows: %w", err)
	}
	return rows, nil
}

func roundRate(rate float64) float64 {
	return float64(int(rate*100+0.5)) / 100
}
