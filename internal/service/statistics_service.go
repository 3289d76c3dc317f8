package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/companyim/talenta-api/internal/models"
	"github.com/companyim/talenta-api/internal/sundays"
	appErrors "github.com/companyim/talenta-api/pkg/errors"
	"github.com/companyim/talenta-api/pkg/export"
)

type statisticsRepository interface {
	Overview(ctx context.Context, grade, departmentID string) (*models.StatisticsOverview, error)
	StudentCounts(ctx context.Context, studentID string) (total, present int, err error)
	PeriodCounts(ctx context.Context, from, to time.Time, grade, departmentID string) (total, present int, err error)
	GradeComparison(ctx context.Context) ([]models.GroupStatistics, error)
	DepartmentComparison(ctx context.Context) ([]models.GroupStatistics, error)
	TalentDistribution(ctx context.Context) ([]models.TalentDistributionRow, error)
	ExportRows(ctx context.Context) ([]models.ExportRow, error)
}

type statisticsStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type statisticsTrendReader interface {
	Trend(ctx context.Context, grade, departmentID string) ([]models.AttendanceTrendPoint, error)
}

type statisticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ExportFormat selects the rendering of the statistics export.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult carries rendered export bytes and their content type.
type ExportResult struct {
	FileName    string
	ContentType string
	Body        []byte
}

// StatisticsService serves the aggregate read views and the dataset
// export.
type StatisticsService struct {
	repo       statisticsRepository
	students   statisticsStudentReader
	attendance statisticsTrendReader
	cache      statisticsCache
	cacheTTL   time.Duration
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewStatisticsService constructs the statistics service.
func NewStatisticsService(repo statisticsRepository, students statisticsStudentReader, attendance statisticsTrendReader, cache statisticsCache, cacheTTL time.Duration, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{
		repo:       repo,
		students:   students,
		attendance: attendance,
		cache:      cache,
		cacheTTL:   cacheTTL,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// Overview returns the headline counters, cache-aside.
func (s *StatisticsService) Overview(ctx context.Context, grade, departmentID string) (*models.StatisticsOverview, bool, error) {
	key := fmt.Sprintf("statistics:overview:%s:%s", grade, departmentID)
	if s.cache != nil {
		var cached models.StatisticsOverview
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("overview cache read failed", zap.Error(err))
		}
	}

	overview, err := s.repo.Overview(ctx, grade, departmentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overview")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, overview, s.cacheTTL); err != nil {
			s.logger.Warn("overview cache write failed", zap.Error(err))
		}
	}
	return overview, false, nil
}

// Student returns per-student attendance counters and the current balance.
func (s *StatisticsService) Student(ctx context.Context, studentID string) (*models.StudentStatistics, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	total, present, err := s.repo.StudentCounts(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student statistics")
	}
	stats := &models.StudentStatistics{
		Student:      *student,
		TotalCount:   total,
		PresentCount: present,
		AbsentCount:  total - present,
		Talent:       student.Talent,
	}
	if total > 0 {
		stats.AttendanceRate = rate(present, total)
	}
	return stats, nil
}

// Period returns attendance counters between two inclusive dates.
func (s *StatisticsService) Period(ctx context.Context, startDate, endDate, grade, departmentID string) (*models.PeriodStatistics, error) {
	from, err := time.ParseInLocation(sundays.DateLayout, startDate, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date, expected YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(sundays.DateLayout, endDate, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date, expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	total, present, err := s.repo.PeriodCounts(ctx, from, to, grade, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period statistics")
	}
	stats := &models.PeriodStatistics{
		StartDate:    startDate,
		EndDate:      endDate,
		TotalCount:   total,
		PresentCount: present,
		AbsentCount:  total - present,
	}
	if total > 0 {
		stats.AttendanceRate = rate(present, total)
	}
	return stats, nil
}

// Trend returns per-date attendance counts in date order.
func (s *StatisticsService) Trend(ctx context.Context, grade, departmentID string) ([]models.AttendanceTrendPoint, error) {
	points, err := s.attendance.Trend(ctx, grade, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trend")
	}
	return points, nil
}

// GradeComparison compares attendance and balances across grades.
func (s *StatisticsService) GradeComparison(ctx context.Context) ([]models.GroupStatistics, error) {
	rows, err := s.repo.GradeComparison(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compare grades")
	}
	return rows, nil
}

// DepartmentComparison compares attendance and balances across departments.
func (s *StatisticsService) DepartmentComparison(ctx context.Context) ([]models.GroupStatistics, error) {
	rows, err := s.repo.DepartmentComparison(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compare departments")
	}
	return rows, nil
}

// TalentDistribution buckets the transaction log by type.
func (s *StatisticsService) TalentDistribution(ctx context.Context) ([]models.TalentDistributionRow, error) {
	rows, err := s.repo.TalentDistribution(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load talent distribution")
	}
	return rows, nil
}

// Export renders the full dataset in the requested format.
func (s *StatisticsService) Export(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	if format != ExportCSV && format != ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	rows, err := s.repo.ExportRows(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export rows")
	}

	dataset := export.Dataset{
		Columns: []export.Column{
			{Title: "Name"},
			{Title: "Grade"},
			{Title: "Department"},
			{Title: "Date"},
			{Title: "Type"},
			{Title: "Status"},
			{Title: "Talent Given", Numeric: true},
			{Title: "Talent", Numeric: true},
		},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			row.StudentName,
			row.Grade,
			row.DepartmentName,
			row.Date,
			row.Type,
			row.Status,
			strconv.Itoa(row.TalentGiven),
			strconv.Itoa(row.Talent),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case ExportPDF:
		body, err := s.pdf.Render(dataset, "Attendance Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("attendance-%s.pdf", stamp),
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	default:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("attendance-%s.csv", stamp),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	}
}

func rate(present, total int) float64 {
	return float64(int(float64(present)/float64(total)*100*100+0.5)) / 100
}
