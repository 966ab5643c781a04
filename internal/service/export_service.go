package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/export"
)

type gradeSheetSource interface {
	GradeSheet(ctx context.Context, actor authz.Actor, courseID, groupID string) ([]models.GradeDetail, error)
	StudentGrades(ctx context.Context, actor authz.Actor, studentID string) ([]models.GradeDetail, error)
}

type attendanceListSource interface {
	List(ctx context.Context, actor authz.Actor, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error)
}

// ExportFormat selects the rendered output.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult bundles rendered bytes with serving metadata.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders grade sheets and attendance lists as CSV or PDF.
// Authorization rides on the underlying services; nothing is exportable
// that the actor could not read.
type ExportService struct {
	grades     gradeSheetSource
	attendance attendanceListSource
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewExportService creates an ExportService.
func NewExportService(grades gradeSheetSource, attendance attendanceListSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		grades:     grades,
		attendance: attendance,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// GradeSheet renders the grades of one course for one group.
func (s *ExportService) GradeSheet(ctx context.Context, actor authz.Actor, courseID, groupID string, format ExportFormat) (*ExportResult, error) {
	grades, err := s.grades.GradeSheet(ctx, actor, courseID, groupID)
	if err != nil {
		return nil, err
	}

	dataset := gradeDataset(grades)
	title := "Grade sheet"
	if len(grades) > 0 {
		title = fmt.Sprintf("Grade sheet %s", grades[0].CourseCode)
	}

	return s.render(dataset, title, "grade-sheet", format)
}

// StudentTranscript renders every grade of one student.
func (s *ExportService) StudentTranscript(ctx context.Context, actor authz.Actor, studentID string, format ExportFormat) (*ExportResult, error) {
	grades, err := s.grades.StudentGrades(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	return s.render(gradeDataset(grades), "Transcript", "transcript", format)
}

// AttendanceList renders attendance records matching the filter.
func (s *ExportService) AttendanceList(ctx context.Context, actor authz.Actor, filter models.AttendanceFilter, format ExportFormat) (*ExportResult, error) {
	// Export the full match, not one page.
	filter.Page = 1
	filter.PageSize = 10000

	records, _, err := s.attendance.List(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Course", "Date", "Week", "Status", "Notes"},
	}
	for _, record := range records {
		notes := ""
		if record.Notes != nil {
			notes = *record.Notes
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student": record.StudentName,
			"Course":  record.CourseCode,
			"Date":    record.Date.Format("2006-01-02"),
			"Week":    strconv.Itoa(record.WeekNumber),
			"Status":  string(record.Status),
			"Notes":   notes,
		})
	}

	return s.render(dataset, "Attendance", "attendance", format)
}

func (s *ExportService) render(dataset export.Dataset, title, stem string, format ExportFormat) (*ExportResult, error) {
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Filename: stem + ".csv", ContentType: "text/csv", Data: data}, nil
	case FormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Filename: stem + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func gradeDataset(grades []models.GradeDetail) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Student", "Course", "TD", "TP", "Exam", "Average"},
	}
	for _, grade := range grades {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student": grade.StudentName,
			"Course":  grade.CourseCode,
			"TD":      formatMark(grade.TDMark),
			"TP":      formatMark(grade.TPMark),
			"Exam":    formatMark(grade.ExamMark),
			"Average": formatMark(grade.AverageMark),
		})
	}
	return dataset
}

func formatMark(mark *float64) string {
	if mark == nil {
		return ""
	}
	return strconv.FormatFloat(*mark, 'f', 2, 64)
}
