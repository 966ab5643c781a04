package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

// AttendanceRepository persists per-session attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts or updates one attendance record. The
// (student_id, course_id, date, week_number) tuple is unique; a repeated
// write replaces status and notes in place.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO attendance (id, student_id, course_id, date, week_number, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (student_id, course_id, date, week_number)
DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, course_id, date, week_number, status, notes, created_at, updated_at`
	var stored models.Attendance
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentID, record.CourseID, record.Date, record.WeekNumber,
		record.Status, record.Notes, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// List returns attendance rows matching the provided filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base := `FROM attendance a
JOIN users u ON u.id = a.student_id
JOIN courses c ON c.id = a.course_id`
	where := []string{"1=1"}
	var args []interface{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("a.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.WeekNumber != nil {
		where = append(where, fmt.Sprintf("a.week_number = $%d", len(args)+1))
		args = append(args, *filter.WeekNumber)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"date":   "a.date",
		"week":   "a.week_number",
		"status": "a.status",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "a.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.course_id, a.date, a.week_number, a.status, a.notes, a.created_at, a.updated_at,
        u.first_name || ' ' || u.last_name AS student_name, c.code AS course_code
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// StudentSummary aggregates attendance counts for a student in a course.
func (r *AttendanceRepository) StudentSummary(ctx context.Context, studentID, courseID string) (*models.AttendanceSummary, error) {
	const query = `
SELECT COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
       COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent,
       COUNT(*) FILTER (WHERE status = 'LATE') AS late,
       COUNT(*) FILTER (WHERE status = 'EXCUSED') AS excused,
       COUNT(*) AS total
FROM attendance WHERE student_id = $1 AND course_id = $2`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	if summary.Total > 0 {
		summary.Percent = float64(summary.Present+summary.Late) / float64(summary.Total) * 100
	}
	return &summary, nil
}
