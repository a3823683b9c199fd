package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/predict"
)

type (
	studentGPARow struct {
		StudentID int      `db:"student_id"`
		ClassID   null.Int `db:"class_id"`
		ClassName string   `db:"class_name"`
		GPA       float64  `db:"gpa"`
	}

	subjectScoreRow struct {
		SubjectID   int          `db:"subject_id"`
		SubjectCode string       `db:"subject_code"`
		SubjectName string       `db:"subject_name"`
		Midterm     null.Float64 `db:"midterm"`
		Final       null.Float64 `db:"final"`
	}

	scoreRow struct {
		StudentID   int     `db:"student_id"`
		StudentCode string  `db:"student_code"`
		StudentName string  `db:"student_name"`
		SubjectID   int     `db:"subject_id"`
		SubjectName string  `db:"subject_name"`
		Midterm     float64 `db:"midterm"`
		Final       float64 `db:"final"`
		Composite   float64 `db:"composite"`
	}
)

// AnalyticsRepository serves the read-only reports: GPA analytics and predictive scoring.
type AnalyticsRepository struct {
	db *DB
}

var (
	_ analytics.Repository = (*AnalyticsRepository)(nil) // interface compliance check
	_ predict.Repository   = (*AnalyticsRepository)(nil)
)

func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (repo *AnalyticsRepository) QueryStudentGPAs(ctx context.Context) ([]analytics.StudentGPA, error) {
	var rows []studentGPARow
	b := psql.
		Select("s.id AS student_id", "s.class_id", "COALESCE(c.name, '') AS class_name", "s.gpa").
		From("students s").
		LeftJoin("classes c ON c.id = s.class_id").
		OrderBy("s.id")
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting student GPAs")
	}

	out := make([]analytics.StudentGPA, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.StudentGPA{
			StudentID: row.StudentID,
			ClassID:   row.ClassID.Ptr(),
			ClassName: row.ClassName,
			GPA:       row.GPA,
		})
	}
	return out, nil
}

func (repo *AnalyticsRepository) GetStudentGPA(ctx context.Context, studentID int) (float64, error) {
	var gpa float64
	if err := get(ctx, repo.db, &gpa, psql.Select("gpa").From("students").Where(sq.Eq{"id": studentID})); err != nil {
		if isNoRows(err) {
			return 0, analytics.ErrStudentNotFound
		}
		return 0, errors.Wrap(err, "selecting student GPA")
	}
	return gpa, nil
}

func (repo *AnalyticsRepository) QuerySubjectScores(ctx context.Context, studentID int) ([]analytics.SubjectScore, error) {
	var rows []subjectScoreRow
	b := psql.
		Select("sb.id AS subject_id", "sb.code AS subject_code", "sb.name AS subject_name", "g.midterm", "g.final").
		From("enrollments e").
		Join("subjects sb ON sb.id = e.subject_id").
		LeftJoin("grades g ON g.student_id = e.student_id AND g.subject_id = e.subject_id").
		Where(sq.Eq{"e.student_id": studentID}).
		OrderBy("sb.name", "sb.id")
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting subject scores")
	}

	scores := make([]analytics.SubjectScore, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, analytics.SubjectScore{
			SubjectID:   row.SubjectID,
			SubjectCode: row.SubjectCode,
			SubjectName: row.SubjectName,
			Midterm:     row.Midterm.Ptr(),
			Final:       row.Final.Ptr(),
		})
	}
	return scores, nil
}

func (repo *AnalyticsRepository) QueryScoreRows(ctx context.Context, filter predict.Filter) ([]predict.Row, error) {
	b := psql.
		Select(
			"st.id AS student_id", "st.code AS student_code", "st.name AS student_name",
			"sb.id AS subject_id", "sb.name AS subject_name",
			"COALESCE(g.midterm, 0) AS midterm", "COALESCE(g.final, 0) AS final", "g.composite",
		).
		From("grades g").
		Join("students st ON st.id = g.student_id").
		Join("subjects sb ON sb.id = g.subject_id").
		OrderBy("st.name", "st.id", "sb.name")
	if filter.SubjectID != 0 {
		b = b.Where(sq.Eq{"g.subject_id": filter.SubjectID})
	}

	var rows []scoreRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting score rows")
	}
	out := make([]predict.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, predict.Row{
			StudentID:   row.StudentID,
			StudentCode: row.StudentCode,
			StudentName: row.StudentName,
			SubjectID:   row.SubjectID,
			SubjectName: row.SubjectName,
			Midterm:     row.Midterm,
			Final:       row.Final,
			Composite:   row.Composite,
		})
	}
	return out, nil
}
