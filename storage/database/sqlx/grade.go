package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grade"
)

type (
	gradeRow struct {
		ID        int          `db:"id"`
		StudentID int          `db:"student_id"`
		SubjectID int          `db:"subject_id"`
		Midterm   null.Float64 `db:"midterm"`
		Final     null.Float64 `db:"final"`
		Composite float64      `db:"composite"`
		CreatedAt time.Time    `db:"created_at"`
		UpdatedAt time.Time    `db:"updated_at"`
	}

	// entryRow is an enrollment left joined with its grade.
	entryRow struct {
		StudentID   int          `db:"student_id"`
		StudentCode string       `db:"student_code"`
		StudentName string       `db:"student_name"`
		ClassName   string       `db:"class_name"`
		SubjectID   int          `db:"subject_id"`
		SubjectCode string       `db:"subject_code"`
		SubjectName string       `db:"subject_name"`
		GradeID     null.Int     `db:"grade_id"`
		Midterm     null.Float64 `db:"midterm"`
		Final       null.Float64 `db:"final"`
		Composite   null.Float64 `db:"composite"`
		CreatedAt   null.Time    `db:"created_at"`
		UpdatedAt   null.Time    `db:"updated_at"`
	}
)

func (r gradeRow) toGrade() grade.Grade {
	return grade.Grade{
		ID:        r.ID,
		StudentID: r.StudentID,
		SubjectID: r.SubjectID,
		Midterm:   r.Midterm.Ptr(),
		Final:     r.Final.Ptr(),
		Composite: r.Composite,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r entryRow) toEntry() grade.Entry {
	e := grade.Entry{
		StudentID:   r.StudentID,
		StudentCode: r.StudentCode,
		StudentName: r.StudentName,
		ClassName:   r.ClassName,
		SubjectID:   r.SubjectID,
		SubjectCode: r.SubjectCode,
		SubjectName: r.SubjectName,
		Mark:        grade.Ungraded{},
	}
	if r.GradeID.Valid {
		e.Mark = grade.Graded{Grade: grade.Grade{
			ID:        r.GradeID.Int,
			StudentID: r.StudentID,
			SubjectID: r.SubjectID,
			Midterm:   r.Midterm.Ptr(),
			Final:     r.Final.Ptr(),
			Composite: r.Composite.Float64,
			CreatedAt: r.CreatedAt.Time.UTC(),
			UpdatedAt: r.UpdatedAt.Time.UTC(),
		}}
	}
	return e
}

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) IsEnrolled(ctx context.Context, studentID, subjectID int, exec ...core.DBExecutor) (bool, error) {
	var enrolled bool
	b := psql.Select("COUNT(*) > 0").From("enrollments").Where(sq.Eq{"student_id": studentID, "subject_id": subjectID})
	if err := get(ctx, repo.db.getExec(exec), &enrolled, b); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return enrolled, nil
}

func (repo *gradeRepository) GetGrade(ctx context.Context, filter grade.GetFilter, exec ...core.DBExecutor) (grade.Grade, error) {
	b := psql.
		Select("id", "student_id", "subject_id", "midterm", "final", "composite", "created_at", "updated_at").
		From("grades")
	if filter.ID != 0 {
		b = b.Where(sq.Eq{"id": filter.ID})
	} else {
		b = b.Where(sq.Eq{"student_id": filter.StudentID, "subject_id": filter.SubjectID})
	}

	var row gradeRow
	if err := get(ctx, repo.db.getExec(exec), &row, b); err != nil {
		if isNoRows(err) {
			return grade.Grade{}, grade.ErrNotFound
		}
		return grade.Grade{}, errors.Wrap(err, "selecting grade")
	}
	return row.toGrade(), nil
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	id, err := insert(ctx, repo.db.getExec(exec), psql.Insert("grades").
		Columns("student_id", "subject_id", "midterm", "final", "composite", "created_at", "updated_at").
		Values(g.StudentID, g.SubjectID, null.Float64FromPtr(g.Midterm), null.Float64FromPtr(g.Final), g.Composite, g.CreatedAt, g.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return grade.Grade{}, grade.ErrDuplicateGrade
		}
		return grade.Grade{}, errors.Wrap(err, "inserting grade")
	}
	g.ID = id
	return g, nil
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	res, err := execute(ctx, repo.db.getExec(exec), psql.Update("grades").
		Set("student_id", g.StudentID).
		Set("subject_id", g.SubjectID).
		Set("midterm", null.Float64FromPtr(g.Midterm)).
		Set("final", null.Float64FromPtr(g.Final)).
		Set("composite", g.Composite).
		Set("updated_at", g.UpdatedAt).
		Where(sq.Eq{"id": g.ID}))
	if err != nil {
		if isUniqueViolation(err) {
			return grade.Grade{}, grade.ErrDuplicateGrade
		}
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	if err = mustAffect(res, grade.ErrNotFound); err != nil {
		return grade.Grade{}, err
	}
	return g, nil
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := execute(ctx, repo.db.getExec(exec), psql.Delete("grades").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return mustAffect(res, grade.ErrNotFound)
}

func (repo *gradeRepository) QueryComposites(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]float64, error) {
	var composites []float64
	b := psql.Select("composite").From("grades").Where(sq.Eq{"student_id": studentID}).OrderBy("id")
	if err := selectAll(ctx, repo.db.getExec(exec), &composites, b); err != nil {
		return nil, errors.Wrap(err, "selecting composites")
	}
	return composites, nil
}

func (repo *gradeRepository) SetStudentGPA(ctx context.Context, studentID int, gpa float64, exec ...core.DBExecutor) error {
	res, err := execute(ctx, repo.db.getExec(exec), psql.Update("students").Set("gpa", gpa).Where(sq.Eq{"id": studentID}))
	if err != nil {
		return errors.Wrap(err, "updating student GPA")
	}
	return mustAffect(res, grade.ErrNotFound)
}

func (repo *gradeRepository) QueryEntries(ctx context.Context, filter grade.EntryFilter) ([]grade.Entry, error) {
	b := psql.
		Select(
			"st.id AS student_id", "st.code AS student_code", "st.name AS student_name",
			"COALESCE(c.name, '') AS class_name",
			"sb.id AS subject_id", "sb.code AS subject_code", "sb.name AS subject_name",
			"g.id AS grade_id", "g.midterm", "g.final", "g.composite", "g.created_at", "g.updated_at",
		).
		From("enrollments e").
		Join("students st ON st.id = e.student_id").
		Join("subjects sb ON sb.id = e.subject_id").
		LeftJoin("classes c ON c.id = st.class_id").
		LeftJoin("grades g ON g.student_id = e.student_id AND g.subject_id = e.subject_id").
		OrderBy("COALESCE(c.name, '')", "st.name", "st.id", "sb.name")
	if filter.StudentID != 0 {
		b = b.Where(sq.Eq{"e.student_id": filter.StudentID})
	}
	if filter.SubjectID != 0 {
		b = b.Where(sq.Eq{"e.subject_id": filter.SubjectID})
	}
	if filter.ClassID != 0 {
		b = b.Where(sq.Eq{"st.class_id": filter.ClassID})
	}

	var rows []entryRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting roster entries")
	}
	entries := make([]grade.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}
