package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/enrollment"
)

type enrollmentRow struct {
	ID          int       `db:"id"`
	StudentID   int       `db:"student_id"`
	SubjectID   int       `db:"subject_id"`
	SubjectCode string    `db:"subject_code"`
	SubjectName string    `db:"subject_name"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:          r.ID,
		StudentID:   r.StudentID,
		SubjectID:   r.SubjectID,
		SubjectCode: r.SubjectCode,
		SubjectName: r.SubjectName,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func selectEnrollments() sq.SelectBuilder {
	return psql.
		Select("e.id", "e.student_id", "e.subject_id", "sb.code AS subject_code", "sb.name AS subject_name", "e.created_at").
		From("enrollments e").
		Join("subjects sb ON sb.id = e.subject_id")
}

func (repo *enrollmentRepository) StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	b := psql.Select("COUNT(*) > 0").From("students").Where(sq.Eq{"id": studentID})
	if err := get(ctx, repo.db.getExec(exec), &exists, b); err != nil {
		return false, errors.Wrap(err, "checking student")
	}
	return exists, nil
}

func (repo *enrollmentRepository) MissingSubjects(ctx context.Context, subjectIDs []int, exec ...core.DBExecutor) ([]int, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	var found []int
	b := psql.Select("id").From("subjects").Where(sq.Eq{"id": subjectIDs})
	if err := selectAll(ctx, repo.db.getExec(exec), &found, b); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}

	known := make(map[int]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	var missing []int
	for _, id := range subjectIDs {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, subjectID int, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	var row enrollmentRow
	b := selectEnrollments().Where(sq.Eq{"e.student_id": studentID, "e.subject_id": subjectID})
	if err := get(ctx, repo.db.getExec(exec), &row, b); err != nil {
		if isNoRows(err) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "selecting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	id, err := insert(ctx, repo.db.getExec(exec), psql.Insert("enrollments").
		Columns("student_id", "subject_id", "created_at").
		Values(e.StudentID, e.SubjectID, e.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, core.NewConflictError("student is already enrolled in this subject")
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	e.ID = id
	return e, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := execute(ctx, repo.db.getExec(exec), psql.Delete("enrollments").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return mustAffect(res, enrollment.ErrNotFound)
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, studentID int) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	b := selectEnrollments().Where(sq.Eq{"e.student_id": studentID}).OrderBy("sb.name", "sb.id")
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toEnrollment())
	}
	return enrollments, nil
}
