package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/student"
)

type (
	studentRow struct {
		ID        int         `db:"id"`
		Code      string      `db:"code"`
		Name      string      `db:"name"`
		BirthDate null.Time   `db:"birth_date"`
		Gender    string      `db:"gender"`
		ClassID   null.Int    `db:"class_id"`
		ClassName null.String `db:"class_name"`
		GPA       float64     `db:"gpa"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}

	classRow struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
	}
)

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		BirthDate: r.BirthDate.Ptr(),
		Gender:    r.Gender,
		ClassID:   r.ClassID.Ptr(),
		ClassName: r.ClassName.String,
		GPA:       r.GPA,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func selectStudents() sq.SelectBuilder {
	return psql.
		Select(
			"s.id", "s.code", "s.name", "s.birth_date", "s.gender", "s.class_id",
			"c.name AS class_name", "s.gpa", "s.created_at", "s.updated_at",
		).
		From("students s").
		LeftJoin("classes c ON c.id = s.class_id")
}

func (repo *studentRepository) getStudent(ctx context.Context, where sq.Sqlizer, exec ...core.DBExecutor) (student.Student, error) {
	var row studentRow
	if err := get(ctx, repo.db.getExec(exec), &row, selectStudents().Where(where)); err != nil {
		if isNoRows(err) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedStudents ...student.Student) error {
	b := psql.Select("COUNT(*)").From("students").Where(sq.Expr("LOWER(code) = LOWER(?)", code))
	if len(excludedStudents) > 0 {
		ids := make([]int, 0, len(excludedStudents))
		for _, s := range excludedStudents {
			ids = append(ids, s.ID)
		}
		b = b.Where(sq.NotEq{"id": ids})
	}

	var count int
	if err := get(ctx, repo.db, &count, b); err != nil {
		return errors.Wrap(err, "counting students by code")
	}
	if count > 0 {
		return student.ErrCodeExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	id, err := insert(ctx, repo.db.getExec(exec), psql.Insert("students").
		Columns("code", "name", "birth_date", "gender", "class_id", "gpa", "created_at", "updated_at").
		Values(s.Code, s.Name, null.TimeFromPtr(s.BirthDate), s.Gender, null.IntFromPtr(s.ClassID), s.GPA, s.CreatedAt, s.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, core.NewValidationError(student.ErrCodeExists, core.FieldError{Field: "code", Error: student.ErrCodeExists.Error()})
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.GetStudent(ctx, id, exec...)
}

func (repo *studentRepository) GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (student.Student, error) {
	return repo.getStudent(ctx, sq.Eq{"s.id": id}, exec...)
}

func (repo *studentRepository) GetStudentByCode(ctx context.Context, code string, exec ...core.DBExecutor) (student.Student, error) {
	return repo.getStudent(ctx, sq.Expr("LOWER(s.code) = LOWER(?)", code), exec...)
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	b := selectStudents().OrderBy("COALESCE(c.name, '')", "s.name", "s.id")
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		b = b.Where(sq.Or{sq.ILike{"s.name": pattern}, sq.ILike{"s.code": pattern}})
	}
	if filter.ClassID != 0 {
		b = b.Where(sq.Eq{"s.class_id": filter.ClassID})
	}

	var rows []studentRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	res, err := execute(ctx, repo.db, psql.Update("students").
		Set("code", s.Code).
		Set("name", s.Name).
		Set("birth_date", null.TimeFromPtr(s.BirthDate)).
		Set("gender", s.Gender).
		Set("class_id", null.IntFromPtr(s.ClassID)).
		Set("updated_at", s.UpdatedAt).
		Where(sq.Eq{"id": s.ID}))
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, core.NewValidationError(student.ErrCodeExists, core.FieldError{Field: "code", Error: student.ErrCodeExists.Error()})
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = mustAffect(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudent(ctx, s.ID)
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := execute(ctx, repo.db.getExec(exec), psql.Delete("students").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return mustAffect(res, student.ErrNotFound)
}

func (repo *studentRepository) CreateClass(ctx context.Context, c student.Class) (student.Class, error) {
	id, err := insert(ctx, repo.db, psql.Insert("classes").Columns("name").Values(c.Name))
	if err != nil {
		if isUniqueViolation(err) {
			return student.Class{}, core.NewValidationError(student.ErrClassExists, core.FieldError{Field: "name", Error: student.ErrClassExists.Error()})
		}
		return student.Class{}, errors.Wrap(err, "inserting class")
	}
	c.ID = id
	return c, nil
}

func (repo *studentRepository) getClass(ctx context.Context, where sq.Sqlizer, exec ...core.DBExecutor) (student.Class, error) {
	var row classRow
	if err := get(ctx, repo.db.getExec(exec), &row, psql.Select("id", "name").From("classes").Where(where)); err != nil {
		if isNoRows(err) {
			return student.Class{}, student.ErrClassNotFound
		}
		return student.Class{}, errors.Wrap(err, "selecting class")
	}
	return student.Class{ID: row.ID, Name: row.Name}, nil
}

func (repo *studentRepository) GetClass(ctx context.Context, id int) (student.Class, error) {
	return repo.getClass(ctx, sq.Eq{"id": id})
}

func (repo *studentRepository) GetClassByName(ctx context.Context, name string, exec ...core.DBExecutor) (student.Class, error) {
	return repo.getClass(ctx, sq.Eq{"name": name}, exec...)
}

func (repo *studentRepository) QueryClasses(ctx context.Context) ([]student.Class, error) {
	var rows []classRow
	if err := selectAll(ctx, repo.db, &rows, psql.Select("id", "name").From("classes").OrderBy("name")); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]student.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, student.Class{ID: row.ID, Name: row.Name})
	}
	return classes, nil
}
