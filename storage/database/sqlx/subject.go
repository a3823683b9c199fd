package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/subject"
)

type subjectRow struct {
	ID          int    `db:"id"`
	Code        string `db:"code"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

func (r subjectRow) toSubject() subject.Subject {
	return subject.Subject{ID: r.ID, Code: r.Code, Name: r.Name, Description: r.Description}
}

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db}
}

func selectSubjects() sq.SelectBuilder {
	return psql.Select("id", "code", "name", "description").From("subjects")
}

func (repo *subjectRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects ...subject.Subject) error {
	b := psql.Select("COUNT(*)").From("subjects").Where(sq.Expr("LOWER(code) = LOWER(?)", code))
	if len(excludedSubjects) > 0 {
		ids := make([]int, 0, len(excludedSubjects))
		for _, s := range excludedSubjects {
			ids = append(ids, s.ID)
		}
		b = b.Where(sq.NotEq{"id": ids})
	}

	var count int
	if err := get(ctx, repo.db, &count, b); err != nil {
		return errors.Wrap(err, "counting subjects by code")
	}
	if count > 0 {
		return subject.ErrCodeExists
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	id, err := insert(ctx, repo.db, psql.Insert("subjects").
		Columns("code", "name", "description").
		Values(s.Code, s.Name, s.Description))
	if err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, core.NewValidationError(subject.ErrCodeExists, core.FieldError{Field: "code", Error: subject.ErrCodeExists.Error()})
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	s.ID = id
	return s, nil
}

func (repo *subjectRepository) GetSubject(ctx context.Context, id int) (subject.Subject, error) {
	var row subjectRow
	if err := get(ctx, repo.db, &row, selectSubjects().Where(sq.Eq{"id": id})); err != nil {
		if isNoRows(err) {
			return subject.Subject{}, subject.ErrNotFound
		}
		return subject.Subject{}, errors.Wrap(err, "selecting subject")
	}
	return row.toSubject(), nil
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context, filter subject.QueryFilter) ([]subject.Subject, error) {
	b := selectSubjects().OrderBy("name", "id")
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		b = b.Where(sq.Or{sq.ILike{"name": pattern}, sq.ILike{"code": pattern}})
	}

	var rows []subjectRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.toSubject())
	}
	return subjects, nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	res, err := execute(ctx, repo.db, psql.Update("subjects").
		Set("code", s.Code).
		Set("name", s.Name).
		Set("description", s.Description).
		Where(sq.Eq{"id": s.ID}))
	if err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, core.NewValidationError(subject.ErrCodeExists, core.FieldError{Field: "code", Error: subject.ErrCodeExists.Error()})
		}
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if err = mustAffect(res, subject.ErrNotFound); err != nil {
		return subject.Subject{}, err
	}
	return s, nil
}

func (repo *subjectRepository) HasGrades(ctx context.Context, id int) (bool, error) {
	var exists bool
	b := psql.Select("COUNT(*) > 0").From("grades").Where(sq.Eq{"subject_id": id})
	if err := get(ctx, repo.db, &exists, b); err != nil {
		return false, errors.Wrap(err, "checking subject grades")
	}
	return exists, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id int) error {
	res, err := execute(ctx, repo.db, psql.Delete("subjects").Where(sq.Eq{"id": id}))
	if err != nil {
		if isForeignKeyViolation(err) {
			return subject.ErrHasGrades
		}
		return errors.Wrap(err, "deleting subject")
	}
	return mustAffect(res, subject.ErrNotFound)
}
