package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("grade")
	ErrNotEnrolled    = core.NewConflictError("student is not enrolled in this subject")
	ErrDuplicateGrade = core.NewConflictError("a grade already exists for this student and subject")
)

type (
	Repository interface {
		IsEnrolled(ctx context.Context, studentID, subjectID int, exec ...core.DBExecutor) (bool, error)
		// GetGrade matches on ID, or on the (StudentID, SubjectID) pair when ID is zero.
		GetGrade(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Grade, error)
		CreateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		UpdateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		DeleteGrade(ctx context.Context, id int, exec ...core.DBExecutor) error
		QueryComposites(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]float64, error)
		SetStudentGPA(ctx context.Context, studentID int, gpa float64, exec ...core.DBExecutor) error
		// QueryEntries lists enrolled pairs ordered by class name, student name then subject name.
		QueryEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	}

	Service struct {
		db   core.Transactor
		repo Repository
	}
)

func NewService(db core.Transactor, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// RecomputeGPA refreshes the stored GPA of a student from all their composites.
// Callers must run it in the same transaction as the grade write that triggered it.
func (svc *Service) RecomputeGPA(ctx context.Context, studentID int, exec ...core.DBExecutor) (float64, error) {
	composites, err := svc.repo.QueryComposites(ctx, studentID, exec...)
	if err != nil {
		return 0, errors.Wrap(err, "querying composites")
	}
	gpa := ComputeGPA(composites)
	if err = svc.repo.SetStudentGPA(ctx, studentID, gpa, exec...); err != nil {
		return 0, errors.Wrap(err, "setting student GPA")
	}
	return gpa, nil
}

// checkPair enforces the enrollment gate and the one-grade-per-pair rule.
func (svc *Service) checkPair(ctx context.Context, tx core.DBExecutor, studentID, subjectID, excludedID int) error {
	enrolled, err := svc.repo.IsEnrolled(ctx, studentID, subjectID, tx)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return ErrNotEnrolled
	}

	existing, err := svc.repo.GetGrade(ctx, GetFilter{StudentID: studentID, SubjectID: subjectID}, tx)
	switch {
	case err == nil:
		if existing.ID != excludedID {
			return ErrDuplicateGrade
		}
	case errors.Cause(err) != ErrNotFound:
		return errors.Wrap(err, "finding grade by pair")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ng NewGrade) (Grade, error) {
	var g Grade
	err := svc.db.InTx(ctx, func(tx core.DBExecutor) error {
		if err := svc.checkPair(ctx, tx, ng.StudentID, ng.SubjectID, 0); err != nil {
			return err
		}

		now := time.Now().UTC()
		created, err := svc.repo.CreateGrade(ctx, Grade{
			StudentID: ng.StudentID,
			SubjectID: ng.SubjectID,
			Midterm:   ng.Midterm,
			Final:     ng.Final,
			Composite: ComputeComposite(ng.Midterm, ng.Final),
			CreatedAt: now,
			UpdatedAt: now,
		}, tx)
		if err != nil {
			return errors.Wrap(err, "inserting grade")
		}
		if _, err = svc.RecomputeGPA(ctx, created.StudentID, tx); err != nil {
			return err
		}
		g = created
		return nil
	})
	return g, err
}

func (svc *Service) GetByID(ctx context.Context, id int) (Grade, error) {
	return svc.repo.GetGrade(ctx, GetFilter{ID: id})
}

func (svc *Service) Update(ctx context.Context, id int, ug UpdateGrade) (Grade, error) {
	var g Grade
	err := svc.db.InTx(ctx, func(tx core.DBExecutor) error {
		orig, err := svc.repo.GetGrade(ctx, GetFilter{ID: id}, tx)
		if err != nil {
			return err
		}

		upd := orig
		if ug.StudentID != 0 {
			upd.StudentID = ug.StudentID
		}
		if ug.SubjectID != 0 {
			upd.SubjectID = ug.SubjectID
		}
		if upd.StudentID != orig.StudentID || upd.SubjectID != orig.SubjectID {
			if err = svc.checkPair(ctx, tx, upd.StudentID, upd.SubjectID, orig.ID); err != nil {
				return err
			}
		}
		upd.Midterm = ug.Midterm
		upd.Final = ug.Final
		upd.Composite = ComputeComposite(ug.Midterm, ug.Final)
		upd.UpdatedAt = time.Now().UTC()

		if upd, err = svc.repo.UpdateGrade(ctx, upd, tx); err != nil {
			return errors.Wrap(err, "updating grade")
		}
		if _, err = svc.RecomputeGPA(ctx, upd.StudentID, tx); err != nil {
			return err
		}
		if orig.StudentID != upd.StudentID {
			if _, err = svc.RecomputeGPA(ctx, orig.StudentID, tx); err != nil {
				return err
			}
		}
		g = upd
		return nil
	})
	return g, err
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.db.InTx(ctx, func(tx core.DBExecutor) error {
		g, err := svc.repo.GetGrade(ctx, GetFilter{ID: id}, tx)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteGrade(ctx, g.ID, tx); err != nil {
			return errors.Wrap(err, "deleting grade")
		}
		_, err = svc.RecomputeGPA(ctx, g.StudentID, tx)
		return err
	})
}

// DeletePairGrade removes the grade of a (student, subject) pair if there is one.
// It does not recompute the GPA; callers batch that themselves.
func (svc *Service) DeletePairGrade(ctx context.Context, studentID, subjectID int, exec ...core.DBExecutor) (bool, error) {
	g, err := svc.repo.GetGrade(ctx, GetFilter{StudentID: studentID, SubjectID: subjectID}, exec...)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding grade by pair")
	}
	if err = svc.repo.DeleteGrade(ctx, g.ID, exec...); err != nil {
		return false, errors.Wrap(err, "deleting grade")
	}
	return true, nil
}

// QueryEntries returns the roster: every enrolled pair with its Graded or Ungraded mark.
func (svc *Service) QueryEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}

// StudentEntries is the grade sheet of a single student.
func (svc *Service) StudentEntries(ctx context.Context, studentID int) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, EntryFilter{StudentID: studentID})
}
