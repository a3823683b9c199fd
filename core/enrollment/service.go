package enrollment

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment")
	ErrStudentNotFound = core.NewNotFoundError("student")
)

type Enrollment struct {
	ID          int       `json:"id"`
	StudentID   int       `json:"student_id"`
	SubjectID   int       `json:"subject_id"`
	SubjectCode string    `json:"subject_code"`
	SubjectName string    `json:"subject_name"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// EnrollRequest is the payload used to register a student for subjects.
type EnrollRequest struct {
	SubjectIDs []int `json:"subject_ids" validate:"required,min=1,dive,gt=0"`
}

// UnenrollResult reports the outcome of a batch unenroll.
type UnenrollResult struct {
	Removed  []int `json:"removed"`
	NotFound []int `json:"not_found"`
}

type (
	Repository interface {
		StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error)
		// MissingSubjects returns the ids among subjectIDs that match no subject.
		MissingSubjects(ctx context.Context, subjectIDs []int, exec ...core.DBExecutor) ([]int, error)
		GetEnrollment(ctx context.Context, studentID, subjectID int, exec ...core.DBExecutor) (Enrollment, error)
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error
		QueryEnrollments(ctx context.Context, studentID int) ([]Enrollment, error)
	}

	// Grader keeps grades and GPAs consistent when an enrollment goes away.
	Grader interface {
		DeletePairGrade(ctx context.Context, studentID, subjectID int, exec ...core.DBExecutor) (bool, error)
		RecomputeGPA(ctx context.Context, studentID int, exec ...core.DBExecutor) (float64, error)
	}

	Service struct {
		db     core.Transactor
		repo   Repository
		grader Grader
	}
)

func NewService(db core.Transactor, repo Repository, grader Grader) *Service {
	return &Service{db: db, repo: repo, grader: grader}
}

// Enroll registers a student for every subject not already registered and returns how many were created.
func (svc *Service) Enroll(ctx context.Context, studentID int, subjectIDs []int) (int, error) {
	ids := uniqueIDs(subjectIDs)
	var created int
	err := svc.db.InTx(ctx, func(tx core.DBExecutor) error {
		exists, err := svc.repo.StudentExists(ctx, studentID, tx)
		if err != nil {
			return errors.Wrap(err, "checking student")
		}
		if !exists {
			return ErrStudentNotFound
		}

		missing, err := svc.repo.MissingSubjects(ctx, ids, tx)
		if err != nil {
			return errors.Wrap(err, "checking subjects")
		}
		if len(missing) > 0 {
			return core.NewValidationError(nil, core.FieldError{
				Field: "subject_ids",
				Error: "unknown subject ids: " + joinIDs(missing),
			})
		}

		now := time.Now().UTC()
		for _, subjectID := range ids {
			_, err = svc.repo.GetEnrollment(ctx, studentID, subjectID, tx)
			if err == nil {
				continue // already registered
			}
			if errors.Cause(err) != ErrNotFound {
				return errors.Wrap(err, "finding enrollment")
			}
			if _, err = svc.repo.CreateEnrollment(ctx, Enrollment{StudentID: studentID, SubjectID: subjectID, CreatedAt: now}, tx); err != nil {
				return errors.Wrap(err, "inserting enrollment")
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// Unenroll removes a registration and its grade, then recomputes the student's GPA.
// An absent pair yields ErrNotFound.
func (svc *Service) Unenroll(ctx context.Context, studentID, subjectID int) error {
	return svc.db.InTx(ctx, func(tx core.DBExecutor) error {
		return svc.unenroll(ctx, tx, studentID, subjectID)
	})
}

func (svc *Service) unenroll(ctx context.Context, tx core.DBExecutor, studentID, subjectID int) error {
	e, err := svc.repo.GetEnrollment(ctx, studentID, subjectID, tx)
	if err != nil {
		return err
	}
	if _, err = svc.grader.DeletePairGrade(ctx, studentID, subjectID, tx); err != nil {
		return err
	}
	if err = svc.repo.DeleteEnrollment(ctx, e.ID, tx); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	_, err = svc.grader.RecomputeGPA(ctx, studentID, tx)
	return err
}

// UnenrollMany unenrolls a batch of subjects. Pairs that are not registered are reported, not fatal.
func (svc *Service) UnenrollMany(ctx context.Context, studentID int, subjectIDs []int) (UnenrollResult, error) {
	res := UnenrollResult{Removed: []int{}, NotFound: []int{}}
	err := svc.db.InTx(ctx, func(tx core.DBExecutor) error {
		for _, subjectID := range uniqueIDs(subjectIDs) {
			err := svc.unenroll(ctx, tx, studentID, subjectID)
			switch {
			case err == nil:
				res.Removed = append(res.Removed, subjectID)
			case errors.Cause(err) == ErrNotFound:
				res.NotFound = append(res.NotFound, subjectID)
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return UnenrollResult{}, err
	}
	return res, nil
}

func (svc *Service) Query(ctx context.Context, studentID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, studentID)
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func joinIDs(ids []int) string {
	var s string
	for i, id := range ids {
		if i > 0 {
			s += ", "
		}
		s += strconv.Itoa(id)
	}
	return s
}
