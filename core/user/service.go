package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND on the filter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...string) error
		DeleteStudentUsers(ctx context.Context, studentID int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		StudentID: nu.StudentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{uname, uname}})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.LastLogin = &now
	return svc.repo.UpdateUser(ctx, usr)
}

// ResetPassword sets a new password on the user matching uname (username or email).
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// AddUser updates or creates an active user, optionally granting the admin role.
func (svc *Service) AddUser(ctx context.Context, uname, email, pwd string, isAdmin bool) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{uname, email}})
	exists := err == nil
	if err != nil {
		if pkgerrors.Cause(err) != ErrNotFound {
			return User{}, err
		}
		usr = User{
			ID:        uuid.New().String(),
			Name:      uname,
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if isAdmin {
		usr.Roles = []string{RoleAdmin}
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	if exists {
		return svc.repo.UpdateUser(ctx, usr)
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}

// DeleteStudentAccounts removes every account linked to a student.
func (svc *Service) DeleteStudentAccounts(ctx context.Context, studentID int, exec ...core.DBExecutor) error {
	return svc.repo.DeleteStudentUsers(ctx, studentID, exec...)
}

// CreateStudentAccounts gives each student a login named after their code.
// Students whose code or derived email is already taken are skipped. Returns how many accounts were created.
func (svc *Service) CreateStudentAccounts(ctx context.Context, accts []StudentAccount, conf core.AccountsConfig) (int, error) {
	var created int
	for _, acct := range accts {
		uname := core.CleanString(acct.Code, true /* lower */)
		if uname == "" {
			continue
		}
		email := uname + "@" + conf.EmailDomain
		_, err := svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{uname, email}})
		if err == nil {
			continue
		}
		if pkgerrors.Cause(err) != ErrNotFound {
			return created, pkgerrors.Wrap(err, "finding user by username")
		}

		now := time.Now().UTC()
		usr := User{
			ID:        uuid.New().String(),
			Name:      acct.Name,
			Username:  uname,
			Email:     email,
			IsActive:  true,
			Roles:     []string{RoleStudent},
			StudentID: core.Int(acct.StudentID),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(conf.DefaultPassword); err != nil {
			return created, err
		}
		if _, err = svc.repo.CreateUser(ctx, usr); err != nil {
			return created, pkgerrors.Wrap(err, "inserting student account")
		}
		created++
	}
	return created, nil
}
