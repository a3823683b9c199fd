package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	StudentID    null.Int       `db:"student_id"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) toUser() user.User {
	var lastLogin *time.Time
	if r.LastLogin.Valid {
		t := r.LastLogin.Time.UTC()
		lastLogin = &t
	}
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		StudentID:    r.StudentID.Ptr(),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    lastLogin,
	}
}

// optString stores empty strings as NULL so unique columns accept several blanks.
func optString(s string) null.String {
	return null.NewString(s, s != "")
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func selectUsers() sq.SelectBuilder {
	return psql.
		Select(
			"id", "name", "username", "email", "is_active", "roles", "student_id",
			"password_hash", "created_at", "updated_at", "last_login",
		).
		From("users")
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var excluded []string
	for _, u := range excludedUsers {
		excluded = append(excluded, u.ID)
	}

	check := func(column, value string, taken error) error {
		if value == "" {
			return nil
		}
		b := psql.Select("COUNT(*)").From("users").Where(sq.Eq{column: value})
		if len(excluded) > 0 {
			b = b.Where(sq.NotEq{"id": excluded})
		}
		var count int
		if err := get(ctx, repo.db, &count, b); err != nil {
			return errors.Wrapf(err, "counting users by %s", column)
		}
		if count > 0 {
			return taken
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := execute(ctx, repo.db, psql.Insert("users").
		Columns(
			"id", "name", "username", "email", "is_active", "roles", "student_id",
			"password_hash", "created_at", "updated_at", "last_login",
		).
		Values(
			usr.ID, usr.Name, optString(usr.Username), optString(usr.Email), usr.IsActive,
			pq.StringArray(usr.Roles), null.IntFromPtr(usr.StudentID),
			usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, null.TimeFromPtr(usr.LastLogin),
		))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, core.NewConflictError("a user with this username or email already exists")
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := selectUsers()
	if filter.ID != "" {
		b = b.Where(sq.Eq{"id": filter.ID})
	} else {
		var values []string
		for _, v := range filter.UsernameOrEmail {
			if v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return user.User{}, user.ErrNotFound
		}
		b = b.Where(sq.Or{sq.Eq{"username": values}, sq.Eq{"email": values}}).OrderBy("created_at").Limit(1)
	}

	var row userRow
	if err := get(ctx, repo.db, &row, b); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	b := selectUsers().OrderBy("name", "id")
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		b = b.Where(sq.Or{sq.ILike{"name": pattern}, sq.ILike{"username": pattern}, sq.ILike{"email": pattern}})
	}
	if len(filter.Roles) > 0 {
		b = b.Where(sq.Expr("roles && ?", pq.StringArray(filter.Roles)))
	}

	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := execute(ctx, repo.db, psql.Update("users").
		Set("name", usr.Name).
		Set("username", optString(usr.Username)).
		Set("email", optString(usr.Email)).
		Set("is_active", usr.IsActive).
		Set("roles", pq.StringArray(usr.Roles)).
		Set("student_id", null.IntFromPtr(usr.StudentID)).
		Set("password_hash", usr.PasswordHash).
		Set("updated_at", usr.UpdatedAt).
		Set("last_login", null.TimeFromPtr(usr.LastLogin)).
		Where(sq.Eq{"id": usr.ID}))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, core.NewConflictError("a user with this username or email already exists")
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = mustAffect(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := execute(ctx, repo.db, psql.Delete("users").Where(sq.Eq{"id": ids})); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func (repo *userRepository) DeleteStudentUsers(ctx context.Context, studentID int, exec ...core.DBExecutor) error {
	if _, err := execute(ctx, repo.db.getExec(exec), psql.Delete("users").Where(sq.Eq{"student_id": studentID})); err != nil {
		return errors.Wrap(err, "deleting student users")
	}
	return nil
}
