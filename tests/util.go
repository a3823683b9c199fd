package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/enrollment"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage/database"
)

// NewLogger returns a logger that discards everything unless ALAMA_TEST_LOGS is set.
func NewLogger() core.Logger {
	var out io.Writer = io.Discard
	if os.Getenv("ALAMA_TEST_LOGS") != "" {
		out = os.Stderr
	}
	return logsvc.NewRollbarLogger(log.New(out, "TEST : ", log.LstdFlags|log.Lshortfile), core.NewTestConfig())
}

// PrepareDB opens a migrated, empty postgres database.
// Tests calling it are skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()

	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST is not set")
	}
	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Engine:        "postgres",
		Host:          host,
		Port:          getenv("TEST_DATABASE_PORT", "5432"),
		Name:          getenv("TEST_DATABASE_NAME", "alama_test"),
		User:          getenv("TEST_DATABASE_USER", "alama_test"),
		Password:      getenv("TEST_DATABASE_PASSWORD", "alama_test"),
		AdminUser:     getenv("TEST_DATABASE_ADMIN_USER", "postgres"),
		AdminPassword: os.Getenv("TEST_DATABASE_ADMIN_PASSWORD"),
		DisableTLS:    true,
	}

	require.NoError(t, database.CreateIfNotExist(conf))
	db, err := database.Connect(conf)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })

	ResetDB(t, db)
	return db
}

// ResetDB empties every table.
func ResetDB(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec("TRUNCATE users, grades, enrollments, students, subjects, classes RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Fixtures

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	studentID *int,
) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		StudentID: studentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd), "SetPassword()")
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err, "CreateUser()")
	return usr
}

func CreateClass(t *testing.T, repo student.Repository, name string) student.Class {
	t.Helper()
	c, err := repo.CreateClass(context.Background(), student.Class{Name: name})
	require.NoError(t, err, "CreateClass()")
	return c
}

func CreateStudent(t *testing.T, repo student.Repository, code, name string, classID *int) student.Student {
	t.Helper()
	now := time.Now().UTC()
	s, err := repo.CreateStudent(context.Background(), student.Student{
		Code:      code,
		Name:      name,
		ClassID:   classID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err, "CreateStudent()")
	s, err = repo.GetStudent(context.Background(), s.ID)
	require.NoError(t, err, "GetStudent()")
	return s
}

func CreateSubject(t *testing.T, repo subject.Repository, code, name string) subject.Subject {
	t.Helper()
	s, err := repo.CreateSubject(context.Background(), subject.Subject{Code: code, Name: name})
	require.NoError(t, err, "CreateSubject()")
	return s
}

func Enroll(t *testing.T, repo enrollment.Repository, studentID int, subjectIDs ...int) {
	t.Helper()
	for _, subjectID := range subjectIDs {
		_, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
			StudentID: studentID,
			SubjectID: subjectID,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err, "CreateEnrollment()")
	}
}

// CreateGrade stores a grade with its composite; it neither checks enrollment nor refreshes the GPA.
func CreateGrade(t *testing.T, repo grade.Repository, studentID, subjectID int, midterm, final *float64) grade.Grade {
	t.Helper()
	now := time.Now().UTC()
	g, err := repo.CreateGrade(context.Background(), grade.Grade{
		StudentID: studentID,
		SubjectID: subjectID,
		Midterm:   midterm,
		Final:     final,
		Composite: grade.ComputeComposite(midterm, final),
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err, "CreateGrade()")
	return g
}
