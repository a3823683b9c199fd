package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/storage/database/dummy"
	"github.com/trezcool/alama/tests"
)

func TestService_CreateStudentAccounts(t *testing.T) {
	repo := dummydb.NewUserRepository(dummydb.Open())
	svc := user.NewService(repo)
	ctx := context.Background()
	conf := core.AccountsConfig{DefaultPassword: "123456", EmailDomain: "school.test"}

	taken := testutil.CreateUser(t, repo, "Taken", "s002", "", "pwd", nil, true, nil)

	created, err := svc.CreateStudentAccounts(ctx, []user.StudentAccount{
		{StudentID: 1, Code: " S001 ", Name: "Alice"},
		{StudentID: 2, Code: "S002", Name: "Bob"},
		{StudentID: 3, Code: "", Name: "No code"},
	}, conf)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	alice, err := svc.GetByUsernameOrEmail(ctx, "s001@school.test")
	require.NoError(t, err)
	assert.Equal(t, "s001", alice.Username)
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, []string{user.RoleStudent}, alice.Roles)
	assert.Equal(t, core.Int(1), alice.StudentID)
	assert.True(t, alice.IsActive)
	assert.True(t, alice.IsStudent())
	assert.NoError(t, alice.CheckPassword("123456"))

	bob, err := svc.GetByID(ctx, taken.ID)
	require.NoError(t, err)
	assert.Nil(t, bob.StudentID)

	// already provisioned
	created, err = svc.CreateStudentAccounts(ctx, []user.StudentAccount{{StudentID: 1, Code: "S001", Name: "Alice"}}, conf)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestService_ResetPassword(t *testing.T) {
	repo := dummydb.NewUserRepository(dummydb.Open())
	svc := user.NewService(repo)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Alice", "alice", "alice@test.cd", "old", nil, true, nil)

	assert.Equal(t, user.ErrNotFound, svc.ResetPassword(ctx, "bob", "new"))
	require.NoError(t, svc.ResetPassword(ctx, " ALICE@test.cd ", "new"))

	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("new"))
	assert.Error(t, got.CheckPassword("old"))
}

func TestService_DeleteStudentAccounts(t *testing.T) {
	repo := dummydb.NewUserRepository(dummydb.Open())
	svc := user.NewService(repo)
	ctx := context.Background()
	testutil.CreateUser(t, repo, "Alice", "s001", "", "pwd", []string{user.RoleStudent}, true, core.Int(1))
	bob := testutil.CreateUser(t, repo, "Bob", "s002", "", "pwd", []string{user.RoleStudent}, true, core.Int(2))

	require.NoError(t, svc.DeleteStudentAccounts(ctx, 1))
	users, err := svc.Query(ctx, user.QueryFilter{Roles: []string{user.RoleStudent}})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, bob.ID, users[0].ID)
}
