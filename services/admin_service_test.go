package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhsfuk/dharmic-games/models"
)

func submit(t *testing.T, env *testEnv, email string) *models.AdminRequest {
	t.Helper()
	req, err := env.admin.SubmitRequest(context.Background(), SubmitAdminRequestInput{
		Email: email, Name: "Asha Patel", Password: "a-long-password", RequestedRole: models.RoleAdmin,
		Reason: "Running the Leeds fixtures",
	})
	require.NoError(t, err)
	return req
}

func TestAdminService_SubmitRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := submit(t, env, " Asha@Example.org ")
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "asha@example.org", req.Email)
	assert.Equal(t, models.AdminRequestPending, req.Status)
	assert.Empty(t, req.PasswordHash)

	stored, err := env.requestRepo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "a-long-password", stored.PasswordHash)

	_, err = env.admin.SubmitRequest(ctx, SubmitAdminRequestInput{
		Email: "asha@example.org", Name: "Asha", Password: "another-password", RequestedRole: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrAdminRequestDuplicate)

	_, err = env.admin.SubmitRequest(ctx, SubmitAdminRequestInput{
		Email: "dev@example.org", Name: "Dev", Password: "a-long-password", RequestedRole: models.RoleSuperAdmin,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "requested_role")

	_, err = env.admin.SubmitRequest(ctx, SubmitAdminRequestInput{
		Email: "dev@example.org", Name: "Dev", Password: "a-long-password", RequestedRole: models.RoleUniversityAdmin,
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "university_id")
}

func TestAdminService_ApproveCreatesAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, env, "asha@example.org")

	account, err := env.admin.ApproveRequest(ctx, req.ID, "reviewer-1", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.org", account.Email)
	assert.Equal(t, models.RoleAdmin, account.Role)
	assert.Empty(t, account.PasswordHash)

	logged, err := env.admin.Authenticate(ctx, "ASHA@example.org", "a-long-password")
	require.NoError(t, err)
	assert.Equal(t, account.ID, logged.ID)

	_, err = env.admin.Authenticate(ctx, "asha@example.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.admin.Authenticate(ctx, "nobody@example.org", "a-long-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	approved := models.AdminRequestApproved
	list, err := env.admin.ListRequests(ctx, &approved)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "reviewer-1", list[0].ReviewedBy)
	assert.NotNil(t, list[0].ReviewedAt)
	assert.Empty(t, list[0].PasswordHash)

	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, models.AdminRequestApproved, env.mailer.sent[0].Status)

	_, err = env.admin.ApproveRequest(ctx, req.ID, "reviewer-1", "")
	assert.ErrorIs(t, err, ErrAdminRequestDecided)
	_, err = env.admin.RejectRequest(ctx, req.ID, "reviewer-1", "")
	assert.ErrorIs(t, err, ErrAdminRequestDecided)

	_, err = env.admin.SubmitRequest(ctx, SubmitAdminRequestInput{
		Email: "asha@example.org", Name: "Asha", Password: "a-long-password", RequestedRole: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrAdminEmailConflict)
}

func TestAdminService_Reject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, env, "dev@example.org")

	rejected, err := env.admin.RejectRequest(ctx, req.ID, "reviewer-1", "not an organiser")
	require.NoError(t, err)
	assert.Equal(t, models.AdminRequestRejected, rejected.Status)
	assert.Equal(t, "not an organiser", rejected.ReviewNote)

	_, err = env.admin.Authenticate(ctx, "dev@example.org", "a-long-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.admin.RejectRequest(ctx, "missing", "reviewer-1", "")
	assert.ErrorIs(t, err, ErrAdminRequestNotFound)

	pending := models.AdminRequestPending
	list, err := env.admin.ListRequests(ctx, &pending)
	require.NoError(t, err)
	assert.Empty(t, list)

	body, err := RenderAdminDecision(env.mailer.sent[0])
	require.NoError(t, err)
	assert.Contains(t, body, "was not approved")
	assert.Contains(t, body, "not an organiser")
}

func TestAdminService_AccountGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.admin.BootstrapSuperAdmin(ctx, "root@example.org", "super-secret")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = env.admin.BootstrapSuperAdmin(ctx, "root@example.org", "super-secret")
	require.NoError(t, err)
	assert.False(t, created)

	root, err := env.admin.Authenticate(ctx, "root@example.org", "super-secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, root.Role)

	assert.ErrorIs(t, env.admin.DeleteAccount(ctx, root.ID, root.ID), ErrCannotDeleteSelf)

	leeds := env.university(t, "Leeds", "North", "Football")
	uniAdmin, err := env.admin.CreateAccount(ctx, CreateAdminAccountInput{
		Email: "leeds@example.org", Name: "Leeds Admin", Password: "password-123",
		Role: models.RoleUniversityAdmin, UniversityID: leeds.ID,
	})
	require.NoError(t, err)

	_, err = env.admin.CreateAccount(ctx, CreateAdminAccountInput{
		Email: "LEEDS@example.org", Name: "Dupe", Password: "password-123", Role: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrAdminEmailConflict)

	role, err := env.admin.ResolveRole(ctx, uniAdmin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUniversityAdmin, role.Role)
	assert.Equal(t, leeds.ID, role.UniversityID)

	// The only super admin cannot be demoted or removed by someone else.
	demote := models.RoleAdmin
	_, err = env.admin.UpdateAccount(ctx, uniAdmin.ID, root.ID, UpdateAdminAccountInput{Role: &demote})
	assert.ErrorIs(t, err, ErrLastSuperAdmin)
	assert.ErrorIs(t, env.admin.DeleteAccount(ctx, uniAdmin.ID, root.ID), ErrLastSuperAdmin)

	promote := models.RoleSuperAdmin
	promoted, err := env.admin.UpdateAccount(ctx, root.ID, uniAdmin.ID, UpdateAdminAccountInput{Role: &promote})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, promoted.Role)
	assert.NoError(t, env.admin.DeleteAccount(ctx, uniAdmin.ID, root.ID))

	accounts, err := env.admin.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "leeds@example.org", accounts[0].Email)
	assert.Empty(t, accounts[0].PasswordHash)

	_, err = env.admin.ResolveRole(ctx, root.ID)
	assert.ErrorIs(t, err, ErrAdminNotFound)
}
