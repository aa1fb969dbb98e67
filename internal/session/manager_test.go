package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodthrift/paysmallsmall/internal/storage"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

func newManager() *Manager {
	return NewManager(storage.NewMemoryStore(), observability.DiscardLogger())
}

func TestManager_LoginCustomer(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	user, err := m.Login(ctx, RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "user_001", user.ID)
	assert.Equal(t, "John", user.FirstName())
	assert.False(t, user.IsAdmin())

	current, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, current)

	view, err := m.ActiveView(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewCustomerDashboard, view)
}

func TestManager_LoginAdmin(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	user, err := m.Login(ctx, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin_001", user.ID)
	assert.True(t, user.IsAdmin())

	view, err := m.ActiveView(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewAdminDashboard, view)
}

func TestManager_LoginStaffUnavailable(t *testing.T) {
	_, err := newManager().Login(context.Background(), RoleStaff)
	assert.ErrorIs(t, err, ErrRoleUnavailable)
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	_, err := m.Login(ctx, RoleCustomer)
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))

	_, err = m.Current(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	view, err := m.ActiveView(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewAuth, view)
}

func TestManager_ActiveView(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	view, err := m.ActiveView(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewAuth, view, "default before anything is saved")

	require.NoError(t, m.SetActiveView(ctx, ViewExportData))
	view, err = m.ActiveView(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewExportData, view)

	assert.Error(t, m.SetActiveView(ctx, "SETTINGS"))
}

func TestParseRoleAndView(t *testing.T) {
	r, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)
	_, err = ParseRole("root")
	assert.Error(t, err)

	v, err := ParseView("profile")
	require.NoError(t, err)
	assert.Equal(t, ViewProfile, v)
	assert.Len(t, Views(), 7)
}
