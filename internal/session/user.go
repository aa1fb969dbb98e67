// Package session keeps the signed-in mock user and the last active view.
package session

import (
	"fmt"
	"strings"
)

// AppName is the product name shown on every surface.
const AppName = "PaySmallSmall"

// Role is a user's access level.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
	RoleStaff    Role = "STAFF"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleCustomer, RoleAdmin, RoleStaff:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is a signed-in account.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      Role   `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// FirstName is the first word of Name.
func (u User) FirstName() string {
	first, _, _ := strings.Cut(u.Name, " ")
	return first
}

// IsAdmin reports whether u may administer the catalog.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// MockCustomer is the account every customer sign-in resolves to.
func MockCustomer() User {
	return User{
		ID:        "user_001",
		Name:      "John Doe",
		Email:     "john@example.com",
		Phone:     "+234 801 234 5678",
		Role:      RoleCustomer,
		AvatarURL: "https://i.pravatar.cc/150?u=john",
	}
}

// MockAdmin is the account behind admin access.
func MockAdmin() User {
	return User{
		ID:        "admin_001",
		Name:      "Dare Adu",
		Email:     "admin@foodthrift.com",
		Phone:     "+234 800 000 0000",
		Role:      RoleAdmin,
		AvatarURL: "https://i.pravatar.cc/150?u=admin",
	}
}

// View is a top-level screen.
type View string

const (
	ViewCustomerDashboard View = "CUSTOMER_DASHBOARD"
	ViewAdminDashboard    View = "ADMIN_DASHBOARD"
	ViewPlanDetails       View = "PLAN_DETAILS"
	ViewSystemDesign      View = "SYSTEM_DESIGN"
	ViewAuth              View = "AUTH"
	ViewExportData        View = "EXPORT_DATA"
	ViewProfile           View = "PROFILE"
)

// Views lists every view.
func Views() []View {
	return []View{
		ViewCustomerDashboard,
		ViewAdminDashboard,
		ViewPlanDetails,
		ViewSystemDesign,
		ViewAuth,
		ViewExportData,
		ViewProfile,
	}
}

// ParseView accepts a view name in any case.
func ParseView(s string) (View, error) {
	v := View(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Views() {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// HomeView is where a user of role lands after signing in.
func HomeView(role Role) View {
	if role == RoleAdmin {
		return ViewAdminDashboard
	}
	return ViewCustomerDashboard
}
