// Package rbac resolves roles to permissions. Everything here is pure and
// deterministic: the table is the single source of truth and nothing is cached.
package rbac

import (
	"slices"

	domainauth "github.com/target/medsurge/internal/domain/auth"
)

const (
	PermViewDashboard     domainauth.Permission = "view_dashboard"
	PermManageStaff       domainauth.Permission = "manage_staff"
	PermViewAnalytics     domainauth.Permission = "view_analytics"
	PermManageBeds        domainauth.Permission = "manage_beds"
	PermViewReports       domainauth.Permission = "view_reports"
	PermViewPatients      domainauth.Permission = "view_patients"
	PermManageSchedule    domainauth.Permission = "manage_schedule"
	PermViewForecasts     domainauth.Permission = "view_forecasts"
	PermCommunicate       domainauth.Permission = "communicate"
	PermManageCareTasks   domainauth.Permission = "manage_care_tasks"
	PermViewWardStatus    domainauth.Permission = "view_ward_status"
	PermViewStock         domainauth.Permission = "view_stock"
	PermManageOrders      domainauth.Permission = "manage_orders"
	PermManageSuppliers   domainauth.Permission = "manage_suppliers"
	PermViewAlerts        domainauth.Permission = "view_alerts"
	PermTrackAmbulance    domainauth.Permission = "track_ambulance"
	PermCoordinate        domainauth.Permission = "coordinate_response"
	PermInterHospitalComm domainauth.Permission = "inter_hospital_comm"
	PermViewHealthAdvice  domainauth.Permission = "view_health_advisory"
	PermBookAppointments  domainauth.Permission = "book_appointments"
	PermLocateHospitals   domainauth.Permission = "locate_hospitals"
)

// roleMatrix lists each role's permissions in display order.
var roleMatrix = map[domainauth.Role][]domainauth.Permission{
	domainauth.RoleManagement: {
		PermViewDashboard,
		PermManageStaff,
		PermViewAnalytics,
		PermManageBeds,
		PermViewReports,
	},
	domainauth.RoleDoctor: {
		PermViewPatients,
		PermManageSchedule,
		PermViewForecasts,
		PermCommunicate,
	},
	domainauth.RoleNurse: {
		PermViewPatients,
		PermManageCareTasks,
		PermViewWardStatus,
		PermManageSchedule,
	},
	domainauth.RoleInventory: {
		PermViewStock,
		PermManageOrders,
		PermViewForecasts,
		PermManageSuppliers,
	},
	domainauth.RoleEmergency: {
		PermViewAlerts,
		PermTrackAmbulance,
		PermCoordinate,
		PermInterHospitalComm,
	},
	domainauth.RolePatient: {
		PermViewHealthAdvice,
		PermBookAppointments,
		PermViewReports,
		PermLocateHospitals,
	},
}

// PermissionsFor returns the ordered, de-duplicated permissions of role.
// Unknown or empty roles get an empty set (fail closed). The returned slice
// is a fresh copy.
func PermissionsFor(role domainauth.Role) []domainauth.Permission {
	perms := roleMatrix[role]
	out := make([]domainauth.Permission, 0, len(perms))
	for _, p := range perms {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// HasPermission reports whether role grants permission.
func HasPermission(role domainauth.Role, permission domainauth.Permission) bool {
	if permission == "" {
		return false
	}
	return slices.Contains(roleMatrix[role], permission)
}

// SwitchRole returns the role to use as the active permission lens.
// The switch only happens when the user holds target, as the primary role or
// through user.Roles; otherwise current is returned unchanged.
func SwitchRole(user *domainauth.User, current, target domainauth.Role) domainauth.Role {
	if user == nil || !target.Valid() {
		return current
	}
	if user.HasRole(target) {
		return target
	}
	return current
}

// RolesWith returns every role granting permission, in canonical role order.
func RolesWith(permission domainauth.Permission) []domainauth.Role {
	var out []domainauth.Role
	for _, r := range domainauth.AllRoles() {
		if HasPermission(r, permission) {
			out = append(out, r)
		}
	}
	return out
}
