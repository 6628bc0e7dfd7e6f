package handlers

import (
	"strings"

	"github.com/geocoder89/givehub/internal/domain/role"
)

type NavLink struct {
	Name   string
	Href   string
	Active bool
}

var sidebar = []struct {
	name  string
	href  string
	roles role.Set
}{
	{"Dashboard", "/dashboard", role.NewSet(role.User, role.Volunteer, role.Admin)},
	{"My Profile", "/profile", role.NewSet(role.User, role.Volunteer, role.Admin)},
	{"Donate", "/donate", role.NewSet(role.User, role.Admin)},
	{"Admin Panel", "/admin", role.NewSet(role.Admin)},
	{"Manage Events", "/admin/events", role.NewSet(role.Admin)},
	{"Reports", "/admin/reports", role.NewSet(role.Admin)},
	{"Reconciliations", "/admin/reconciliations", role.NewSet(role.Admin)},
	{"Volunteer Portal", "/volunteer", role.NewSet(role.Volunteer)},
	{"My Events", "/volunteer/events", role.NewSet(role.Volunteer)},
}

// SidebarLinks returns the links r may see, marking the one for path.
func SidebarLinks(r role.Role, path string) []NavLink {
	out := make([]NavLink, 0, len(sidebar))
	for _, l := range sidebar {
		if !l.roles.Has(r) {
			continue
		}
		out = append(out, NavLink{
			Name:   l.name,
			Href:   l.href,
			Active: path == l.href || (l.href != "/admin" && strings.HasPrefix(path, l.href+"/")),
		})
	}
	return out
}
