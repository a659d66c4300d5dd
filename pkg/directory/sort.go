package directory

import (
	"cmp"
	"slices"
)

// SortGroups orders groups by name, keeping input order for equal names.
func SortGroups(groups []GroupSummary) {
	for i := range groups {
		if groups[i].Name == "" {
			groups[i].Name = UnnamedGroup
		}
	}
	slices.SortStableFunc(groups, func(a, b GroupSummary) int {
		return cmp.Compare(a.Name, b.Name)
	})
}

// SortMembers places admins (owner included) first, then orders by name,
// using the phone number when the name is empty.
func SortMembers(members []Member) {
	slices.SortStableFunc(members, func(a, b Member) int {
		aAdmin := a.IsAdmin || a.IsSuperAdmin
		bAdmin := b.IsAdmin || b.IsSuperAdmin
		if aAdmin != bAdmin {
			if aAdmin {
				return -1
			}
			return 1
		}
		return cmp.Compare(memberSortKey(a), memberSortKey(b))
	})
}

func memberSortKey(m Member) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Phone
}
