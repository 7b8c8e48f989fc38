package domain

import "strings"

// SuperAdminSet is the configured, immutable set of super-admin emails.
// Membership is case-insensitive.
type SuperAdminSet struct {
	members map[string]struct{}
	ordered []string
}

// NewSuperAdminSet builds a set from the given emails, ignoring blanks and duplicates.
func NewSuperAdminSet(emails ...string) SuperAdminSet {
	s := SuperAdminSet{members: make(map[string]struct{}, len(emails))}
	for _, email := range emails {
		normalized := NormalizeEmail(email)
		if normalized == "" {
			continue
		}
		if _, ok := s.members[normalized]; ok {
			continue
		}
		s.members[normalized] = struct{}{}
		s.ordered = append(s.ordered, normalized)
	}
	return s
}

// Contains reports whether email belongs to the set.
func (s SuperAdminSet) Contains(email string) bool {
	if email == "" || len(s.members) == 0 {
		return false
	}
	_, ok := s.members[NormalizeEmail(email)]
	return ok
}

// Emails returns the members in configuration order.
func (s SuperAdminSet) Emails() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Len returns the number of members.
func (s SuperAdminSet) Len() int {
	return len(s.ordered)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
