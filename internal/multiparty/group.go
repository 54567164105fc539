package multiparty

import (
	"regexp"
	"strconv"
	"strings"
)

// ExplicitGroup is one entry under spec.datasites.groups: a name plus its
// raw include tokens (spec §4.4 "Group resolution").
type ExplicitGroup struct {
	Name    string
	Include []string
}

var trailingDigits = regexp.MustCompile(`^(.*?)(\d+)$`)
var positionalToken = regexp.MustCompile(`^\{datasites\[(\*|\d+)\]\}$`)

// ResolveGroups builds the group-name → email-list mapping used to resolve
// a step's `targets` and a barrier's `barrier_wait_for` targets.
func ResolveGroups(participants []Participant, explicit []ExplicitGroup) map[string][]string {
	groups := map[string][]string{}

	allEmails := make([]string, 0, len(participants))
	for _, p := range participants {
		allEmails = append(allEmails, p.Email)
	}
	groups["all"] = allEmails

	// Implicit role groups: exact role name, plus its trailing-digit-
	// stripped pluralization (contributor1, contributor2 -> contributors).
	byExactRole := map[string][]string{}
	byBaseRole := map[string][]string{}
	for _, p := range participants {
		byExactRole[p.Role] = append(byExactRole[p.Role], p.Email)

		base := p.Role
		if m := trailingDigits.FindStringSubmatch(p.Role); m != nil {
			base = m[1]
		}
		plural := pluralize(base)
		byBaseRole[plural] = append(byBaseRole[plural], p.Email)
	}
	for role, emails := range byExactRole {
		groups[role] = emails
	}
	for plural, emails := range byBaseRole {
		setGroupWithAliases(groups, plural, emails)
	}

	// Explicit groups from spec.datasites.groups.
	for _, eg := range explicit {
		var members []string
		for _, token := range eg.Include {
			members = append(members, resolveToken(token, allEmails, groups)...)
		}
		setGroupWithAliases(groups, eg.Name, dedupe(members))
	}

	return groups
}

// setGroupWithAliases records name's member list, and additionally aliases
// the "contributors" group to "clients" (spec §4.4: "contributors alias
// additionally becomes clients").
func setGroupWithAliases(groups map[string][]string, name string, members []string) {
	groups[name] = members
	if name == "contributors" {
		groups["clients"] = members
	}
}

func resolveToken(token string, allEmails []string, groups map[string][]string) []string {
	switch {
	case token == "{datasites[*]}" || token == "all":
		return allEmails
	case strings.Contains(token, "@"):
		return []string{token}
	case positionalToken.MatchString(token):
		m := positionalToken.FindStringSubmatch(token)
		if m[1] == "*" {
			return allEmails
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		// Out-of-range positional references are a silent skip (spec §9
		// open question: whether this should instead be a validation
		// error is left for the operator to decide).
		if idx < 0 || idx >= len(allEmails) {
			return nil
		}
		return []string{allEmails[idx]}
	default:
		if members, ok := groups[token]; ok {
			return members
		}
		// Fall back to a positional role-group lookup: treat the token
		// itself as a role name.
		return groups[token]
	}
}

func pluralize(base string) string {
	if strings.HasSuffix(base, "s") {
		return base
	}
	return base + "s"
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
