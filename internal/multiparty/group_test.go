package multiparty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testParticipants() []Participant {
	return []Participant{
		{Email: "owner@example.org", Role: "owner"},
		{Email: "c1@example.org", Role: "contributor1"},
		{Email: "c2@example.org", Role: "contributor2"},
		{Email: "analyst@example.org", Role: "analyst"},
	}
}

func TestResolveGroups_AllGroup(t *testing.T) {
	groups := ResolveGroups(testParticipants(), nil)
	assert.ElementsMatch(t, []string{"owner@example.org", "c1@example.org", "c2@example.org", "analyst@example.org"}, groups["all"])
}

func TestResolveGroups_ImplicitExactRole(t *testing.T) {
	groups := ResolveGroups(testParticipants(), nil)
	assert.Equal(t, []string{"owner@example.org"}, groups["owner"])
	assert.Equal(t, []string{"c1@example.org"}, groups["contributor1"])
}

func TestResolveGroups_ImplicitPluralizedBaseRole(t *testing.T) {
	groups := ResolveGroups(testParticipants(), nil)
	assert.ElementsMatch(t, []string{"c1@example.org", "c2@example.org"}, groups["contributors"])
}

func TestResolveGroups_ContributorsAliasesToClients(t *testing.T) {
	groups := ResolveGroups(testParticipants(), nil)
	assert.ElementsMatch(t, groups["contributors"], groups["clients"])
}

func TestResolveGroups_ExplicitGroupWithWildcard(t *testing.T) {
	explicit := []ExplicitGroup{
		{Name: "everyone", Include: []string{"{datasites[*]}"}},
	}
	groups := ResolveGroups(testParticipants(), explicit)
	assert.ElementsMatch(t, groups["all"], groups["everyone"])
}

func TestResolveGroups_ExplicitGroupWithLiteralEmail(t *testing.T) {
	explicit := []ExplicitGroup{
		{Name: "subset", Include: []string{"owner@example.org", "analyst@example.org"}},
	}
	groups := ResolveGroups(testParticipants(), explicit)
	assert.ElementsMatch(t, []string{"owner@example.org", "analyst@example.org"}, groups["subset"])
}

func TestResolveGroups_ExplicitGroupWithPositionalToken(t *testing.T) {
	explicit := []ExplicitGroup{
		{Name: "first_two", Include: []string{"{datasites[0]}", "{datasites[1]}"}},
	}
	groups := ResolveGroups(testParticipants(), explicit)
	assert.Equal(t, []string{"owner@example.org", "c1@example.org"}, groups["first_two"])
}

func TestResolveGroups_PositionalTokenOutOfRangeIsSkippedNotErrored(t *testing.T) {
	explicit := []ExplicitGroup{
		{Name: "too_far", Include: []string{"{datasites[99]}"}},
	}
	groups := ResolveGroups(testParticipants(), explicit)
	assert.Empty(t, groups["too_far"])
}

func TestResolveGroups_ExplicitGroupFallsBackToRoleLookup(t *testing.T) {
	explicit := []ExplicitGroup{
		{Name: "reviewers", Include: []string{"analyst"}},
	}
	groups := ResolveGroups(testParticipants(), explicit)
	assert.Equal(t, []string{"analyst@example.org"}, groups["reviewers"])
}

func TestResolveGroups_ExplicitGroupDedupesMembers(t *testing.T) {
	explicit := []ExplicitGroup{
		{Name: "dup", Include: []string{"owner@example.org", "owner", "{datasites[0]}"}},
	}
	groups := ResolveGroups(testParticipants(), explicit)
	assert.Equal(t, []string{"owner@example.org"}, groups["dup"])
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "contributors", pluralize("contributor"))
	assert.Equal(t, "analysts", pluralize("analyst"))
	assert.Equal(t, "owners", pluralize("owner"))
}
