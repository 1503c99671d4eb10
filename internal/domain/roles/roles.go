// Package roles assigns secondary role labels to classes whose tank/damage
// duty is ambiguous. Resolution is pure and returns a new slice; the input
// roster is never mutated.
package roles

import (
	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/internal/gamedata"
)

// Member is a roster entry with its resolved role label. RoleType stays
// empty for classes outside the controllable set.
type Member struct {
	encounter.Member
	RoleType string
}

// Resolve labels every controllable-class member by intersecting its
// observed buffs with the class's configured ambiguous-role set: a hit
// yields the alternate label, otherwise the class default. All other
// members pass through unchanged.
func Resolve(members []encounter.Member, analyze gamedata.Analyze) []Member {
	resolved := make([]Member, 0, len(members))
	for i := range members {
		entry := Member{Member: members[i]}
		cls := gamedata.Class(members[i].PlayerClass)
		if cls.IsControllable() {
			if rule, ok := analyze.RoleTypes[cls]; ok {
				if gamedata.HasIntersection(rule.AltAbnormals, members[i].BuffIDs()) {
					entry.RoleType = rule.AltLabel
				} else {
					entry.RoleType = rule.Default
				}
			}
		}
		resolved = append(resolved, entry)
	}
	return resolved
}
