// Package classify derives the heuristic run tags from a roster. It is a
// pure single pass over the members; all thresholds and status-effect sets
// come from the game tables.
package classify

import (
	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/internal/gamedata"
)

// Result is the computed classification, folded into the run at write time.
type Result struct {
	IsShame         bool
	IsMultipleTanks bool
	IsMultipleHeals bool
	IsP2WConsums    bool
	Region          string
}

// Run classifies an encounter. uploaderIdx selects the member whose server
// determines the run's region; an unknown server yields the empty region.
func Run(p *encounter.Payload, uploaderIdx int, analyze gamedata.Analyze, regions gamedata.RegionTable) Result {
	var deaths, tanks, healers int
	var p2w bool

	for i := range p.Members {
		member := &p.Members[i]
		deaths += member.PlayerDeaths

		cls := gamedata.Class(member.PlayerClass)
		switch {
		case cls.IsHealer():
			healers++
		case cls.IsControllable():
			if gamedata.HasIntersection(analyze.TankAbnormals, member.BuffIDs()) {
				tanks++
			}
		case cls.IsAnchorTank():
			tanks++
		}

		if !p2w && gamedata.HasIntersection(analyze.P2WAbnormals, member.BuffIDs()) {
			p2w = true
		}
	}

	var region string
	if uploaderIdx >= 0 && uploaderIdx < len(p.Members) {
		region = regions.Region(p.Members[uploaderIdx].PlayerServerID)
	}

	return Result{
		IsShame:         deaths >= analyze.ShameDeathsAmount,
		IsMultipleTanks: tanks >= analyze.MultipleTanksTrigger,
		IsMultipleHeals: healers >= analyze.MultipleHealsTrigger,
		IsP2WConsums:    p2w,
		Region:          region,
	}
}
