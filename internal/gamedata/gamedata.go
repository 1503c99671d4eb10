// Package gamedata holds the static game tables consumed by the admission
// pipeline: the player-class taxonomy, the upload whitelist (zone -> allowed
// bosses -> reference HP), the server-to-region table, and the heuristic
// thresholds and status-effect sets used by classification and role
// resolution. Tables are plain data loaded at startup so the pure domain
// functions stay free of I/O.
package gamedata

// Class identifies a player class as reported by the combat-log client.
type Class string

// Known player classes.
const (
	Warrior   Class = "Warrior"
	Lancer    Class = "Lancer"
	Slayer    Class = "Slayer"
	Berserker Class = "Berserker"
	Sorcerer  Class = "Sorcerer"
	Archer    Class = "Archer"
	Priest    Class = "Priest"
	Mystic    Class = "Mystic"
	Reaper    Class = "Reaper"
	Gunner    Class = "Gunner"
	Brawler   Class = "Brawler"
	Ninja     Class = "Ninja"
	Valkyrie  Class = "Valkyrie"
)

// Classes lists every accepted class value.
var Classes = []Class{
	Warrior, Lancer, Slayer, Berserker, Sorcerer, Archer,
	Priest, Mystic, Reaper, Gunner, Brawler, Ninja, Valkyrie,
}

// Valid reports whether c is a known class.
func (c Class) Valid() bool {
	for _, known := range Classes {
		if c == known {
			return true
		}
	}
	return false
}

// IsHealer reports whether c always counts as a healer.
func (c Class) IsHealer() bool {
	return c == Priest || c == Mystic
}

// IsAnchorTank reports whether c always counts as a tank. Lancer has no
// damage stance, so its role is never ambiguous.
func (c Class) IsAnchorTank() bool {
	return c == Lancer
}

// IsControllable reports whether c can flip between tank and damage duty
// depending on the stance buffs observed during the fight.
func (c Class) IsControllable() bool {
	return c == Brawler || c == Warrior || c == Berserker
}

// Zone describes one whitelisted hunting zone. Bosses must be non-empty for
// the zone to accept uploads; an empty list is a misconfiguration and the
// zone stays closed. BossHP maps a boss id to its reference HP as a decimal
// string, used for the damage-sum plausibility bound.
type Zone struct {
	Bosses []int64          `koanf:"bosses"`
	BossHP map[int64]string `koanf:"boss_hp"`
}

// Whitelist maps zone (area) ids to their upload rules.
type Whitelist map[int64]Zone

// BossAllowed reports whether uploads for the given zone and boss are open.
// A zone absent from the whitelist, or present without any boss entries,
// fails closed.
func (w Whitelist) BossAllowed(areaID, bossID int64) bool {
	zone, ok := w[areaID]
	if !ok || len(zone.Bosses) == 0 {
		return false
	}
	for _, b := range zone.Bosses {
		if b == bossID {
			return true
		}
	}
	return false
}

// ReferenceHP returns the published HP for a boss in a zone, or "" when the
// whitelist carries no reference value.
func (w Whitelist) ReferenceHP(areaID, bossID int64) string {
	zone, ok := w[areaID]
	if !ok {
		return ""
	}
	return zone.BossHP[bossID]
}

// RegionTable maps a server id to its region label.
type RegionTable map[int64]string

// Region returns the region for a server id, or "" for unknown servers.
func (t RegionTable) Region(serverID int64) string {
	return t[serverID]
}

// RoleRule configures secondary role resolution for one controllable class.
// A member whose buffs intersect AltAbnormals gets AltLabel, otherwise
// Default.
type RoleRule struct {
	Default      string  `koanf:"default"`
	AltAbnormals []int64 `koanf:"alt_abnormals"`
	AltLabel     string  `koanf:"alt_label"`
}

// Analyze bundles the classification thresholds and status-effect sets.
type Analyze struct {
	// ShameDeathsAmount is the roster-wide death count at which a run is
	// flagged as a shame run.
	ShameDeathsAmount int `koanf:"shame_deaths_amount"`

	// MultipleTanksTrigger and MultipleHealsTrigger are the counts at which
	// the corresponding flags trip.
	MultipleTanksTrigger int `koanf:"multiple_tanks_trigger"`
	MultipleHealsTrigger int `koanf:"multiple_heals_trigger"`

	// TankAbnormals are the stance status-effect ids that mark a
	// controllable class as tanking.
	TankAbnormals []int64 `koanf:"tank_abnormals"`

	// P2WAbnormals are the pay-to-win consumable status-effect ids.
	P2WAbnormals []int64 `koanf:"p2w_abnormals"`

	// RoleTypes configures secondary role labels per controllable class.
	RoleTypes map[Class]RoleRule `koanf:"role_types"`
}

// Tables is the full static game-data set loaded at startup.
type Tables struct {
	Whitelist Whitelist   `koanf:"whitelist"`
	Regions   RegionTable `koanf:"regions"`
	Analyze   Analyze     `koanf:"analyze"`
}

// HasIntersection reports whether any id in a also appears in b. Both the
// classifier and the role resolver compare small status-effect sets, so a
// nested scan beats building maps.
func HasIntersection(a, b []int64) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
