package gamedata

import (
	"context"
	"fmt"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults returns the built-in tables. They cover the currently open
// raid zones and the stock status-effect sets; operators override them with
// a YAML file for new patches without rebuilding the binary.
func Defaults() *Tables {
	return &Tables{
		Whitelist: Whitelist{
			3026: {
				Bosses: []int64{3026, 3126},
				BossHP: map[int64]string{
					3026: "21300000000",
					3126: "29800000000",
				},
			},
			3126: {
				Bosses: []int64{81301},
				BossHP: map[int64]string{81301: "14700000000"},
			},
		},
		Regions: RegionTable{
			26: "EU",
			27: "EU",
			42: "NA",
			43: "NA",
			77: "RU",
		},
		Analyze: Analyze{
			ShameDeathsAmount:    10,
			MultipleTanksTrigger: 2,
			MultipleHealsTrigger: 2,
			TankAbnormals:        []int64{100200, 100201, 10133030},
			P2WAbnormals:         []int64{70231, 70232, 6035604},
			RoleTypes: map[Class]RoleRule{
				Warrior: {
					Default:      "dps",
					AltAbnormals: []int64{100200, 100201},
					AltLabel:     "tank",
				},
				Brawler: {
					Default:      "tank",
					AltAbnormals: []int64{10153040},
					AltLabel:     "dps",
				},
				Berserker: {
					Default:      "dps",
					AltAbnormals: []int64{401705, 401706},
					AltLabel:     "tank",
				},
			},
		},
	}
}

// yaml shapes: YAML map keys arrive as strings, so the file is parsed into
// string-keyed structs and converted into the typed tables explicitly.
type fileZone struct {
	Bosses []int64           `koanf:"bosses"`
	BossHP map[string]string `koanf:"boss_hp"`
}

type fileTables struct {
	Whitelist map[string]fileZone `koanf:"whitelist"`
	Regions   map[string]string   `koanf:"regions"`
	Analyze   Analyze             `koanf:"analyze"`
}

// Load builds the game tables: built-in defaults, overlaid by the YAML file
// at path when path is non-empty. The whitelist and region tables replace
// wholesale, which keeps patch-day swaps predictable. Analyze settings merge
// per field so a partial overlay cannot zero the status-effect sets.
func Load(_ context.Context, path string) (*Tables, error) {
	tables := Defaults()
	if path == "" {
		return tables, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadTables, err)
	}

	var raw fileTables
	if err := k.UnmarshalWithConf("", &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadTables, err)
	}

	if len(raw.Whitelist) > 0 {
		wl := make(Whitelist, len(raw.Whitelist))
		for key, zone := range raw.Whitelist {
			areaID, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: whitelist key %q: %w", ErrInvalidTables, key, err)
			}
			hp := make(map[int64]string, len(zone.BossHP))
			for bossKey, val := range zone.BossHP {
				bossID, err := strconv.ParseInt(bossKey, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: boss_hp key %q: %w", ErrInvalidTables, bossKey, err)
				}
				hp[bossID] = val
			}
			wl[areaID] = Zone{Bosses: zone.Bosses, BossHP: hp}
		}
		tables.Whitelist = wl
	}

	if len(raw.Regions) > 0 {
		regions := make(RegionTable, len(raw.Regions))
		for key, region := range raw.Regions {
			serverID, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: regions key %q: %w", ErrInvalidTables, key, err)
			}
			regions[serverID] = region
		}
		tables.Regions = regions
	}

	if raw.Analyze.ShameDeathsAmount > 0 {
		tables.Analyze.ShameDeathsAmount = raw.Analyze.ShameDeathsAmount
	}
	if raw.Analyze.MultipleTanksTrigger > 0 {
		tables.Analyze.MultipleTanksTrigger = raw.Analyze.MultipleTanksTrigger
	}
	if raw.Analyze.MultipleHealsTrigger > 0 {
		tables.Analyze.MultipleHealsTrigger = raw.Analyze.MultipleHealsTrigger
	}
	if len(raw.Analyze.TankAbnormals) > 0 {
		tables.Analyze.TankAbnormals = raw.Analyze.TankAbnormals
	}
	if len(raw.Analyze.P2WAbnormals) > 0 {
		tables.Analyze.P2WAbnormals = raw.Analyze.P2WAbnormals
	}
	if len(raw.Analyze.RoleTypes) > 0 {
		tables.Analyze.RoleTypes = raw.Analyze.RoleTypes
	}

	return tables, nil
}
