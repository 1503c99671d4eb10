package testuploads

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/internal/gamedata"
	"github.com/shalun/raidlogs/pkg/logger"
)

// Generated payloads target the built-in whitelist so a stock service
// accepts them without a gamedata overlay.
const (
	targetAreaID = 3026
	targetBossID = 3026
	targetBossHP = 21_300_000_000
)

// stanceBuffID marks one member as tanking; it must stay inside the default
// tank abnormal set.
const stanceBuffID = 100200

// Roster classes cycled through generated members. The first slot is always
// the anchor tank so every roster resolves sensible roles.
var rosterClasses = []gamedata.Class{
	gamedata.Lancer, gamedata.Priest, gamedata.Warrior,
	gamedata.Sorcerer, gamedata.Archer, gamedata.Ninja,
	gamedata.Berserker, gamedata.Mystic, gamedata.Slayer,
	gamedata.Gunner,
}

func randomInt64(maxValue int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(maxValue))
	return n.Int64()
}

// generateRuns creates unique, admissible payloads. Every roster gets fresh
// player ids so no two runs collide on the duplicate fingerprint.
func generateRuns(ctx context.Context, config *Config, stats *Stats) ([]encounter.Payload, error) {
	logger.Get().Info(ctx, "generating upload payloads",
		logger.Int("numRuns", config.NumRuns),
		logger.Int("partySize", config.PartySize))

	runs := make([]encounter.Payload, config.NumRuns)
	for i := range runs {
		runs[i] = generateSingleRun(i, config.PartySize)
	}

	stats.RunsGenerated = len(runs)
	logger.Get().Info(ctx, "generated payloads successfully", logger.Int("count", len(runs)))
	return runs, nil
}

// generateSingleRun builds one payload around the target boss. The summed
// member damage lands on the reference HP, so the plausibility bound always
// passes.
func generateSingleRun(index, partySize int) encounter.Payload {
	if partySize < 1 {
		partySize = 5
	}

	members := make([]encounter.Member, partySize)
	share := int64(targetBossHP / partySize)
	for j := range members {
		cls := rosterClasses[j%len(rosterClasses)]

		// Unique per run and slot; keeps fingerprints distinct.
		playerID := int64(index)*1000 + int64(j) + 1
		buffs := []encounter.BuffRecord{
			{json.RawMessage(strconv.FormatInt(int64(90000+j), 10))},
		}
		if j == 0 {
			buffs = append(buffs, encounter.BuffRecord{
				json.RawMessage(strconv.Itoa(stanceBuffID)),
			})
		}

		members[j] = encounter.Member{
			PlayerClass:                 string(cls),
			PlayerName:                  "Tester" + strconv.Itoa(index) + "x" + strconv.Itoa(j),
			PlayerID:                    playerID,
			PlayerServerID:              26,
			PlayerServer:                "Mystel",
			Aggro:                       int64(100 - j*10),
			PlayerAverageCritRate:       20 + randomInt64(60),
			PlayerDeathDuration:         "0",
			PlayerDeaths:                int(randomInt64(3)),
			PlayerDps:                   strconv.FormatInt(share/300, 10),
			PlayerTotalDamage:           strconv.FormatInt(share, 10),
			PlayerTotalDamagePercentage: int64(100 / partySize),
			BuffDetail:                  buffs,
			SkillLog: []encounter.SkillRecord{
				{SkillID: 10100, SkillCasts: "42", SkillTotalDamage: strconv.FormatInt(share/2, 10)},
			},
		}
	}

	return encounter.Payload{
		BossID:             targetBossID,
		AreaID:             targetAreaID,
		EncounterUnixEpoch: time.Now().Unix(),
		FightDuration:      strconv.FormatInt(200+randomInt64(200), 10),
		PartyDps:           strconv.FormatInt(targetBossHP/300, 10),
		DebuffDetail:       []json.RawMessage{json.RawMessage(`[90500,1]`)},
		Uploader:           "0",
		Members:            members,
	}
}
