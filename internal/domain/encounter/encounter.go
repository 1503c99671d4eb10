// Package encounter defines the untrusted upload payload and its structural
// validation. Admission rules (time windows, whitelists, damage bounds) live
// in the admission package; this package only guarantees the payload is
// well-formed enough for those rules to run.
package encounter

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Field bounds mirrored from the client contract.
const (
	minPlayerNameLen    = 3
	minFightDurationLen = 2
	minPartyDpsLen      = 5
	maxPlayerDeaths     = 999
)

// BuffRecord is a positional status-effect record. Element 0 is the
// status-effect id (number or numeric string); the remaining elements are
// client-side detail the service stores verbatim.
type BuffRecord []json.RawMessage

// EffectID extracts the status-effect id from the record's first element.
func (r BuffRecord) EffectID() (int64, bool) {
	if len(r) == 0 {
		return 0, false
	}
	raw := strings.Trim(strings.TrimSpace(string(r[0])), `"`)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SkillRecord captures per-skill usage totals. Damage figures stay decimal
// strings because they can exceed int64.
type SkillRecord struct {
	SkillID              int64  `json:"skillId"`
	SkillCasts           string `json:"skillCasts,omitempty"`
	SkillHits            string `json:"skillHits,omitempty"`
	SkillCritRate        int64  `json:"skillCritRate,omitempty"`
	SkillDamagePercent   int64  `json:"skillDamagePercent,omitempty"`
	SkillAverageCrit     string `json:"skillAverageCrit,omitempty"`
	SkillAverageWhite    string `json:"skillAverageWhite,omitempty"`
	SkillHighestCrit     string `json:"skillHighestCrit,omitempty"`
	SkillLowestCrit      string `json:"skillLowestCrit,omitempty"`
	SkillTotalDamage     string `json:"skillTotalDamage,omitempty"`
	SkillTotalCritDamage string `json:"skillTotalCritDamage,omitempty"`
}

// Member is one roster entry in an uploaded encounter.
type Member struct {
	PlayerClass                 string        `json:"playerClass"`
	PlayerName                  string        `json:"playerName"`
	PlayerID                    int64         `json:"playerId"`
	PlayerServerID              int64         `json:"playerServerId"`
	PlayerServer                string        `json:"playerServer"`
	Aggro                       int64         `json:"aggro"`
	PlayerAverageCritRate       int64         `json:"playerAverageCritRate"`
	PlayerDeathDuration         string        `json:"playerDeathDuration"`
	PlayerDeaths                int           `json:"playerDeaths"`
	PlayerDps                   string        `json:"playerDps"`
	PlayerTotalDamage           string        `json:"playerTotalDamage"`
	PlayerTotalDamagePercentage int64         `json:"playerTotalDamagePercentage"`
	BuffDetail                  []BuffRecord  `json:"buffDetail"`
	SkillLog                    []SkillRecord `json:"skillLog"`
}

// BuffIDs returns the status-effect ids observed on the member. Records with
// an unparseable first element are skipped.
func (m *Member) BuffIDs() []int64 {
	ids := make([]int64, 0, len(m.BuffDetail))
	for _, record := range m.BuffDetail {
		if id, ok := record.EffectID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Payload is the untrusted upload body. It exists only for the duration of
// one request.
type Payload struct {
	BossID             int64             `json:"bossId"`
	AreaID             int64             `json:"areaId"`
	EncounterUnixEpoch int64             `json:"encounterUnixEpoch"`
	FightDuration      string            `json:"fightDuration"`
	PartyDps           string            `json:"partyDps"`
	DebuffDetail       []json.RawMessage `json:"debuffDetail"`
	Uploader           string            `json:"uploader"`
	Members            []Member          `json:"members"`
}

// UploaderIndex parses the uploader field into a roster index. The bound
// check against the roster length belongs to the admission validator.
func (p *Payload) UploaderIndex() (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(p.Uploader))
	if err != nil {
		return 0, err
	}
	return idx, nil
}

// Validate checks structural well-formedness: required fields, enum
// membership and numeric bounds, matching the client contract. It does not
// apply admission rules.
func (p *Payload) Validate(validClass func(string) bool) error {
	switch {
	case p.BossID < 0:
		return ErrBadBossID
	case p.AreaID < 0:
		return ErrBadAreaID
	case len(p.FightDuration) < minFightDurationLen:
		return ErrBadFightDuration
	case len(p.PartyDps) < minPartyDpsLen:
		return ErrBadPartyDps
	case len(p.Members) == 0:
		return ErrNoMembers
	}
	if _, err := p.UploaderIndex(); err != nil {
		return ErrBadUploader
	}
	for i := range p.Members {
		if err := p.Members[i].validate(validClass); err != nil {
			return err
		}
	}
	return nil
}

func (m *Member) validate(validClass func(string) bool) error {
	switch {
	case !validClass(m.PlayerClass):
		return ErrBadClass
	case len(m.PlayerName) < minPlayerNameLen:
		return ErrBadPlayerName
	case m.PlayerID < 1:
		return ErrBadPlayerID
	case m.Aggro < 0:
		return ErrBadAggro
	case m.PlayerAverageCritRate < 1:
		return ErrBadCritRate
	case m.PlayerDeathDuration == "":
		return ErrBadDeathDuration
	case m.PlayerDeaths < 0 || m.PlayerDeaths > maxPlayerDeaths:
		return ErrBadDeaths
	case m.PlayerDps == "":
		return ErrBadPlayerDps
	case m.PlayerTotalDamage == "":
		return ErrBadTotalDamage
	}
	return nil
}

// Fingerprint derives the dedup key: boss id, area id, then the sorted
// player ids and sorted server ids of the roster. Two uploads of the same
// fight by different party members collide on purpose; stat values do not
// participate.
func (p *Payload) Fingerprint() string {
	playerIDs := make([]int64, 0, len(p.Members))
	serverIDs := make([]int64, 0, len(p.Members))
	for i := range p.Members {
		playerIDs = append(playerIDs, p.Members[i].PlayerID)
		serverIDs = append(serverIDs, p.Members[i].PlayerServerID)
	}
	sort.Slice(playerIDs, func(i, j int) bool { return playerIDs[i] < playerIDs[j] })
	sort.Slice(serverIDs, func(i, j int) bool { return serverIDs[i] < serverIDs[j] })

	var b strings.Builder
	b.WriteString(strconv.FormatInt(p.BossID, 10))
	b.WriteString(strconv.FormatInt(p.AreaID, 10))
	for _, id := range playerIDs {
		b.WriteString(strconv.FormatInt(id, 10))
	}
	for _, id := range serverIDs {
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
