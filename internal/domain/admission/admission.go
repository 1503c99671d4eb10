// Package admission implements the upload plausibility checks. Validate is a
// pure function: it sees the payload, the configured limits, the zone
// whitelist and the current server time, and returns the first failing rule.
// Checks run in a fixed order and short-circuit, so clients always get the
// most fundamental violation first.
package admission

import (
	"math/big"
	"time"

	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/internal/gamedata"
)

// damageTolerancePct is the allowed deviation between the whitelist's
// reference boss HP and the roster's summed damage, in percent.
const damageTolerancePct = 18

// Reason identifies the admission rule a payload failed.
type Reason string

// Rejection reasons, in check order.
const (
	ReasonNone          Reason = ""
	ReasonTimeDiff      Reason = "time_diff_exceeded"
	ReasonZoneClosed    Reason = "zone_or_boss_not_allowed"
	ReasonDamageBound   Reason = "damage_out_of_bounds"
	ReasonPartyDpsLow   Reason = "party_dps_below_floor"
	ReasonMemberCount   Reason = "member_count_out_of_bounds"
	ReasonUploaderIndex Reason = "uploader_index_out_of_bounds"
	ReasonDebuffsEmpty  Reason = "debuff_detail_empty"
	ReasonBuffsEmpty    Reason = "member_buff_detail_empty"
)

// Limits carries the configured admission bounds.
type Limits struct {
	// MaxAllowedTimeDiff bounds the absolute gap between server time and the
	// client-reported encounter time.
	MaxAllowedTimeDiff time.Duration

	// MinPartyDps is the party DPS floor. No upper bound is enforced.
	MinPartyDps int64

	// MinMembers and MaxMembers bound the roster size.
	MinMembers int
	MaxMembers int
}

// Result is the admission decision.
type Result struct {
	Accepted bool
	Reason   Reason
}

func reject(reason Reason) Result { return Result{Reason: reason} }

// Validate runs the admission rule chain against a structurally valid
// payload. now is injected so the time rule stays testable.
func Validate(p *encounter.Payload, now time.Time, limits Limits, whitelist gamedata.Whitelist) Result {
	// Rounded epoch seconds on both sides; symmetric, so reports from the
	// future are rejected the same as stale ones.
	diff := now.Unix() - p.EncounterUnixEpoch
	if diff < 0 {
		diff = -diff
	}
	if diff > int64(limits.MaxAllowedTimeDiff/time.Second) {
		return reject(ReasonTimeDiff)
	}

	if !whitelist.BossAllowed(p.AreaID, p.BossID) {
		return reject(ReasonZoneClosed)
	}

	if !damageWithinBound(p, whitelist) {
		return reject(ReasonDamageBound)
	}

	partyDps, ok := parseDecimal(p.PartyDps)
	if !ok || partyDps.Cmp(big.NewInt(limits.MinPartyDps)) < 0 {
		return reject(ReasonPartyDpsLow)
	}

	if len(p.Members) < limits.MinMembers || len(p.Members) > limits.MaxMembers {
		return reject(ReasonMemberCount)
	}

	// Known looseness: an index equal to the roster length passes. Kept for
	// client compatibility; the orchestrator clamps before indexing.
	idx, err := p.UploaderIndex()
	if err != nil || idx < 0 || idx > len(p.Members) {
		return reject(ReasonUploaderIndex)
	}

	if len(p.DebuffDetail) == 0 {
		return reject(ReasonDebuffsEmpty)
	}
	for i := range p.Members {
		if len(p.Members[i].BuffDetail) == 0 {
			return reject(ReasonBuffsEmpty)
		}
	}

	return Result{Accepted: true}
}

// damageWithinBound checks the roster's summed damage against the
// whitelist's reference HP for the boss. The bound is advisory: it is
// skipped when the whitelist publishes no HP, or when either side is zero.
func damageWithinBound(p *encounter.Payload, whitelist gamedata.Whitelist) bool {
	refRaw := whitelist.ReferenceHP(p.AreaID, p.BossID)
	if refRaw == "" {
		return true
	}
	bossHP, ok := parseDecimal(refRaw)
	if !ok || bossHP.Sign() == 0 {
		return true
	}

	total := new(big.Int)
	for i := range p.Members {
		if dmg, ok := parseDecimal(p.Members[i].PlayerTotalDamage); ok {
			total.Add(total, dmg)
		}
	}
	if total.Sign() == 0 {
		return true
	}

	// tolerance = round(bossHP * 18%)
	tolerance := new(big.Int).Mul(bossHP, big.NewInt(damageTolerancePct))
	tolerance.Add(tolerance, big.NewInt(50))
	tolerance.Div(tolerance, big.NewInt(100))

	gap := new(big.Int).Sub(bossHP, total)
	gap.Abs(gap)
	return gap.Cmp(tolerance) <= 0
}

// parseDecimal parses a decimal string into a big integer. DPS and damage
// figures routinely exceed int64, and float parsing would silently lose
// precision, so everything numeric from the client goes through here.
func parseDecimal(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return v, true
}
