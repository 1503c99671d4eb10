package encounter

import "errors"

// Sentinel kinds for structural payload violations.
var (
	ErrBadBossID        = errors.New("missing or negative bossId")
	ErrBadAreaID        = errors.New("missing or negative areaId")
	ErrBadFightDuration = errors.New("fightDuration too short")
	ErrBadPartyDps      = errors.New("partyDps too short")
	ErrNoMembers        = errors.New("members must not be empty")
	ErrBadUploader      = errors.New("uploader is not a roster index")
	ErrBadClass         = errors.New("unknown playerClass")
	ErrBadPlayerName    = errors.New("playerName too short")
	ErrBadPlayerID      = errors.New("playerId must be positive")
	ErrBadAggro         = errors.New("aggro must not be negative")
	ErrBadCritRate      = errors.New("playerAverageCritRate must be positive")
	ErrBadDeathDuration = errors.New("playerDeathDuration must not be empty")
	ErrBadDeaths        = errors.New("playerDeaths out of range")
	ErrBadPlayerDps     = errors.New("playerDps must not be empty")
	ErrBadTotalDamage   = errors.New("playerTotalDamage must not be empty")
)

var validationErrs = []error{
	ErrBadBossID, ErrBadAreaID, ErrBadFightDuration, ErrBadPartyDps,
	ErrNoMembers, ErrBadUploader, ErrBadClass, ErrBadPlayerName,
	ErrBadPlayerID, ErrBadAggro, ErrBadCritRate, ErrBadDeathDuration,
	ErrBadDeaths, ErrBadPlayerDps, ErrBadTotalDamage,
}

// IsValidation reports whether err is one of the structural validation
// sentinels, letting transports map it to a client error.
func IsValidation(err error) bool {
	for _, sentinel := range validationErrs {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
