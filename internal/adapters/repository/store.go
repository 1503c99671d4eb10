// Package repository persists runs, player identities and API credentials.
// The interfaces here are the contracts the upload orchestrator and the
// search endpoints consume; the SQLite implementation lives alongside them.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shalun/raidlogs/internal/domain/encounter"
)

// PlayerIdentity is the durable record for one (server, player id, class)
// identity. Ref is the storage key used to link run members to it.
type PlayerIdentity struct {
	Ref            int64  `json:"-"`
	PlayerClass    string `json:"playerClass"`
	PlayerName     string `json:"playerName"`
	PlayerID       int64  `json:"playerId"`
	PlayerServerID int64  `json:"playerServerId"`
	PlayerServer   string `json:"playerServer"`
}

// RunMember is a persisted roster entry: the uploaded member fields plus the
// resolved role label and the identity reference. Identity is the explicit
// join filled in by reads; it replaces the historical practice of splatting
// identity fields into the member object.
type RunMember struct {
	encounter.Member
	RoleType  string          `json:"roleType,omitempty"`
	PlayerRef int64           `json:"-"`
	Identity  *PlayerIdentity `json:"userData,omitempty"`
}

// Run is the persisted encounter document.
type Run struct {
	RunID              string            `json:"runId"`
	BossID             int64             `json:"bossId"`
	HuntingZoneID      int64             `json:"huntingZoneId"`
	Region             string            `json:"region"`
	EncounterUnixEpoch int64             `json:"encounterUnixEpoch"`
	FightDuration      string            `json:"fightDuration"`
	PartyDps           string            `json:"partyDps"`
	DebuffDetail       []json.RawMessage `json:"debuffDetail"`
	IsShame            bool              `json:"isShame"`
	IsMultipleTanks    bool              `json:"isMultipleTanks"`
	IsMultipleHeals    bool              `json:"isMultipleHeals"`
	IsP2WConsums       bool              `json:"isP2WConsums"`
	UploaderRef        int64             `json:"-"`
	Members            []RunMember       `json:"members"`
	CreatedAt          time.Time         `json:"-"`
}

// RecentFilter narrows /search/recent queries. Nil fields are not applied.
type RecentFilter struct {
	Region      *string
	ZoneID      *int64
	BossID      *int64
	IsShame     *bool
	PlayerClass *string
	ExcludeP2W  bool
}

// TopFilter narrows /search/top queries. All fields are required except
// ExcludeP2W.
type TopFilter struct {
	Region      string
	ZoneID      int64
	BossID      int64
	PlayerClass string
	ExcludeP2W  bool
}

// PlayerStore provides read/write access to player identities.
type PlayerStore interface {
	// FindByServerAndIDAndClass returns the identity or nil when absent.
	FindByServerAndIDAndClass(ctx context.Context, serverID, playerID int64, class string) (*PlayerIdentity, error)

	// CreatePlayer inserts a new identity and populates its Ref.
	CreatePlayer(ctx context.Context, identity *PlayerIdentity) error

	// Save writes back a mutated identity (display-name updates).
	Save(ctx context.Context, identity *PlayerIdentity) error
}

// RunStore provides run persistence and the search query surface.
type RunStore interface {
	// CreateRun persists a finalized run document.
	CreateRun(ctx context.Context, run *Run) error

	// GetByRunID returns the full run with member identities merged in, or
	// ErrRunNotFound.
	GetByRunID(ctx context.Context, runID string) (*Run, error)

	// ListRecent returns the newest matching runs, newest first.
	ListRecent(ctx context.Context, filter RecentFilter, limit int) ([]Run, error)

	// ListTop returns the highest-party-DPS matching runs.
	ListTop(ctx context.Context, filter TopFilter, limit int) ([]Run, error)
}

// TokenStore resolves upload credentials.
type TokenStore interface {
	// FindToken returns the credential record or nil when the token is
	// unknown.
	FindToken(ctx context.Context, token string) (*APIKey, error)
}

// APIKey is a stored upload credential.
type APIKey struct {
	Token     string
	Owner     string
	CreatedAt time.Time
}
