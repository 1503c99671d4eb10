// Package service wires the upload admission pipeline and the search reads
// behind one facade, which implements the dependencies required by the HTTP
// API.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	repository "github.com/shalun/raidlogs/internal/adapters/repository"
	"github.com/shalun/raidlogs/internal/domain/admission"
	"github.com/shalun/raidlogs/internal/domain/classify"
	"github.com/shalun/raidlogs/internal/domain/dedupe"
	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/internal/domain/roles"
	"github.com/shalun/raidlogs/internal/domain/runid"
	"github.com/shalun/raidlogs/internal/gamedata"
	"github.com/shalun/raidlogs/pkg/logger"
	"github.com/shalun/raidlogs/pkg/metrics"
)

// Upload token length bounds, mirrored from the client contract.
const (
	minTokenLen = 20
	maxTokenLen = 50
)

// UploadResult is returned for an admitted upload.
type UploadResult struct {
	RunID string
	URL   string
}

// Service runs uploads through admission, classification, role resolution
// and identity upserts, then persists them. It also fronts the search reads.
type Service struct {
	players repository.PlayerStore
	runs    repository.RunStore
	tokens  repository.TokenStore
	deduper dedupe.Deduper
	tables  gamedata.Tables

	// Configuration
	limits         admission.Limits
	allowAnonymous bool
	runIDLength    int
	runURLBase     string
	recentLimit    int
	topLimit       int

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service over its stores and the loaded game tables.
func New(players repository.PlayerStore, runs repository.RunStore, tokens repository.TokenStore,
	deduper dedupe.Deduper, tables gamedata.Tables, opts ...Option,
) *Service {
	s := &Service{
		players:     players,
		runs:        runs,
		tokens:      tokens,
		deduper:     deduper,
		tables:      tables,
		runIDLength: runid.DefaultLength,
		recentLimit: 20,
		topLimit:    10,
		limits: admission.Limits{
			MaxAllowedTimeDiff: 300 * time.Second,
			MinPartyDps:        10000,
			MinMembers:         1,
			MaxMembers:         30,
		},
		now: time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	return s
}

// Upload runs one payload through the full admission pipeline. It returns
// ErrUnauthorized for bad tokens, a structural validation sentinel for
// malformed payloads, a RejectedError for admission failures, ErrDuplicate
// for replays within the window, and the store error when persistence fails.
func (s *Service) Upload(ctx context.Context, p *encounter.Payload, token string) (UploadResult, error) {
	if err := s.authorize(ctx, token); err != nil {
		return UploadResult{}, err
	}

	if err := p.Validate(func(class string) bool {
		return gamedata.Class(class).Valid()
	}); err != nil {
		s.logger.Debug(ctx, "upload failed structural validation", logger.Error(err))
		return UploadResult{}, err
	}

	if result := admission.Validate(p, s.now(), s.limits, s.tables.Whitelist); !result.Accepted {
		metrics.RecordUploadRejected(string(result.Reason))
		s.logger.Info(ctx, "upload rejected",
			logger.String("reason", string(result.Reason)),
			logger.Int64("bossId", p.BossID),
			logger.Int64("areaId", p.AreaID),
		)
		return UploadResult{}, &RejectedError{Reason: result.Reason}
	}

	// Admission passed; claim the fingerprint before any write so a
	// concurrent replay of the same fight loses here, not in the store.
	fingerprint := p.Fingerprint()
	if s.deduper.SeenAndRecord(ctx, fingerprint) {
		metrics.RecordUploadDuplicate()
		s.logger.Info(ctx, "duplicate upload blocked", logger.Int64("bossId", p.BossID))
		return UploadResult{}, ErrDuplicate
	}

	result, err := s.persist(ctx, p)
	if err != nil {
		// Release the fingerprint so the client can retry the same fight.
		s.deduper.Unrecord(ctx, fingerprint)
		metrics.RecordUploadError()
		s.logger.Error(ctx, "upload persistence failed", logger.Error(err))
		return UploadResult{}, err
	}

	metrics.RecordUploadAccepted()
	metrics.UpdateDedupeSize(s.deduper.Size())
	s.logger.Info(ctx, "upload accepted",
		logger.String("runId", result.RunID),
		logger.Int64("bossId", p.BossID),
		logger.Int("members", len(p.Members)),
	)
	return result, nil
}

// authorize resolves the upload credential. Anonymous uploads skip the
// lookup entirely when enabled.
func (s *Service) authorize(ctx context.Context, token string) error {
	if s.allowAnonymous {
		return nil
	}
	token = strings.TrimSpace(token)
	if len(token) < minTokenLen || len(token) > maxTokenLen {
		return ErrUnauthorized
	}
	key, err := s.tokens.FindToken(ctx, token)
	if err != nil {
		s.logger.Error(ctx, "token lookup failed", logger.Error(err))
		return err
	}
	if key == nil {
		return ErrUnauthorized
	}
	return nil
}

// persist classifies the admitted payload, resolves roles, upserts every
// member identity and writes the run document.
func (s *Service) persist(ctx context.Context, p *encounter.Payload) (UploadResult, error) {
	// The validator tolerates an index equal to the roster length; clamp it
	// before using it to select the uploading member.
	uploaderIdx, _ := p.UploaderIndex()
	if uploaderIdx >= len(p.Members) {
		uploaderIdx = len(p.Members) - 1
	}

	tags := classify.Run(p, uploaderIdx, s.tables.Analyze, s.tables.Regions)
	resolved := roles.Resolve(p.Members, s.tables.Analyze)

	members := make([]repository.RunMember, 0, len(resolved))
	var uploaderRef int64
	for i := range resolved {
		ref, err := s.upsertIdentity(ctx, &resolved[i].Member)
		if err != nil {
			return UploadResult{}, err
		}
		if i == uploaderIdx {
			uploaderRef = ref
		}
		members = append(members, repository.RunMember{
			Member:    resolved[i].Member,
			RoleType:  resolved[i].RoleType,
			PlayerRef: ref,
		})
	}

	id, err := runid.New(s.runIDLength)
	if err != nil {
		return UploadResult{}, err
	}

	start := time.Now()
	run := &repository.Run{
		RunID:              id,
		BossID:             p.BossID,
		HuntingZoneID:      p.AreaID,
		Region:             tags.Region,
		EncounterUnixEpoch: p.EncounterUnixEpoch,
		FightDuration:      p.FightDuration,
		PartyDps:           p.PartyDps,
		DebuffDetail:       p.DebuffDetail,
		IsShame:            tags.IsShame,
		IsMultipleTanks:    tags.IsMultipleTanks,
		IsMultipleHeals:    tags.IsMultipleHeals,
		IsP2WConsums:       tags.IsP2WConsums,
		UploaderRef:        uploaderRef,
		Members:            members,
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return UploadResult{}, err
	}
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))

	return UploadResult{RunID: id, URL: s.runURL(id)}, nil
}

// upsertIdentity finds or creates the durable identity for a member and
// keeps its display fields current. Returns the identity's storage key.
func (s *Service) upsertIdentity(ctx context.Context, m *encounter.Member) (int64, error) {
	identity, err := s.players.FindByServerAndIDAndClass(ctx, m.PlayerServerID, m.PlayerID, m.PlayerClass)
	if err != nil {
		return 0, err
	}
	if identity == nil {
		identity = &repository.PlayerIdentity{
			PlayerClass:    m.PlayerClass,
			PlayerName:     m.PlayerName,
			PlayerID:       m.PlayerID,
			PlayerServerID: m.PlayerServerID,
			PlayerServer:   m.PlayerServer,
		}
		if err := s.players.CreatePlayer(ctx, identity); err != nil {
			return 0, err
		}
		metrics.RecordPlayerCreated()
		return identity.Ref, nil
	}

	if identity.PlayerName != m.PlayerName || identity.PlayerServer != m.PlayerServer {
		identity.PlayerName = m.PlayerName
		identity.PlayerServer = m.PlayerServer
		if err := s.players.Save(ctx, identity); err != nil {
			return 0, err
		}
		metrics.RecordPlayerUpdated()
	}
	return identity.Ref, nil
}

func (s *Service) runURL(id string) string {
	if s.runURLBase == "" {
		return id
	}
	return strings.TrimRight(s.runURLBase, "/") + "/" + id
}

// SearchRecent returns the newest runs matching the filter, newest first,
// capped at the configured recent-results limit.
func (s *Service) SearchRecent(ctx context.Context, filter repository.RecentFilter) ([]repository.Run, error) {
	start := time.Now()
	runs, err := s.runs.ListRecent(ctx, filter, s.recentLimit)
	if err != nil {
		s.logger.Error(ctx, "recent search failed", logger.Error(err))
		return nil, err
	}
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	return runs, nil
}

// SearchTop returns the highest party-DPS runs for a fully-qualified filter,
// capped at the configured top-places limit.
func (s *Service) SearchTop(ctx context.Context, filter repository.TopFilter) ([]repository.Run, error) {
	start := time.Now()
	runs, err := s.runs.ListTop(ctx, filter, s.topLimit)
	if err != nil {
		s.logger.Error(ctx, "top search failed", logger.Error(err))
		return nil, err
	}
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	return runs, nil
}

// GetRun returns one run by its public id, with identities merged.
func (s *Service) GetRun(ctx context.Context, runID string) (*repository.Run, error) {
	start := time.Now()
	run, err := s.runs.GetByRunID(ctx, runID)
	if err != nil {
		// A miss is a client problem, not an operational one.
		if !errors.Is(err, repository.ErrRunNotFound) {
			s.logger.Error(ctx, "run lookup failed",
				logger.String("runId", runID),
				logger.Error(err),
			)
		}
		return nil, err
	}
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	return run, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	dedupeSize := s.deduper.Size()
	metrics.UpdateDedupeSize(dedupeSize)

	return map[string]interface{}{
		"dedupeSize":     dedupeSize,
		"allowAnonymous": s.allowAnonymous,
		"recentLimit":    s.recentLimit,
		"topLimit":       s.topLimit,
	}
}
