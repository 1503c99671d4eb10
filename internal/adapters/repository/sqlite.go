package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timestampLayout is the format schema.sql writes with strftime.
const timestampLayout = "2006-01-02T15:04:05Z"

//go:embed schema.sql
var schema string

// SQLiteStore implements PlayerStore, RunStore and TokenStore on a single
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and ensures the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer; a single connection sidesteps SQLITE_BUSY
	// races between the upsert and persist steps of one upload.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- PlayerStore ---

// FindByServerAndIDAndClass returns the stored identity or nil.
func (s *SQLiteStore) FindByServerAndIDAndClass(ctx context.Context, serverID, playerID int64, class string) (*PlayerIdentity, error) {
	var identity PlayerIdentity
	err := s.db.QueryRowContext(ctx, `
		SELECT id, class, name, player_id, server_id, server_name
		FROM players WHERE server_id = ? AND player_id = ? AND class = ?
	`, serverID, playerID, class).Scan(
		&identity.Ref, &identity.PlayerClass, &identity.PlayerName,
		&identity.PlayerID, &identity.PlayerServerID, &identity.PlayerServer,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// CreatePlayer inserts a new identity and populates Ref.
func (s *SQLiteStore) CreatePlayer(ctx context.Context, identity *PlayerIdentity) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO players (player_id, server_id, class, name, server_name)
		VALUES (?, ?, ?, ?, ?)
	`, identity.PlayerID, identity.PlayerServerID, identity.PlayerClass,
		identity.PlayerName, identity.PlayerServer)
	if err != nil {
		return err
	}
	identity.Ref, _ = result.LastInsertId()
	return nil
}

// Save writes back the mutable identity fields (display name, server name).
func (s *SQLiteStore) Save(ctx context.Context, identity *PlayerIdentity) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE players SET name = ?, server_name = ? WHERE id = ?
	`, identity.PlayerName, identity.PlayerServer, identity.Ref)
	return err
}

// --- TokenStore ---

// FindToken returns the credential record or nil for unknown tokens.
func (s *SQLiteStore) FindToken(ctx context.Context, token string) (*APIKey, error) {
	var key APIKey
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT token, owner, created_at FROM api_keys WHERE token = ?
	`, token).Scan(&key.Token, &key.Owner, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	key.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	return &key, nil
}

// InsertToken registers a new upload credential.
func (s *SQLiteStore) InsertToken(ctx context.Context, token, owner string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (token, owner) VALUES (?, ?)
	`, token, owner)
	return err
}

// --- RunStore ---

// CreateRun persists the run and its members in one transaction.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	debuffs, err := json.Marshal(run.DebuffDetail)
	if err != nil {
		return fmt.Errorf("encoding debuff detail: %w", err)
	}

	// Float shadow of the exact decimal string, used only as a sort key for
	// the top-runs query.
	dpsNum, _ := strconv.ParseFloat(run.PartyDps, 64)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, boss_id, zone_id, region, encounter_ts, fight_duration,
			party_dps, party_dps_num, is_shame, is_multiple_tanks,
			is_multiple_heals, is_p2w, uploader_ref, debuff_detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.BossID, run.HuntingZoneID, run.Region,
		run.EncounterUnixEpoch, run.FightDuration, run.PartyDps, dpsNum,
		run.IsShame, run.IsMultipleTanks, run.IsMultipleHeals,
		run.IsP2WConsums, run.UploaderRef, string(debuffs))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	internalID, _ := result.LastInsertId()

	for i := range run.Members {
		member := &run.Members[i]
		buffs, err := json.Marshal(member.BuffDetail)
		if err != nil {
			return fmt.Errorf("encoding buff detail: %w", err)
		}
		skills, err := json.Marshal(member.SkillLog)
		if err != nil {
			return fmt.Errorf("encoding skill log: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_members (
				run_id, position, player_ref, class, name, player_id,
				server_id, server_name, aggro, crit_rate, death_duration,
				deaths, dps, total_damage, damage_pct, role_type,
				buff_detail, skill_log
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, internalID, i, member.PlayerRef, member.PlayerClass,
			member.PlayerName, member.PlayerID, member.PlayerServerID,
			member.PlayerServer, member.Aggro, member.PlayerAverageCritRate,
			member.PlayerDeathDuration, member.PlayerDeaths, member.PlayerDps,
			member.PlayerTotalDamage, member.PlayerTotalDamagePercentage,
			member.RoleType, string(buffs), string(skills)); err != nil {
			return fmt.Errorf("inserting run member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const runColumns = `
	id, run_id, boss_id, zone_id, region, encounter_ts, fight_duration,
	party_dps, is_shame, is_multiple_tanks, is_multiple_heals, is_p2w,
	uploader_ref, debuff_detail, created_at`

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, int64, error) {
	var run Run
	var internalID int64
	var debuffs, createdAt string
	if err := row.Scan(
		&internalID, &run.RunID, &run.BossID, &run.HuntingZoneID, &run.Region,
		&run.EncounterUnixEpoch, &run.FightDuration, &run.PartyDps,
		&run.IsShame, &run.IsMultipleTanks, &run.IsMultipleHeals,
		&run.IsP2WConsums, &run.UploaderRef, &debuffs, &createdAt,
	); err != nil {
		return nil, 0, err
	}
	run.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	if err := json.Unmarshal([]byte(debuffs), &run.DebuffDetail); err != nil {
		return nil, 0, fmt.Errorf("decoding debuff detail: %w", err)
	}
	return &run, internalID, nil
}

// GetByRunID returns the full run document with identities merged.
func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, internalID, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	runs := []Run{*run}
	if err := s.attachMembers(ctx, runs, []int64{internalID}); err != nil {
		return nil, err
	}
	return &runs[0], nil
}

// ListRecent returns the newest runs matching the filter, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, filter RecentFilter, limit int) ([]Run, error) {
	where := []string{"1 = 1"}
	var args []any

	if filter.Region != nil {
		where = append(where, "region = ?")
		args = append(args, *filter.Region)
	}
	if filter.ZoneID != nil {
		where = append(where, "zone_id = ?")
		args = append(args, *filter.ZoneID)
	}
	if filter.BossID != nil {
		where = append(where, "boss_id = ?")
		args = append(args, *filter.BossID)
	}
	if filter.IsShame != nil {
		where = append(where, "is_shame = ?")
		args = append(args, *filter.IsShame)
	}
	if filter.PlayerClass != nil {
		where = append(where, "EXISTS (SELECT 1 FROM run_members rm WHERE rm.run_id = runs.id AND rm.class = ?)")
		args = append(args, *filter.PlayerClass)
	}
	if filter.ExcludeP2W {
		where = append(where, "is_p2w = 0")
	}
	args = append(args, limit)

	query := `SELECT` + runColumns + ` FROM runs WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY id DESC LIMIT ?`
	return s.queryRuns(ctx, query, args)
}

// ListTop returns the highest party-DPS runs matching the filter.
func (s *SQLiteStore) ListTop(ctx context.Context, filter TopFilter, limit int) ([]Run, error) {
	where := []string{
		"region = ?", "zone_id = ?", "boss_id = ?",
		"EXISTS (SELECT 1 FROM run_members rm WHERE rm.run_id = runs.id AND rm.class = ?)",
	}
	args := []any{filter.Region, filter.ZoneID, filter.BossID, filter.PlayerClass}
	if filter.ExcludeP2W {
		where = append(where, "is_p2w = 0")
	}
	args = append(args, limit)

	query := `SELECT` + runColumns + ` FROM runs WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY party_dps_num DESC, id ASC LIMIT ?`
	return s.queryRuns(ctx, query, args)
}

func (s *SQLiteStore) queryRuns(ctx context.Context, query string, args []any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	var internalIDs []int64
	for rows.Next() {
		run, internalID, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
		internalIDs = append(internalIDs, internalID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachMembers(ctx, runs, internalIDs); err != nil {
		return nil, err
	}
	return runs, nil
}

// attachMembers loads the member rows for the given runs and joins each one
// with its current player identity.
func (s *SQLiteStore) attachMembers(ctx context.Context, runs []Run, internalIDs []int64) error {
	if len(internalIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(internalIDs))
	args := make([]any, len(internalIDs))
	for i, id := range internalIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			rm.run_id, rm.player_ref, rm.class, rm.name, rm.player_id,
			rm.server_id, rm.server_name, rm.aggro, rm.crit_rate,
			rm.death_duration, rm.deaths, rm.dps, rm.total_damage,
			rm.damage_pct, rm.role_type, rm.buff_detail, rm.skill_log,
			p.class, p.name, p.player_id, p.server_id, p.server_name
		FROM run_members rm
		JOIN players p ON p.id = rm.player_ref
		WHERE rm.run_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY rm.run_id, rm.position
	`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	membersByRun := make(map[int64][]RunMember)
	for rows.Next() {
		var runRef int64
		var member RunMember
		var identity PlayerIdentity
		var buffs, skills string
		if err := rows.Scan(
			&runRef, &member.PlayerRef, &member.PlayerClass, &member.PlayerName,
			&member.PlayerID, &member.PlayerServerID, &member.PlayerServer,
			&member.Aggro, &member.PlayerAverageCritRate,
			&member.PlayerDeathDuration, &member.PlayerDeaths, &member.PlayerDps,
			&member.PlayerTotalDamage, &member.PlayerTotalDamagePercentage,
			&member.RoleType, &buffs, &skills,
			&identity.PlayerClass, &identity.PlayerName, &identity.PlayerID,
			&identity.PlayerServerID, &identity.PlayerServer,
		); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(buffs), &member.BuffDetail); err != nil {
			return fmt.Errorf("decoding buff detail: %w", err)
		}
		if err := json.Unmarshal([]byte(skills), &member.SkillLog); err != nil {
			return fmt.Errorf("decoding skill log: %w", err)
		}
		identity.Ref = member.PlayerRef
		member.Identity = &identity
		membersByRun[runRef] = append(membersByRun[runRef], member)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range runs {
		runs[i].Members = membersByRun[internalIDs[i]]
	}
	return nil
}

// interface conformance
var (
	_ PlayerStore = (*SQLiteStore)(nil)
	_ RunStore    = (*SQLiteStore)(nil)
	_ TokenStore  = (*SQLiteStore)(nil)
)
