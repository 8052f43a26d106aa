package infra

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
)

const profileDBName = "profiles.db"

// EncryptedProfileStore implements domain.ProfileStore using a SQLCipher
// encrypted SQLite database. Profiles, whitelist tags, and session history
// live here; the background process never opens this database.
type EncryptedProfileStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedProfileStore opens (or creates) the encrypted profile database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedProfileStore(dataDir string, key []byte) (*EncryptedProfileStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, profileDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &EncryptedProfileStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *EncryptedProfileStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		selection BLOB,
		strategy_id TEXT NOT NULL DEFAULT '',
		strategy_data BLOB,
		schedule TEXT,
		unblock_token_id TEXT NOT NULL DEFAULT '',
		unblock_qr_id TEXT NOT NULL DEFAULT '',
		strict_mode INTEGER NOT NULL DEFAULT 0,
		allow_mode INTEGER NOT NULL DEFAULT 0,
		breaks_enabled INTEGER NOT NULL DEFAULT 0,
		block_web_domains INTEGER NOT NULL DEFAULT 0,
		disable_background_stops INTEGER NOT NULL DEFAULT 0,
		break_minutes INTEGER NOT NULL DEFAULT 15,
		domains TEXT,
		reminder_seconds INTEGER NOT NULL DEFAULT 0,
		reminder_message TEXT NOT NULL DEFAULT '',
		ord INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS whitelist_tags (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL,
		tag_url TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		added_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		break_start INTEGER,
		break_end INTEGER,
		force_started INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_profile ON sessions(profile_id, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_sessions_open ON sessions(end_time) WHERE end_time IS NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- profiles ---

// CreateProfile persists a new profile and its whitelist tags.
func (s *EncryptedProfileStore) CreateProfile(p *domain.Profile) error {
	return s.writeProfile(p, true)
}

// UpdateProfile persists changes to an existing profile.
func (s *EncryptedProfileStore) UpdateProfile(p *domain.Profile) error {
	return s.writeProfile(p, false)
}

func (s *EncryptedProfileStore) writeProfile(p *domain.Profile, create bool) error {
	scheduleJSON, err := marshalNullable(p.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	domainsJSON, err := marshalNullable(p.Domains)
	if err != nil {
		return fmt.Errorf("failed to encode domains: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO profiles
		(id, name, selection, strategy_id, strategy_data, schedule,
		 unblock_token_id, unblock_qr_id,
		 strict_mode, allow_mode, breaks_enabled, block_web_domains, disable_background_stops,
		 break_minutes, domains, reminder_seconds, reminder_message,
		 ord, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, []byte(p.Selection), p.StrategyID, p.StrategyData, scheduleJSON,
		p.UnblockTokenID, p.UnblockQRCodeID,
		boolInt(p.EnableStrictMode), boolInt(p.EnableAllowMode), boolInt(p.EnableBreaks),
		boolInt(p.BlockWebDomains), boolInt(p.DisableBackgroundStops),
		p.BreakMinutes, domainsJSON, p.ReminderSeconds, p.ReminderMessage,
		p.Order, p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return err
	}

	// Whitelist is rewritten wholesale; it is capped at 15 entries.
	if !create {
		if _, err := tx.Exec(`DELETE FROM whitelist_tags WHERE profile_id = ?`, p.ID.String()); err != nil {
			return err
		}
	}
	for i := range p.Whitelist {
		t := &p.Whitelist[i]
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		_, err := tx.Exec(`
			INSERT INTO whitelist_tags (id, profile_id, tag_id, tag_url, name, added_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID.String(), p.ID.String(), t.TagID, t.TagURL, t.Name, t.AddedAt.Unix(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetProfile returns the profile with whitelist loaded.
func (s *EncryptedProfileStore) GetProfile(id uuid.UUID) (*domain.Profile, error) {
	row := s.db.QueryRow(profileSelect+` WHERE id = ?`, id.String())
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadWhitelist(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles returns all profiles ordered by order index, then most
// recently created.
func (s *EncryptedProfileStore) ListProfiles() ([]*domain.Profile, error) {
	rows, err := s.db.Query(profileSelect + ` ORDER BY ord ASC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if err := s.loadWhitelist(p); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// DeleteProfile removes the profile, its whitelist, and its sessions.
func (s *EncryptedProfileStore) DeleteProfile(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM whitelist_tags WHERE profile_id = ?`, id.String()); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE profile_id = ?`, id.String()); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM profiles WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProfileNotFound
	}
	return tx.Commit()
}

// NextOrder returns one past the highest order index.
func (s *EncryptedProfileStore) NextOrder() (int, error) {
	var next int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(ord) + 1, 0) FROM profiles`).Scan(&next)
	return next, err
}

// ReorderProfiles rewrites order indices to match the given sequence.
func (s *EncryptedProfileStore) ReorderProfiles(ids []uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE profiles SET ord = ? WHERE id = ?`, i, id.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- sessions ---

// InsertSession persists a new session record.
func (s *EncryptedProfileStore) InsertSession(sess *domain.Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, profile_id, tag, start_time, end_time, break_start, break_end, force_started)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ProfileID.String(), sess.Tag,
		sess.StartTime.Unix(), nullUnix(sess.EndTime),
		nullUnix(sess.BreakStart), nullUnix(sess.BreakEnd),
		boolInt(sess.ForceStarted),
	)
	return err
}

// UpdateSession persists end time, pause window, and flags.
func (s *EncryptedProfileStore) UpdateSession(sess *domain.Session) error {
	res, err := s.db.Exec(`
		UPDATE sessions SET end_time = ?, break_start = ?, break_end = ?, force_started = ?
		WHERE id = ?`,
		nullUnix(sess.EndTime), nullUnix(sess.BreakStart), nullUnix(sess.BreakEnd),
		boolInt(sess.ForceStarted), sess.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// OpenSessions returns all sessions with no end time, most recent first.
func (s *EncryptedProfileStore) OpenSessions() ([]*domain.Session, error) {
	rows, err := s.db.Query(sessionSelect + ` WHERE end_time IS NULL ORDER BY start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// RecentSessions returns a profile's sessions, most recent first.
func (s *EncryptedProfileStore) RecentSessions(profileID uuid.UUID, limit int) ([]*domain.Session, error) {
	rows, err := s.db.Query(sessionSelect+` WHERE profile_id = ? ORDER BY start_time DESC LIMIT ?`,
		profileID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// DeleteSession removes a session from history.
func (s *EncryptedProfileStore) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Close releases the database connection.
func (s *EncryptedProfileStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DBPath returns the database file path (for status output and tests).
func (s *EncryptedProfileStore) DBPath() string {
	return s.dbPath
}

// --- scanning helpers ---

const profileSelect = `
	SELECT id, name, selection, strategy_id, strategy_data, schedule,
	       unblock_token_id, unblock_qr_id,
	       strict_mode, allow_mode, breaks_enabled, block_web_domains, disable_background_stops,
	       break_minutes, domains, reminder_seconds, reminder_message,
	       ord, created_at, updated_at
	FROM profiles`

const sessionSelect = `
	SELECT id, profile_id, tag, start_time, end_time, break_start, break_end, force_started
	FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		p                              domain.Profile
		idStr                          string
		scheduleJSON, domainsJSON      sql.NullString
		strict, allow, breaks          int
		blockDomains, disableBG        int
		createdAt, updatedAt           int64
	)
	err := row.Scan(&idStr, &p.Name, (*[]byte)(&p.Selection), &p.StrategyID, &p.StrategyData,
		&scheduleJSON, &p.UnblockTokenID, &p.UnblockQRCodeID,
		&strict, &allow, &breaks, &blockDomains, &disableBG,
		&p.BreakMinutes, &domainsJSON, &p.ReminderSeconds, &p.ReminderMessage,
		&p.Order, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt profile id %q: %w", idStr, err)
	}
	p.EnableStrictMode = strict != 0
	p.EnableAllowMode = allow != 0
	p.EnableBreaks = breaks != 0
	p.BlockWebDomains = blockDomains != 0
	p.DisableBackgroundStops = disableBG != 0
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	if scheduleJSON.Valid && scheduleJSON.String != "" {
		var sched domain.Schedule
		if err := json.Unmarshal([]byte(scheduleJSON.String), &sched); err != nil {
			return nil, fmt.Errorf("corrupt schedule for profile %s: %w", idStr, err)
		}
		p.Schedule = &sched
	}
	if domainsJSON.Valid && domainsJSON.String != "" {
		if err := json.Unmarshal([]byte(domainsJSON.String), &p.Domains); err != nil {
			return nil, fmt.Errorf("corrupt domains for profile %s: %w", idStr, err)
		}
	}
	return &p, nil
}

func (s *EncryptedProfileStore) loadWhitelist(p *domain.Profile) error {
	rows, err := s.db.Query(`
		SELECT id, tag_id, tag_url, name, added_at
		FROM whitelist_tags WHERE profile_id = ? ORDER BY added_at ASC`, p.ID.String())
	if err != nil {
		return err
	}
	defer rows.Close()

	p.Whitelist = nil
	for rows.Next() {
		var (
			t       domain.WhitelistTag
			idStr   string
			addedAt int64
		)
		if err := rows.Scan(&idStr, &t.TagID, &t.TagURL, &t.Name, &addedAt); err != nil {
			return err
		}
		t.ID, err = uuid.Parse(idStr)
		if err != nil {
			return fmt.Errorf("corrupt whitelist tag id %q: %w", idStr, err)
		}
		t.AddedAt = time.Unix(addedAt, 0)
		p.Whitelist = append(p.Whitelist, t)
	}
	return rows.Err()
}

func scanSessions(rows *sql.Rows) ([]*domain.Session, error) {
	var sessions []*domain.Session
	for rows.Next() {
		var (
			sess                     domain.Session
			profileIDStr             string
			startTime                int64
			endTime, brStart, brEnd  sql.NullInt64
			forceStarted             int
		)
		err := rows.Scan(&sess.ID, &profileIDStr, &sess.Tag, &startTime,
			&endTime, &brStart, &brEnd, &forceStarted)
		if err != nil {
			return nil, err
		}
		sess.ProfileID, err = uuid.Parse(profileIDStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt session profile id %q: %w", profileIDStr, err)
		}
		sess.StartTime = time.Unix(startTime, 0)
		sess.EndTime = unixPtr(endTime)
		sess.BreakStart = unixPtr(brStart)
		sess.BreakEnd = unixPtr(brEnd)
		sess.ForceStarted = forceStarted != 0
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

func marshalNullable(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case *domain.Schedule:
		if val == nil {
			return sql.NullString{}, nil
		}
	case []string:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

// Ensure EncryptedProfileStore implements domain.ProfileStore.
var _ domain.ProfileStore = (*EncryptedProfileStore)(nil)
