package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const (
	SectionICANN   = "icann"
	SectionPrivate = "private"
)

// StoredRule is one persisted ruleset line.
type StoredRule struct {
	Line    string
	Key     string
	Kind    string
	Source  string
	Section string
}

type RuleDB struct {
	db *sql.DB

	// IncludePrivate controls whether LoadRuleText returns rules from the
	// private section of the list.
	IncludePrivate bool
}

func (d *RuleDB) InitDB(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create directory for db: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("could not open db: %w", err)
	}

	// One connection: keeps ":memory:" databases shared and serializes
	// writers, which SQLite does anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("could not connect to db (check permissions): %w", err)
	}

	d.db = db

	if _, err := d.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	q := `
	CREATE TABLE IF NOT EXISTS rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		line TEXT NOT NULL,
		key TEXT NOT NULL,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		section TEXT NOT NULL DEFAULT 'icann',
		updated_at INTEGER,
		seq INTEGER NOT NULL DEFAULT 0,
		UNIQUE(source, line)
	);

	CREATE INDEX IF NOT EXISTS idx_key ON rules(key);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	if _, err = d.db.Exec(q); err != nil {
		return fmt.Errorf("could not init tables: %w", err)
	}

	// Databases created before rules carried their list position.
	var hasSeq int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('rules') WHERE name = 'seq'").Scan(&hasSeq); err != nil {
		return fmt.Errorf("could not inspect rules table: %w", err)
	}
	if hasSeq == 0 {
		if _, err := d.db.Exec("ALTER TABLE rules ADD COLUMN seq INTEGER NOT NULL DEFAULT 0"); err != nil {
			return fmt.Errorf("could not migrate rules table: %w", err)
		}
	}

	return nil
}

func (d *RuleDB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *RuleDB) GetETag(source string) string {
	var val string
	_ = d.db.QueryRow("SELECT value FROM metadata WHERE key = ?", source+"_etag").Scan(&val)
	return val
}

func (d *RuleDB) UpdateETag(source, etag string) error {
	_, err := d.db.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", source+"_etag", etag)
	return err
}

// StreamSync imports one source's rules with mark-and-sweep: every streamed
// rule is stamped with this batch's time and its position in the list, then
// the source's rules that were not stamped are deleted. The stream is drained
// even on error.
//
// If importErr is non-nil, StreamSync waits for one value on it after the
// stream closes; a non-nil error rolls the whole batch back so a failed
// download never replaces the stored rules.
func (d *RuleDB) StreamSync(dataStream <-chan StoredRule, source string, importErr <-chan error) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		drain(dataStream)
		return 0, err
	}
	defer tx.Rollback()

	importTime := time.Now().UnixNano()

	query := `
	INSERT INTO rules (line, key, kind, source, section, updated_at, seq)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(source, line) DO UPDATE SET
		updated_at = excluded.updated_at,
		section = excluded.section,
		seq = excluded.seq;
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		drain(dataStream)
		return 0, err
	}
	defer stmt.Close()

	count, seq := 0, 0

	for item := range dataStream {
		seq++
		section := item.Section
		if section == "" {
			section = SectionICANN
		}
		if _, err := stmt.Exec(item.Line, item.Key, item.Kind, source, section, importTime, seq); err != nil {
			log.Warn().Err(err).Str("line", item.Line).Msg("failed to insert rule")
			continue
		}
		count++
	}

	if importErr != nil {
		if err := <-importErr; err != nil {
			log.Warn().Err(err).Str("source", source).Msg("import failed, keeping stored rules")
			return 0, err
		}
	}

	pruneQuery := `DELETE FROM rules WHERE source = ? AND updated_at != ?`
	if _, err := tx.Exec(pruneQuery, source, importTime); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.Debug().Str("source", source).Int("count", count).Msg("streamed rules into db")
	return count, nil
}

func drain(ch <-chan StoredRule) {
	for range ch {
	}
}

// LoadRuleText rebuilds list text from the stored rules, honouring
// IncludePrivate. Sources appear in the order they were last imported, each
// in its own list order, so a later import wins on duplicate keys.
func (d *RuleDB) LoadRuleText() (string, error) {
	return d.LoadRuleTextFor(d.IncludePrivate)
}

func (d *RuleDB) LoadRuleTextFor(includePrivate bool) (string, error) {
	query := "SELECT line FROM rules ORDER BY updated_at, seq"
	args := []any{}
	if !includePrivate {
		query = "SELECT line FROM rules WHERE section = ? ORDER BY updated_at, seq"
		args = append(args, SectionICANN)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", err
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), rows.Err()
}

// GetRule returns the rule stored under key that LoadRuleText lets win:
// the last one in load order, within the sections IncludePrivate allows.
func (d *RuleDB) GetRule(key string) (*StoredRule, error) {
	var r StoredRule
	query := "SELECT line, key, kind, source, section FROM rules WHERE key = ? ORDER BY updated_at DESC, seq DESC LIMIT 1"
	args := []any{key}
	if !d.IncludePrivate {
		query = "SELECT line, key, kind, source, section FROM rules WHERE key = ? AND section = ? ORDER BY updated_at DESC, seq DESC LIMIT 1"
		args = append(args, SectionICANN)
	}
	err := d.db.QueryRow(query, args...).Scan(&r.Line, &r.Key, &r.Kind, &r.Source, &r.Section)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *RuleDB) Count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM rules").Scan(&n)
	return n, err
}
