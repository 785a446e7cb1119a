package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/okian/touchline/internal/domain/model"
)

// Dialect describes the differences between the supported SQL backends.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// Schema is the list of statements creating the tables.
	Schema []string
	// numbered placeholders ($1, $2) instead of "?".
	numbered bool
}

// SQLite is the modernc.org/sqlite dialect.
var SQLite = Dialect{ //nolint:gochecknoglobals // dialect descriptor
	Driver: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS people (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			nationality TEXT NOT NULL DEFAULT '',
			roles TEXT NOT NULL DEFAULT '',
			retired INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS venues (
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			federation_code TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS stints (
			person_id INTEGER NOT NULL REFERENCES people(id),
			venue_id INTEGER NOT NULL REFERENCES venues(id),
			role TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT,
			UNIQUE (person_id, venue_id, start_date)
		)`,
		`CREATE INDEX IF NOT EXISTS stints_person_idx ON stints (person_id)`,
		`CREATE INDEX IF NOT EXISTS stints_venue_idx ON stints (venue_id)`,
	},
}

// Postgres is the lib/pq dialect.
var Postgres = Dialect{ //nolint:gochecknoglobals // dialect descriptor
	Driver:   "postgres",
	numbered: true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS people (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			nationality TEXT NOT NULL DEFAULT '',
			roles TEXT NOT NULL DEFAULT '',
			retired BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS venues (
			id BIGINT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			federation_code TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS stints (
			person_id BIGINT NOT NULL REFERENCES people(id),
			venue_id BIGINT NOT NULL REFERENCES venues(id),
			role TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT,
			UNIQUE (person_id, venue_id, start_date)
		)`,
		`CREATE INDEX IF NOT EXISTS stints_person_idx ON stints (person_id)`,
		`CREATE INDEX IF NOT EXISTS stints_venue_idx ON stints (venue_id)`,
	},
}

// DialectFor returns the dialect registered under a store driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case SQLite.Driver:
		return SQLite, nil
	case Postgres.Driver:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unknown sql driver %q", driver)
	}
}

// rebind rewrites "?" placeholders for dialects with numbered parameters.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Queries shared by both dialects, written with "?" placeholders.
const (
	qPerson = `SELECT id, name, full_name, nationality, roles, retired FROM people WHERE id = ?`
	qVenue  = `SELECT id, kind, name, country, federation_code FROM venues WHERE id = ?`

	stintColumns = `SELECT s.person_id, s.venue_id, v.kind, s.role, s.start_date, s.end_date
		FROM stints s JOIN venues v ON v.id = s.venue_id`
	qStintsForPerson = stintColumns + ` WHERE s.person_id = ?
		ORDER BY s.start_date, s.venue_id, s.role, s.end_date IS NULL, s.end_date`
	qStintsForVenue = stintColumns + ` WHERE s.venue_id = ?
		ORDER BY s.person_id, s.start_date, s.role`

	qSearchPeople = `SELECT id, name, full_name, nationality, roles, retired FROM people
		WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\'
		ORDER BY LOWER(name), id LIMIT ?`

	qStats = `SELECT
		(SELECT COUNT(*) FROM people),
		(SELECT COUNT(*) FROM people WHERE roles LIKE '%manager%'),
		(SELECT COUNT(*) FROM venues WHERE kind = 'club'),
		(SELECT COUNT(*) FROM venues WHERE kind = 'national_team'),
		(SELECT COUNT(*) FROM stints)`

	qInsertPerson = `INSERT INTO people (id, name, full_name, nationality, roles, retired) VALUES (?, ?, ?, ?, ?, ?)`
	qInsertVenue  = `INSERT INTO venues (id, kind, name, country, federation_code) VALUES (?, ?, ?, ?, ?)`
	qInsertStint  = `INSERT INTO stints (person_id, venue_id, role, start_date, end_date) VALUES (?, ?, ?, ?, ?)`
)

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens dsn with the dialect's driver and verifies the connection.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}
	if dialect.Driver == SQLite.Driver {
		// SQLite allows one writer; a single connection also keeps
		// ":memory:" databases shared across queries.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrUnavailable, dialect.Driver, err)
	}
	return NewSQLStore(db, dialect), nil
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", s.classify(err))
		}
	}
	return nil
}

// Import replaces the store contents with ds in one transaction. The dataset
// is validated with the same rules as the memory store first.
func (s *SQLStore) Import(ctx context.Context, ds Dataset) (err error) {
	if _, err := buildSnapshot(ds); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import: %w", s.classify(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{`DELETE FROM stints`, `DELETE FROM venues`, `DELETE FROM people`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("import: clear: %w", err)
		}
	}
	for _, p := range ds.People {
		if _, err = tx.ExecContext(ctx, s.dialect.rebind(qInsertPerson),
			p.ID, p.Name, p.FullName, p.Nationality, joinRoles(p.Roles), p.Retired); err != nil {
			return fmt.Errorf("import: person %d: %w", p.ID, err)
		}
	}
	kinds := make(map[int64]model.VenueKind, len(ds.Venues))
	for _, v := range ds.Venues {
		kinds[v.ID] = v.Kind
		if _, err = tx.ExecContext(ctx, s.dialect.rebind(qInsertVenue),
			v.ID, string(v.Kind), v.Name, v.Country, v.FederationCode); err != nil {
			return fmt.Errorf("import: venue %d: %w", v.ID, err)
		}
	}
	for _, st := range ds.Stints {
		var end any
		if d, ok := st.Interval.End.Date(); ok {
			end = d.Format(model.DateLayout)
		}
		if _, err = tx.ExecContext(ctx, s.dialect.rebind(qInsertStint),
			st.PersonID, st.VenueID, string(st.Role), st.Interval.Start.Format(model.DateLayout), end); err != nil {
			return fmt.Errorf("import: stint person %d venue %d: %w", st.PersonID, st.VenueID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("import: commit: %w", s.classify(err))
	}
	return nil
}

// Person implements Store.
func (s *SQLStore) Person(ctx context.Context, id int64) (model.Person, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(qPerson), id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Person{}, fmt.Errorf("person %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("person %d: %w", id, s.classify(err))
	}
	return p, nil
}

// Venue implements Store.
func (s *SQLStore) Venue(ctx context.Context, id int64) (model.Venue, error) {
	var (
		v    model.Venue
		kind string
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(qVenue), id).
		Scan(&v.ID, &kind, &v.Name, &v.Country, &v.FederationCode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Venue{}, fmt.Errorf("venue %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Venue{}, fmt.Errorf("venue %d: %w", id, s.classify(err))
	}
	v.Kind = model.VenueKind(kind)
	return v, nil
}

// StintsForPerson implements Store.
func (s *SQLStore) StintsForPerson(ctx context.Context, personID int64) ([]model.Stint, error) {
	return s.stints(ctx, qStintsForPerson, personID)
}

// StintsForVenue implements Store.
func (s *SQLStore) StintsForVenue(ctx context.Context, venueID int64) ([]model.Stint, error) {
	return s.stints(ctx, qStintsForVenue, venueID)
}

func (s *SQLStore) stints(ctx context.Context, query string, id int64) ([]model.Stint, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), id)
	if err != nil {
		return nil, fmt.Errorf("stints %d: %w", id, s.classify(err))
	}
	defer func() { _ = rows.Close() }()

	var out []model.Stint
	for rows.Next() {
		var (
			st         model.Stint
			kind, role string
			start      string
			end        sql.NullString
		)
		if err := rows.Scan(&st.PersonID, &st.VenueID, &kind, &role, &start, &end); err != nil {
			return nil, fmt.Errorf("stints %d: scan: %w", id, err)
		}
		st.VenueKind = model.VenueKind(kind)
		st.Role = model.Role(role)
		if st.Interval.Start, err = model.ParseDay(start); err != nil {
			return nil, fmt.Errorf("stints %d: %w", id, err)
		}
		st.Interval.End = model.Open()
		if end.Valid {
			d, err := model.ParseDay(end.String)
			if err != nil {
				return nil, fmt.Errorf("stints %d: %w", id, err)
			}
			st.Interval.End = model.Bounded(d)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stints %d: %w", id, s.classify(err))
	}
	return out, nil
}

// SearchPeople implements Store.
func (s *SQLStore) SearchPeople(ctx context.Context, query string, limit int) ([]model.Person, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < MinQueryLength {
		return []model.Person{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	pattern := "%" + escapeLike(q) + "%"

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(qSearchPeople), pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search people: %w", s.classify(err))
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Person, 0, limit)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("search people: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search people: %w", s.classify(err))
	}
	return out, nil
}

// Stats implements Store.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, qStats).Scan(&st.People, &st.Managers, &st.Clubs, &st.NationalTeams, &st.Stints)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", s.classify(err))
	}
	return st, nil
}

// classify marks connection-level failures as ErrUnavailable. Other errors
// (bad data, constraint violations) are returned as is.
func (s *SQLStore) classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return err
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (model.Person, error) {
	var (
		p     model.Person
		roles string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.FullName, &p.Nationality, &roles, &p.Retired); err != nil {
		return model.Person{}, err
	}
	p.Roles = splitRoles(roles)
	return p, nil
}

func joinRoles(roles []model.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func splitRoles(s string) []model.Role {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]model.Role, len(parts))
	for i, p := range parts {
		roles[i] = model.Role(p)
	}
	return roles
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
