package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/earthguard/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// An in-memory database exists per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS earthquake_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL DEFAULT '',
			external_id TEXT,
			magnitude REAL NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			depth REAL NOT NULL,
			occurred_at DATETIME,
			timestamp DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS mesh_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			timestamp DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS rescue_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			victim_id TEXT NOT NULL,
			status TEXT NOT NULL,
			needs TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			timestamp DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_earthquake_external
			ON earthquake_events(source, external_id) WHERE external_id IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_earthquake_timestamp ON earthquake_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_mesh_timestamp ON mesh_messages(timestamp);
		CREATE INDEX IF NOT EXISTS idx_rescue_timestamp ON rescue_reports(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) AddEarthquake(ctx context.Context, e *models.EarthquakeEvent) error {
	var externalID sql.NullString
	if e.ExternalID != "" {
		externalID = sql.NullString{String: e.ExternalID, Valid: true}
	}
	var occurredAt sql.NullTime
	if e.OccurredAt != nil {
		occurredAt = sql.NullTime{Time: e.OccurredAt.UTC(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO earthquake_events
			(source, external_id, magnitude, latitude, longitude, depth, occurred_at, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Source, externalID, e.Magnitude, e.Latitude, e.Longitude, e.Depth, occurredAt, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting earthquake: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteDB) EarthquakeExists(ctx context.Context, source, externalID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM earthquake_events WHERE source = ? AND external_id = ?)`,
		source, externalID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking earthquake existence: %w", err)
	}
	return exists, nil
}

func (s *SQLiteDB) ListEarthquakes(ctx context.Context, opts models.Filter) ([]models.EarthquakeEvent, error) {
	query, args := listQuery(`
		SELECT id, source, external_id, magnitude, latitude, longitude, depth, occurred_at, timestamp
		FROM earthquake_events`, opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing earthquakes: %w", err)
	}
	defer rows.Close()

	var events []models.EarthquakeEvent
	for rows.Next() {
		var (
			e          models.EarthquakeEvent
			externalID sql.NullString
			occurredAt sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.Source, &externalID, &e.Magnitude, &e.Latitude, &e.Longitude,
			&e.Depth, &occurredAt, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning earthquake: %w", err)
		}
		e.ExternalID = externalID.String
		if occurredAt.Valid {
			t := occurredAt.Time
			e.OccurredAt = &t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteDB) AddMeshMessage(ctx context.Context, m *models.MeshMessage) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mesh_messages (message_id, type, content, latitude, longitude, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Type, m.Content, m.Latitude, m.Longitude, m.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting mesh message: %w", err)
	}
	m.RowID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteDB) ListMeshMessages(ctx context.Context, opts models.Filter) ([]models.MeshMessage, error) {
	query, args := listQuery(`
		SELECT id, message_id, type, content, latitude, longitude, timestamp
		FROM mesh_messages`, opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing mesh messages: %w", err)
	}
	defer rows.Close()

	var messages []models.MeshMessage
	for rows.Next() {
		var m models.MeshMessage
		if err := rows.Scan(&m.RowID, &m.ID, &m.Type, &m.Content, &m.Latitude, &m.Longitude, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning mesh message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLiteDB) AddRescueReport(ctx context.Context, r *models.RescueReport) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rescue_reports (victim_id, status, needs, latitude, longitude, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.VictimID, r.Status, string(r.Needs), r.Latitude, r.Longitude, r.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting rescue report: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteDB) ListRescueReports(ctx context.Context, opts models.Filter) ([]models.RescueReport, error) {
	query, args := listQuery(`
		SELECT id, victim_id, status, needs, latitude, longitude, timestamp
		FROM rescue_reports`, opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing rescue reports: %w", err)
	}
	defer rows.Close()

	var reports []models.RescueReport
	for rows.Next() {
		var (
			r     models.RescueReport
			needs string
		)
		if err := rows.Scan(&r.ID, &r.VictimID, &r.Status, &needs, &r.Latitude, &r.Longitude, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning rescue report: %w", err)
		}
		r.Needs = []byte(needs)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// listQuery appends the shared since/order/limit clauses. Newest rows come first.
func listQuery(base string, opts models.Filter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(base)
	if opts.Since != nil {
		sb.WriteString(" WHERE timestamp >= ?")
		args = append(args, opts.Since.UTC())
	}
	sb.WriteString(" ORDER BY timestamp DESC, id DESC LIMIT ?")

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	args = append(args, limit)
	return sb.String(), args
}

var _ ReportRepository = (*SQLiteDB)(nil)
