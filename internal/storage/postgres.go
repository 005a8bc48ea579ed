package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/dagma-cali/reportes-360/internal/models"
	"github.com/dagma-cali/reportes-360/internal/reports"
)

// PostgresStorage persists reports, tracking state and the parks catalog.
// It implements reports.ReportStore and tracking.Store.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(host, port, user, password, dbName, sslMode string) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbName, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	storage := &PostgresStorage{db: db}
	if err := storage.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize db schema: %w", err)
	}

	return storage, nil
}

// Init creates necessary tables
func (s *PostgresStorage) Init() error {
	query := `
	CREATE TABLE IF NOT EXISTS reports (
		id VARCHAR(36) PRIMARY KEY,
		intervention_type VARCHAR(100) NOT NULL,
		description TEXT,
		address TEXT NOT NULL,
		observations TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		photo_urls TEXT[],
		photo_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_reports_intervention_type ON reports(intervention_type);

	CREATE TABLE IF NOT EXISTS parks (
		id VARCHAR(36) PRIMARY KEY,
		name TEXT NOT NULL,
		neighborhood TEXT,
		comuna VARCHAR(10),
		area_m2 DOUBLE PRECISION,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS report_tracking (
		report_id VARCHAR(36) PRIMARY KEY REFERENCES reports(id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL,
		priority VARCHAR(10) NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		manager TEXT,
		management_center TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS report_progress (
		id VARCHAR(36) PRIMARY KEY,
		report_id VARCHAR(36) NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		author TEXT NOT NULL,
		description TEXT NOT NULL,
		previous_status VARCHAR(20) NOT NULL,
		new_status VARCHAR(20) NOT NULL,
		progress INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_report_progress_report_id ON report_progress(report_id);

	CREATE TABLE IF NOT EXISTS progress_evidence (
		id VARCHAR(36) PRIMARY KEY,
		progress_id VARCHAR(36) NOT NULL REFERENCES report_progress(id) ON DELETE CASCADE,
		kind VARCHAR(20) NOT NULL,
		url TEXT NOT NULL,
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_progress_evidence_progress_id ON progress_evidence(progress_id);`

	_, err := s.db.Exec(query)
	return err
}

// SaveReport inserts or updates a report document.
func (s *PostgresStorage) SaveReport(ctx context.Context, r *models.Report) error {
	query := `
	INSERT INTO reports (
		id, intervention_type, description, address, observations,
		latitude, longitude, photo_urls, photo_count, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	) ON CONFLICT (id) DO UPDATE SET
		intervention_type = EXCLUDED.intervention_type,
		description = EXCLUDED.description,
		address = EXCLUDED.address,
		observations = EXCLUDED.observations,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		photo_urls = EXCLUDED.photo_urls,
		photo_count = EXCLUDED.photo_count
	;`

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.InterventionType, r.Description, r.Address, r.Observations,
		r.Latitude, r.Longitude, pq.Array(r.PhotoURLs), r.PhotoCount, r.CreatedAt,
	)
	if err != nil {
		log.Error().Err(err).Str("id", r.ID).Msg("Failed to save report")
		return err
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *PostgresStorage) GetReport(ctx context.Context, id string) (*models.Report, bool) {
	query := reportSelect + ` WHERE id = $1`

	r, err := scanReport(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to get report")
		return nil, false
	}
	return r, true
}

// DeleteReport removes a report and, through the schema's cascades, its
// tracking rows. Returns false when no row matched.
func (s *PostgresStorage) DeleteReport(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindReports implements reports.ReportStore: equality on intervention type,
// [from, to) range on created_at, descending order, optional limit.
func (s *PostgresStorage) FindReports(ctx context.Context, q reports.ReportQuery) ([]*models.Report, error) {
	var (
		conds []string
		args  []interface{}
	)
	if q.CreatedFrom != nil {
		args = append(args, *q.CreatedFrom)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if q.CreatedTo != nil {
		args = append(args, *q.CreatedTo)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if q.InterventionType != "" {
		args = append(args, q.InterventionType)
		conds = append(conds, fmt.Sprintf("intervention_type = $%d", len(args)))
	}

	query := reportSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const reportSelect = `
	SELECT id, intervention_type, description, address, observations,
		   latitude, longitude, photo_urls, photo_count, created_at
	FROM reports`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	r := &models.Report{}
	var photoURLs pq.StringArray
	err := row.Scan(
		&r.ID, &r.InterventionType, &r.Description, &r.Address, &r.Observations,
		&r.Latitude, &r.Longitude, &photoURLs, &r.PhotoCount, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.PhotoURLs = photoURLs
	return r, nil
}

// ListParks returns the parks catalog for the capture client.
func (s *PostgresStorage) ListParks(ctx context.Context) ([]*models.Park, error) {
	query := `
	SELECT id, name, neighborhood, comuna, area_m2, latitude, longitude, created_at
	FROM parks
	ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parks []*models.Park
	for rows.Next() {
		p := &models.Park{}
		err := rows.Scan(
			&p.ID, &p.Name, &p.Neighborhood, &p.Comuna, &p.AreaM2,
			&p.Latitude, &p.Longitude, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		parks = append(parks, p)
	}
	return parks, rows.Err()
}

// ReportExists implements tracking.Store.
func (s *PostgresStorage) ReportExists(ctx context.Context, reportID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM reports WHERE id = $1`, reportID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetTracking implements tracking.Store.
func (s *PostgresStorage) GetTracking(ctx context.Context, reportID string) (*models.TrackingInfo, bool, error) {
	query := `
	SELECT report_id, status, priority, progress, manager, management_center, created_at, updated_at
	FROM report_tracking WHERE report_id = $1`

	info := &models.TrackingInfo{}
	var manager, center sql.NullString
	err := s.db.QueryRowContext(ctx, query, reportID).Scan(
		&info.ReportID, &info.Status, &info.Priority, &info.Progress,
		&manager, &center, &info.CreatedAt, &info.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	info.Manager = manager.String
	info.ManagementCenter = center.String
	return info, true, nil
}

// SaveTracking implements tracking.Store.
func (s *PostgresStorage) SaveTracking(ctx context.Context, info *models.TrackingInfo) error {
	query := `
	INSERT INTO report_tracking (
		report_id, status, priority, progress, manager, management_center, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8
	) ON CONFLICT (report_id) DO UPDATE SET
		status = EXCLUDED.status,
		priority = EXCLUDED.priority,
		progress = EXCLUDED.progress,
		manager = EXCLUDED.manager,
		management_center = EXCLUDED.management_center,
		updated_at = EXCLUDED.updated_at
	;`

	_, err := s.db.ExecContext(ctx, query,
		info.ReportID, info.Status, info.Priority, info.Progress,
		nullable(info.Manager), nullable(info.ManagementCenter),
		info.CreatedAt, info.UpdatedAt,
	)
	if err != nil {
		log.Error().Err(err).Str("report_id", info.ReportID).Msg("Failed to save tracking")
	}
	return err
}

// AppendProgress implements tracking.Store. The entry and its evidences go
// in one transaction.
func (s *PostgresStorage) AppendProgress(ctx context.Context, entry *models.ProgressEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO report_progress (id, report_id, author, description, previous_status, new_status, progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.ReportID, entry.Author, entry.Description,
		entry.PreviousStatus, entry.NewStatus, entry.Progress, entry.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, ev := range entry.Evidences {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO progress_evidence (id, progress_id, kind, url, description)
			VALUES ($1, $2, $3, $4, $5)`,
			ev.ID, entry.ID, ev.Kind, ev.URL, nullable(ev.Description),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListProgress implements tracking.Store. Entries come back newest first with
// their evidences attached.
func (s *PostgresStorage) ListProgress(ctx context.Context, reportID string) ([]*models.ProgressEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, author, description, previous_status, new_status, progress, created_at
		FROM report_progress
		WHERE report_id = $1
		ORDER BY created_at DESC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ProgressEntry
	byID := make(map[string]*models.ProgressEntry)
	for rows.Next() {
		e := &models.ProgressEntry{Evidences: []models.Evidence{}}
		err := rows.Scan(
			&e.ID, &e.ReportID, &e.Author, &e.Description,
			&e.PreviousStatus, &e.NewStatus, &e.Progress, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	evRows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.progress_id, e.kind, e.url, e.description
		FROM progress_evidence e
		JOIN report_progress p ON p.id = e.progress_id
		WHERE p.report_id = $1`, reportID)
	if err != nil {
		return nil, err
	}
	defer evRows.Close()

	for evRows.Next() {
		var ev models.Evidence
		var progressID string
		var desc sql.NullString
		if err := evRows.Scan(&ev.ID, &progressID, &ev.Kind, &ev.URL, &desc); err != nil {
			return nil, err
		}
		ev.Description = desc.String
		if e, ok := byID[progressID]; ok {
			e.Evidences = append(e.Evidences, ev)
		}
	}
	return entries, evRows.Err()
}

// ListTracking implements tracking.Store.
func (s *PostgresStorage) ListTracking(ctx context.Context) ([]*models.TrackingInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_id, status, priority, progress, manager, management_center, created_at, updated_at
		FROM report_tracking`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []*models.TrackingInfo
	for rows.Next() {
		info := &models.TrackingInfo{}
		var manager, center sql.NullString
		err := rows.Scan(
			&info.ReportID, &info.Status, &info.Priority, &info.Progress,
			&manager, &center, &info.CreatedAt, &info.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		info.Manager = manager.String
		info.ManagementCenter = center.String
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// HealthCheck verifies the database connection.
func (s *PostgresStorage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
