// Package store persists extracted report bundles to SQLite. A bundle is
// written as one report row plus child rows, replaced atomically when the
// same patient and test date are saved again.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lucidhealth/cnsextract/internal/report"
)

// ErrNoPatientID rejects bundles that cannot be attributed to a patient.
var ErrNoPatientID = errors.New("bundle has no patient identifier")

// Report is one persisted report row.
type Report struct {
	ID         int64
	PatientID  string
	TestDate   string
	Age        int
	Language   string
	SourcePath string
	Diagnosis  report.Diagnosis
	CreatedAt  string
	UpdatedAt  string
}

// Store wraps the SQLite database for all report persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveBundle writes one extracted bundle. Saving a bundle with the same
// patient and test date replaces the earlier rows. Returns the report ID.
func (s *Store) SaveBundle(ctx context.Context, b *report.Bundle, sourcePath string) (int64, error) {
	if b.Patient.ID == "" {
		return 0, ErrNoPatientID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	reportID, err := upsertReport(ctx, tx, b, sourcePath)
	if err != nil {
		return 0, err
	}
	if err := clearChildren(ctx, tx, reportID); err != nil {
		return 0, err
	}
	if err := insertChildren(ctx, tx, reportID, b); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing report %d: %w", reportID, err)
	}
	return reportID, nil
}

func upsertReport(ctx context.Context, tx *sql.Tx, b *report.Bundle, sourcePath string) (int64, error) {
	var epworthTotal sql.NullInt64
	var epworthInterp sql.NullString
	if b.EpworthTotal != nil {
		epworthTotal = sql.NullInt64{Int64: int64(b.EpworthTotal.Total), Valid: true}
		epworthInterp = sql.NullString{String: b.EpworthTotal.Interpretation, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO reports (patient_id, test_date, age, language, source_path,
			inattentive_met, hyperactive_met, classification,
			epworth_total, epworth_interpretation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(patient_id, test_date) DO UPDATE SET
			age = excluded.age,
			language = excluded.language,
			source_path = excluded.source_path,
			inattentive_met = excluded.inattentive_met,
			hyperactive_met = excluded.hyperactive_met,
			classification = excluded.classification,
			epworth_total = excluded.epworth_total,
			epworth_interpretation = excluded.epworth_interpretation,
			updated_at = CURRENT_TIMESTAMP
	`, b.Patient.ID, b.Patient.TestDate, b.Patient.Age, b.Patient.Language, sourcePath,
		b.Diagnosis.InattentiveMet, b.Diagnosis.HyperactiveMet, b.Diagnosis.Classification,
		epworthTotal, epworthInterp)
	if err != nil {
		return 0, fmt.Errorf("upserting report: %w", err)
	}

	// LastInsertId is unreliable after an upsert UPDATE; look the row up.
	var id int64
	row := tx.QueryRowContext(ctx,
		"SELECT id FROM reports WHERE patient_id = ? AND test_date = ?",
		b.Patient.ID, b.Patient.TestDate)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving report id: %w", err)
	}
	return id, nil
}

func clearChildren(ctx context.Context, tx *sql.Tx, reportID int64) error {
	tables := []string{
		"domain_scores", "metrics", "asrs_responses", "criteria",
		"npq_domains", "npq_responses", "epworth_responses", "degradations",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE report_id = ?", reportID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func insertChildren(ctx context.Context, tx *sql.Tx, reportID int64, b *report.Bundle) error {
	for _, d := range b.DomainScores {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO domain_scores (report_id, domain, patient_score, standard_score, percentile, validity_index)
			VALUES (?, ?, ?, ?, ?, ?)`,
			reportID, d.Domain, d.Patient.String(), d.Standard.String(), d.Percentile.String(), d.ValidityIndex)
		if err != nil {
			return fmt.Errorf("inserting domain score %q: %w", d.Domain, err)
		}
	}

	for _, m := range b.Metrics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO metrics (report_id, test_name, metric, sub_part, raw, standard, percentile, strategy, placeholder, valid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			reportID, m.Test, m.Metric, m.SubPart,
			m.Raw.String(), m.Standard.String(), m.Percentile.String(),
			string(m.Strategy), m.Placeholder, m.Valid)
		if err != nil {
			return fmt.Errorf("inserting metric %s: %w", m.Key(), err)
		}
	}

	for _, r := range b.ASRS {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO asrs_responses (report_id, question, part, category)
			VALUES (?, ?, ?, ?)`,
			reportID, r.Question, r.Part, r.Category.String())
		if err != nil {
			return fmt.Errorf("inserting asrs response %d: %w", r.Question, err)
		}
	}

	for _, c := range b.Criteria {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO criteria (report_id, criterion_id, category, question, met)
			VALUES (?, ?, ?, ?, ?)`,
			reportID, c.ID, c.Category, c.Question, c.Met)
		if err != nil {
			return fmt.Errorf("inserting criterion %s: %w", c.ID, err)
		}
	}

	for _, d := range b.NPQDomains {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO npq_domains (report_id, domain, score, severity)
			VALUES (?, ?, ?, ?)`,
			reportID, d.Domain, d.Score, d.Severity)
		if err != nil {
			return fmt.Errorf("inserting npq domain %q: %w", d.Domain, err)
		}
	}

	for _, r := range b.NPQResponses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO npq_responses (report_id, domain, question, question_text, score, severity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			reportID, r.Domain, r.Question, r.Text, r.Score, r.Severity)
		if err != nil {
			return fmt.Errorf("inserting npq response %d: %w", r.Question, err)
		}
	}

	for _, r := range b.Epworth {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO epworth_responses (report_id, question, situation, score, description)
			VALUES (?, ?, ?, ?, ?)`,
			reportID, r.Question, r.Situation, r.Score, r.Description)
		if err != nil {
			return fmt.Errorf("inserting epworth response %d: %w", r.Question, err)
		}
	}

	for _, d := range b.Degradations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO degradations (report_id, section, mode, detail)
			VALUES (?, ?, ?, ?)`,
			reportID, d.Section, d.Mode, d.Detail)
		if err != nil {
			return fmt.Errorf("inserting degradation %s: %w", d.Section, err)
		}
	}
	return nil
}

// GetReport retrieves a report by patient and test date.
func (s *Store) GetReport(ctx context.Context, patientID, testDate string) (*Report, error) {
	r := &Report{}
	var language, sourcePath, classification sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, test_date, age, language, source_path,
			inattentive_met, hyperactive_met, classification, created_at, updated_at
		FROM reports WHERE patient_id = ? AND test_date = ?`,
		patientID, testDate,
	).Scan(&r.ID, &r.PatientID, &r.TestDate, &r.Age, &language, &sourcePath,
		&r.Diagnosis.InattentiveMet, &r.Diagnosis.HyperactiveMet, &classification,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Language = language.String
	r.SourcePath = sourcePath.String
	r.Diagnosis.Classification = classification.String
	return r, nil
}

// ListReports returns all reports, newest first.
func (s *Store) ListReports(ctx context.Context) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, test_date, age, language, source_path,
			inattentive_met, hyperactive_met, classification, created_at, updated_at
		FROM reports ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		var language, sourcePath, classification sql.NullString
		if err := rows.Scan(&r.ID, &r.PatientID, &r.TestDate, &r.Age, &language, &sourcePath,
			&r.Diagnosis.InattentiveMet, &r.Diagnosis.HyperactiveMet, &classification,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Language = language.String
		r.SourcePath = sourcePath.String
		r.Diagnosis.Classification = classification.String
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetMetrics returns the resolved metrics of a report in insertion order.
func (s *Store) GetMetrics(ctx context.Context, reportID int64) ([]report.ResolvedMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT test_name, metric, sub_part, raw, standard, percentile, strategy, placeholder, valid
		FROM metrics WHERE report_id = ? ORDER BY id`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []report.ResolvedMetric
	for rows.Next() {
		var m report.ResolvedMetric
		var raw, standard, percentile, strategy string
		if err := rows.Scan(&m.Test, &m.Metric, &m.SubPart,
			&raw, &standard, &percentile, &strategy, &m.Placeholder, &m.Valid); err != nil {
			return nil, err
		}
		m.Raw = report.ParseValue(raw)
		m.Standard = report.ParseValue(standard)
		m.Percentile = report.ParseValue(percentile)
		m.Strategy = report.Strategy(strategy)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// GetDegradations returns the degradation audit rows for a report.
func (s *Store) GetDegradations(ctx context.Context, reportID int64) ([]report.Degradation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section, mode, detail FROM degradations WHERE report_id = ? ORDER BY id`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.Degradation
	for rows.Next() {
		var d report.Degradation
		if err := rows.Scan(&d.Section, &d.Mode, &d.Detail); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
