package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    dataset TEXT NOT NULL,
    algorithm TEXT NOT NULL,
    k INTEGER NOT NULL,
    params_json TEXT,
    status TEXT DEFAULT 'pending',
    n_rows INTEGER DEFAULT 0,
    dim INTEGER DEFAULT 0,
    iterations INTEGER DEFAULT 0,
    converged INTEGER DEFAULT 0,
    inertia REAL,
    log_likelihood REAL,
    metrics_json TEXT,
    error_message TEXT,
    created_at TEXT,
    updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS assignments (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    row_index INTEGER NOT NULL,
    label INTEGER NOT NULL,
    name TEXT,
    truth TEXT,
    point BLOB,
    PRIMARY KEY (run_id, row_index)
);
CREATE INDEX IF NOT EXISTS idx_assignments_label ON assignments(run_id, label);

CREATE TABLE IF NOT EXISTS centroids (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    cluster INTEGER NOT NULL,
    size INTEGER DEFAULT 0,
    vector BLOB NOT NULL,
    top_terms TEXT,
    PRIMARY KEY (run_id, cluster)
);
`

const runColumns = `id, kind, dataset, algorithm, k, params_json, status, n_rows, dim,
	iterations, converged, inertia, log_likelihood, metrics_json, error_message,
	created_at, updated_at`

// Database provides thread-safe SQLite operations.
type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	// SQLite pragmas
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}
	return &Database{db: db}, nil
}

func (d *Database) Initialize() error {
	_, err := d.db.Exec(schemaDDL)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// DB exposes the underlying pool for health checks and maintenance.
func (d *Database) DB() *sql.DB {
	return d.db
}

// -- Run operations --

func (d *Database) InsertRun(r Run) error {
	_, err := d.db.Exec(`
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.Dataset, r.Algorithm, r.K, r.ParamsJSON, string(r.Status),
		r.Rows, r.Dim, r.Iterations, r.Converged, r.Inertia, r.LogLikelihood,
		r.MetricsJSON, r.ErrorMessage, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// UpdateRunStatus moves a run to status, recording errMsg for failures.
func (d *Database) UpdateRunStatus(runID string, status RunStatus, errMsg *string) error {
	_, err := d.db.Exec(
		"UPDATE runs SET status=?, error_message=?, updated_at=? WHERE id=?",
		string(status), errMsg, nowISO(), runID,
	)
	return err
}

// CompleteRun stores the fit summary and marks the run completed.
func (d *Database) CompleteRun(runID string, res RunResult) error {
	var metrics *string
	if res.Metrics != nil {
		s := mustJSON(res.Metrics)
		metrics = &s
	}
	_, err := d.db.Exec(`
		UPDATE runs SET status=?, n_rows=?, dim=?, iterations=?, converged=?,
			inertia=?, log_likelihood=?, metrics_json=?, error_message=NULL, updated_at=?
		WHERE id=?`,
		string(RunCompleted), res.Rows, res.Dim, res.Iterations, res.Converged,
		res.Inertia, res.LogLikelihood, metrics, nowISO(), runID,
	)
	return err
}

func (d *Database) GetRun(runID string) (*Run, error) {
	row := d.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id=?", runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns returns runs newest first, optionally filtered by status.
func (d *Database) ListRuns(status *RunStatus, limit int) ([]Run, error) {
	q := "SELECT " + runColumns + " FROM runs"
	var args []any
	if status != nil {
		q += " WHERE status=?"
		args = append(args, string(*status))
	}
	q += " ORDER BY created_at DESC, id"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := d.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func (d *Database) CountRunsByStatus() (map[string]int, error) {
	rows, err := d.db.Query("SELECT status, COUNT(*) as cnt FROM runs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]int)
	for rows.Next() {
		var status string
		var cnt int
		if err := rows.Scan(&status, &cnt); err != nil {
			return nil, err
		}
		result[status] = cnt
	}
	return result, rows.Err()
}

// DeleteRun removes a run with its assignments and centroids. It reports
// whether the run existed.
func (d *Database) DeleteRun(runID string) (bool, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return false, err
	}
	for _, q := range []string{
		"DELETE FROM assignments WHERE run_id=?",
		"DELETE FROM centroids WHERE run_id=?",
	} {
		if _, err := tx.Exec(q, runID); err != nil {
			tx.Rollback()
			return false, err
		}
	}
	res, err := tx.Exec("DELETE FROM runs WHERE id=?", runID)
	if err != nil {
		tx.Rollback()
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var kind, status string
	err := s.Scan(
		&r.ID, &kind, &r.Dataset, &r.Algorithm, &r.K, &r.ParamsJSON, &status,
		&r.Rows, &r.Dim, &r.Iterations, &r.Converged, &r.Inertia, &r.LogLikelihood,
		&r.MetricsJSON, &r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Kind = RunKind(kind)
	r.Status = RunStatus(status)
	return &r, nil
}

// -- Assignment operations --

// SaveAssignments replaces the stored labels of a run.
func (d *Database) SaveAssignments(runID string, as []Assignment) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM assignments WHERE run_id=?", runID); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO assignments (run_id, row_index, label, name, truth, point)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, a := range as {
		var point []byte
		if a.Point != nil {
			point = float64ToBlob(a.Point)
		}
		if _, err := stmt.Exec(runID, a.RowIndex, a.Label, a.Name, a.Truth, point); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetAssignments returns a run's labels ordered by row. A negative cluster
// returns every row.
func (d *Database) GetAssignments(runID string, cluster int) ([]Assignment, error) {
	q := "SELECT run_id, row_index, label, name, truth, point FROM assignments WHERE run_id=?"
	args := []any{runID}
	if cluster >= 0 {
		q += " AND label=?"
		args = append(args, cluster)
	}
	rows, err := d.db.Query(q+" ORDER BY row_index", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var as []Assignment
	for rows.Next() {
		var a Assignment
		var point []byte
		if err := rows.Scan(&a.RunID, &a.RowIndex, &a.Label, &a.Name, &a.Truth, &point); err != nil {
			return nil, err
		}
		if point != nil {
			a.Point = blobToFloat64(point)
		}
		as = append(as, a)
	}
	return as, rows.Err()
}

// -- Centroid operations --

// SaveCentroids replaces the stored centers of a run.
func (d *Database) SaveCentroids(runID string, cs []Centroid) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM centroids WHERE run_id=?", runID); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO centroids (run_id, cluster, size, vector, top_terms)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range cs {
		var terms *string
		if len(c.TopTerms) > 0 {
			s := mustJSON(c.TopTerms)
			terms = &s
		}
		if _, err := stmt.Exec(runID, c.Cluster, c.Size, float64ToBlob(c.Vector), terms); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (d *Database) GetCentroids(runID string) ([]Centroid, error) {
	rows, err := d.db.Query(
		"SELECT run_id, cluster, size, vector, top_terms FROM centroids WHERE run_id=? ORDER BY cluster",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cs []Centroid
	for rows.Next() {
		var c Centroid
		var vec []byte
		var terms *string
		if err := rows.Scan(&c.RunID, &c.Cluster, &c.Size, &vec, &terms); err != nil {
			return nil, err
		}
		c.Vector = blobToFloat64(vec)
		if terms != nil {
			if err := json.Unmarshal([]byte(*terms), &c.TopTerms); err != nil {
				return nil, fmt.Errorf("decode top terms for cluster %d: %w", c.Cluster, err)
			}
		}
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

// Points returns the stored feature rows of a run in row order.
func (d *Database) Points(runID string) ([][]float64, []int, error) {
	as, err := d.GetAssignments(runID, -1)
	if err != nil {
		return nil, nil, err
	}
	points := make([][]float64, 0, len(as))
	labels := make([]int, 0, len(as))
	for _, a := range as {
		if a.Point == nil {
			return nil, nil, fmt.Errorf("run %s row %d has no stored point", runID, a.RowIndex)
		}
		points = append(points, a.Point)
		labels = append(labels, a.Label)
	}
	return points, labels, nil
}

// escapeLike quotes LIKE wildcards in a user-supplied fragment.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchRuns finds runs whose dataset name contains fragment.
func (d *Database) SearchRuns(fragment string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(
		"SELECT "+runColumns+` FROM runs WHERE dataset LIKE ? ESCAPE '\' ORDER BY created_at DESC LIMIT ?`,
		"%"+escapeLike(fragment)+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}
