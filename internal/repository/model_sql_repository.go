package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/artificien/orchestrator/internal/model"
)

// SQLModelRepo is the MySQL-backed variant of ModelRepo, used for local
// development where no DynamoDB endpoint is available. It reads and
// writes the `models` table:
//
//	model_id         VARCHAR(128) PRIMARY KEY
//	owner_name       VARCHAR(128) NOT NULL
//	dataset          VARCHAR(128) NULL
//	active_status    TINYINT      NOT NULL DEFAULT 1
//	date_submitted   CHAR(8)      NOT NULL
//	has_node         TINYINT(1)   NOT NULL DEFAULT 0
//	node_url         VARCHAR(255) NULL
//	percent_complete INT          NOT NULL DEFAULT 0
//	version          VARCHAR(32)  NOT NULL DEFAULT '1.0'
//	download_link    VARCHAR(512) NULL
//	KEY owner_status (owner_name, active_status)
//
// Conditional transitions are expressed as guarded UPDATE statements and
// checked through RowsAffected, which gives the same single-winner
// semantics as a DynamoDB condition expression.
type SQLModelRepo struct {
	db *sql.DB
}

// NewSQLModelRepo returns a SQLModelRepo bound to the given database.
func NewSQLModelRepo(db *sql.DB) *SQLModelRepo { return &SQLModelRepo{db: db} }

const modelColumns = `model_id, owner_name, dataset, active_status, date_submitted,
       has_node, node_url, percent_complete, version, download_link`

// GetModel fetches a model record by its ID.
func (r *SQLModelRepo) GetModel(ctx context.Context, modelID string) (*model.Model, error) {
	const q = `SELECT ` + modelColumns + ` FROM models WHERE model_id = ?`
	m, err := scanModel(r.db.QueryRowContext(ctx, q, modelID))
	if err == sql.ErrNoRows {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "get model %q: %v", modelID, err)
	}
	return m, nil
}

// PutModel inserts or replaces the full model record.
func (r *SQLModelRepo) PutModel(ctx context.Context, m *model.Model) error {
	const q = `REPLACE INTO models (` + modelColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		m.ModelID, m.Owner, nullable(m.Dataset), m.ActiveStatus, m.DateSubmitted,
		m.HasNode, nullable(m.NodeURL), m.PercentComplete, m.Version, nullable(m.DownloadLink),
	)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "put model %q: %v", m.ModelID, err)
	}
	return nil
}

// MarkNodeRequested flips has_node from 0 to 1 for exactly one caller.
func (r *SQLModelRepo) MarkNodeRequested(ctx context.Context, modelID string) error {
	const q = `UPDATE models SET has_node = 1 WHERE model_id = ? AND has_node = 0`
	return r.guardedUpdate(ctx, q, "mark node requested", modelID, ErrConditionFailed, modelID)
}

// SetNodeURL records the node endpoint; the row must already have a
// requested node.
func (r *SQLModelRepo) SetNodeURL(ctx context.Context, modelID, nodeURL string) error {
	const q = `UPDATE models SET node_url = ? WHERE model_id = ? AND has_node = 1`
	return r.guardedUpdate(ctx, q, "set node url", modelID, ErrConditionFailed, nodeURL, modelID)
}

// SetProgress persists the training completion percentage.
func (r *SQLModelRepo) SetProgress(ctx context.Context, modelID string, percent int) error {
	const q = `UPDATE models SET percent_complete = ? WHERE model_id = ?`
	return r.guardedUpdate(ctx, q, "set progress", modelID, ErrModelNotFound, percent, modelID)
}

// SetArtifact stores the artifact location and deactivates the model in a
// single statement.
func (r *SQLModelRepo) SetArtifact(ctx context.Context, modelID, downloadLink string) error {
	const q = `UPDATE models SET download_link = ?, active_status = 0 WHERE model_id = ?`
	return r.guardedUpdate(ctx, q, "set artifact", modelID, ErrModelNotFound, downloadLink, modelID)
}

// ListByOwner returns every model submitted by the given owner.
func (r *SQLModelRepo) ListByOwner(ctx context.Context, owner string) ([]model.Model, error) {
	const q = `SELECT ` + modelColumns + ` FROM models WHERE owner_name = ? ORDER BY active_status DESC, model_id`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "list models for %q: %v", owner, err)
	}
	defer rows.Close()
	models := make([]model.Model, 0)
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "scan model for %q", owner)
		}
		models = append(models, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "list models for %q: %v", owner, err)
	}
	return models, nil
}

// guardedUpdate runs an UPDATE whose WHERE clause encodes the transition
// precondition. Zero affected rows means the precondition did not hold;
// whether that maps to a lost race or a missing record depends on the
// call site.
func (r *SQLModelRepo) guardedUpdate(ctx context.Context, q, op, modelID string, condErr error, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "%s %q: %v", op, modelID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "%s %q: %v", op, modelID, err)
	}
	if n == 0 {
		return errors.Wrapf(condErr, "%s %q", op, modelID)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanModel(row rowScanner) (*model.Model, error) {
	var m model.Model
	var dataset, nodeURL, download sql.NullString
	if err := row.Scan(
		&m.ModelID, &m.Owner, &dataset, &m.ActiveStatus, &m.DateSubmitted,
		&m.HasNode, &nodeURL, &m.PercentComplete, &m.Version, &download,
	); err != nil {
		return nil, err
	}
	m.Dataset = dataset.String
	m.NodeURL = nodeURL.String
	m.DownloadLink = download.String
	return &m, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
