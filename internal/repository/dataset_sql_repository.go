package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/artificien/orchestrator/internal/model"
)

// SQLDatasetRepo is the MySQL-backed variant of DatasetRepo, reading the
// `datasets` table:
//
//	dataset_id     VARCHAR(128) PRIMARY KEY
//	app            VARCHAR(128) NULL
//	name           VARCHAR(255) NULL
//	category       VARCHAR(64)  NULL
//	num_devices    INT          NOT NULL DEFAULT 0
//	logo_image_url VARCHAR(512) NULL
type SQLDatasetRepo struct {
	db *sql.DB
}

// NewSQLDatasetRepo returns a SQLDatasetRepo bound to the given database.
func NewSQLDatasetRepo(db *sql.DB) *SQLDatasetRepo { return &SQLDatasetRepo{db: db} }

// GetDataset fetches a dataset record by its ID.
func (r *SQLDatasetRepo) GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	const q = `SELECT dataset_id, app, name, category, num_devices, logo_image_url
	           FROM datasets WHERE dataset_id = ?`
	var d model.Dataset
	var app, name, category, logo sql.NullString
	err := r.db.QueryRowContext(ctx, q, datasetID).Scan(
		&d.DatasetID, &app, &name, &category, &d.NumDevices, &logo,
	)
	if err == sql.ErrNoRows {
		return nil, ErrDatasetNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "get dataset %q: %v", datasetID, err)
	}
	d.App = app.String
	d.Name = name.String
	d.Category = category.String
	d.LogoImageURL = logo.String
	return &d, nil
}
