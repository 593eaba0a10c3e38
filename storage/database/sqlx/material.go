package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/classboard/core/material"
)

type materialRow struct {
	ID           string    `db:"id"`
	Link         string    `db:"link"`
	Username     string    `db:"username"`
	MaterialName string    `db:"material_name"`
	Subject      string    `db:"subject"`
	FileFormat   string    `db:"file_format"`
	UploadedAt   time.Time `db:"uploaded_at"`
}

type materialRepository struct {
	db *sqlx.DB
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *sqlx.DB) material.Repository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, mat material.Material) (material.Material, error) {
	mat.ID = uuid.New().String()
	row := materialRow(mat)
	q := `INSERT INTO material (id, link, username, material_name, subject, file_format, uploaded_at)
		VALUES (:id, :link, :username, :material_name, :subject, :file_format, :uploaded_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return material.Material{}, wrapErr(err, "inserting material")
	}
	return mat, nil
}

func (repo *materialRepository) QueryMaterials(ctx context.Context) ([]material.Material, error) {
	var rows []materialRow
	q := `SELECT id, link, username, material_name, subject, file_format, uploaded_at FROM material ORDER BY uploaded_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, wrapErr(err, "querying materials")
	}
	mats := make([]material.Material, 0, len(rows))
	for _, r := range rows {
		mat := material.Material(r)
		mat.UploadedAt = mat.UploadedAt.UTC()
		mats = append(mats, mat)
	}
	return mats, nil
}
