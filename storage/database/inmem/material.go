package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/classboard/core/material"
)

type materialRepository struct {
	db *materialTable
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *DB) material.Repository {
	return &materialRepository{db: db.material}
}

func (repo *materialRepository) CreateMaterial(_ context.Context, mat material.Material) (material.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	mat.ID = uuid.New().String()
	repo.db.table = append(repo.db.table, mat)
	return mat, nil
}

func (repo *materialRepository) QueryMaterials(_ context.Context) ([]material.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	// newest first; the table is append-only
	mats := make([]material.Material, 0, len(repo.db.table))
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		mats = append(mats, repo.db.table[i])
	}
	return mats, nil
}
