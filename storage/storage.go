package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/material"
	"github.com/trezcool/classboard/core/user"
	"github.com/trezcool/classboard/core/work"
	"github.com/trezcool/classboard/storage/database"
	inmemdb "github.com/trezcool/classboard/storage/database/inmem"
	mongorepos "github.com/trezcool/classboard/storage/database/mongo"
	sqlxrepos "github.com/trezcool/classboard/storage/database/sqlx"
)

// database engines
const (
	EnginePostgres = "postgres"
	EngineMongo    = "mongodb"
	EngineMemory   = "memory"
)

// Repositories gathers the repositories of one database engine.
type Repositories struct {
	Users     user.Repository
	Materials material.Repository
	Works     work.Repository
	close     func(ctx context.Context) error
}

func (r *Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

// NewMemoryRepositories returns repositories backed by a fresh process local store.
func NewMemoryRepositories() *Repositories {
	db := inmemdb.NewDB()
	return &Repositories{
		Users:     inmemdb.NewUserRepository(db),
		Materials: inmemdb.NewMaterialRepository(db),
		Works:     inmemdb.NewWorkRepository(db),
	}
}

// NewPostgresRepositories returns repositories backed by an open, migrated postgres database.
// Closing them closes db.
func NewPostgresRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Users:     sqlxrepos.NewUserRepository(db),
		Materials: sqlxrepos.NewMaterialRepository(db),
		Works:     sqlxrepos.NewWorkRepository(db),
		close:     func(context.Context) error { return db.Close() },
	}
}

// Open sets up the database of the configured engine, migrating it if needed.
func Open(ctx context.Context, conf *core.Config) (*Repositories, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgresRepositories(db), nil

	case EngineMongo:
		db, err := mongorepos.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Users:     mongorepos.NewUserRepository(db),
			Materials: mongorepos.NewMaterialRepository(db),
			Works:     mongorepos.NewWorkRepository(db),
			close:     db.Client().Disconnect,
		}, nil

	case EngineMemory:
		return NewMemoryRepositories(), nil

	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}
