package main

import (
	"errors"

	"github.com/trezcool/classboard/storage/database"
)

var (
	migrateFunc = database.RunMigrations // mockable

	errNoSQLDatabase = errors.New("migrations only apply to the postgres engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}
