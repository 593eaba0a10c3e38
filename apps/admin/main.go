package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/user"
	"github.com/trezcool/classboard/core/work"
	logsvc "github.com/trezcool/classboard/services/logger"
	"github.com/trezcool/classboard/storage"
	"github.com/trezcool/classboard/storage/database"
)

var logger core.Logger

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger = logsvc.New(os.Stdout, "ADMIN : ", conf)

	// set up DB
	var db *sql.DB
	var repos *storage.Repositories
	if conf.Database.Engine == storage.EnginePostgres {
		// no auto migration here: `migrate` may be asked to go down
		errAndDie(database.CreateIfNotExist(conf))
		sqlDB, err := database.Open(conf)
		errAndDie(err)
		db = sqlDB.DB
		repos = storage.NewPostgresRepositories(sqlDB)
	} else {
		repos, err = storage.Open(context.Background(), conf)
		errAndDie(err)
	}

	// set up validator
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db,
		usrSvc:     user.NewService(repos.Users),
		workSvc:    work.NewService(repos.Works),
		validate:   validate,
		translator: translator,
	}
	err = cli.run(os.Args)

	if cErr := repos.Close(context.Background()); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
