package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/classboard/apps/api/echo"
	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/material"
	"github.com/trezcool/classboard/core/user"
	"github.com/trezcool/classboard/core/work"
	logsvc "github.com/trezcool/classboard/services/logger"
	storagesvc "github.com/trezcool/classboard/services/storage"
	"github.com/trezcool/classboard/storage"
)

// storage providers
const (
	ProviderB2     = "b2"
	ProviderMemory = "memory"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.New(os.Stdout, "API : ", conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.New(os.Stdout, "DB : ", conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) *storage.Repositories {
	repos, err := storage.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s database: %v", conf.Database.Engine, err), err)
	}
	return repos
}

func newFileStorage(conf *core.Config, logger core.Logger) core.FileStorage {
	switch conf.Storage.Provider {
	case ProviderB2:
		s, err := storagesvc.NewB2Storage(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
		}
		return s
	case ProviderMemory:
		return storagesvc.NewMemoryStorage(fmt.Sprintf("http://%s%s/files", conf.Server.Host, conf.Server.Address()))
	default:
		logger.Fatal(fmt.Sprintf("unknown storage provider %q", conf.Storage.Provider))
		return nil
	}
}

func newUserService(repos *storage.Repositories) *user.Service {
	return user.NewService(repos.Users)
}

func newMaterialService(repos *storage.Repositories, fs core.FileStorage) *material.Service {
	return material.NewService(repos.Materials, fs)
}

func newWorkService(repos *storage.Repositories) *work.Service {
	return work.NewService(repos.Works)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newFileStorage))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newUserService))
	must(c.Provide(newMaterialService))
	must(c.Provide(newWorkService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
