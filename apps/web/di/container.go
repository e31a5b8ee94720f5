// Package di builds the dependency graph of the web app.
package di

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoweb "github.com/trezcool/campus/apps/web/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
	"github.com/trezcool/campus/core/progress"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	logsvc "github.com/trezcool/campus/services/logger"
	oauthsvc "github.com/trezcool/campus/services/oauth"
	"github.com/trezcool/campus/storage/cache"
	"github.com/trezcool/campus/storage/database"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// ServerParams are the dependencies of the web server.
	ServerParams struct {
		dig.In

		Conf          *core.Config
		Logger        core.Logger
		UserSvc       user.Service
		Courses       *course.Service
		Resolver      *enrollment.Resolver
		Committer     *enrollment.Committer
		Guard         *enrollment.Guard
		EnrollmentSvc *enrollment.Service
		Aggregator    *progress.Aggregator
		ProgressSvc   *progress.Service
		Providers     oauthsvc.Registry
		States        oauthsvc.StateStore
		Validate      *validator.Validate
		Translator    ut.Translator
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	ctx := context.Background()
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newStateStore keeps OAuth states in Redis when it is configured, in memory otherwise.
func newStateStore(conf *core.Config, logger core.Logger) oauthsvc.StateStore {
	if conf.Redis.Addr == "" {
		logger.Warn("redis not configured: keeping sign-in states in memory")
		return oauthsvc.NewMemoryStateStore()
	}
	client, err := cache.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	return cache.NewRedisStateStore(client)
}

func newValidate() *validator.Validate {
	return validator.New()
}

func newServer(p ServerParams) (*echoweb.Server, error) {
	return echoweb.NewServer(echoweb.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		UserSvc:       p.UserSvc,
		Courses:       p.Courses,
		Resolver:      p.Resolver,
		Committer:     p.Committer,
		Guard:         p.Guard,
		EnrollmentSvc: p.EnrollmentSvc,
		Aggregator:    p.Aggregator,
		ProgressSvc:   p.ProgressSvc,
		Providers:     p.Providers,
		States:        p.States,
		Validate:      p.Validate,
		Translator:    p.Translator,
	}, echoweb.DefaultOptions())
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newStateStore))

	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository, dig.As(new(enrollment.Repository))))
	must(c.Provide(sqlxrepos.NewProgressRepository, dig.As(new(progress.Repository))))

	must(c.Provide(newValidate))
	must(c.Provide(core.NewTranslator))

	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(enrollment.NewResolver))
	must(c.Provide(enrollment.NewCommitter))
	must(c.Provide(enrollment.NewGuard))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(progress.NewAggregator))
	must(c.Provide(progress.NewService))
	must(c.Provide(oauthsvc.NewRegistry))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
