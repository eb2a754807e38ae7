package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/academia/sims/apps/api/echo"
	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/dashboard"
	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/transcript"
	"github.com/academia/sims/core/user"
	auditsvc "github.com/academia/sims/services/audit"
	emailsvc "github.com/academia/sims/services/email"
	logsvc "github.com/academia/sims/services/logger"
	transcriptsvc "github.com/academia/sims/services/transcript"
	"github.com/academia/sims/storage/database"
	sqlxrepos "github.com/academia/sims/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Logins        *auditsvc.LoginLog
	Validate      *validator.Validate
	Translator    ut.Translator
	UserSvc       *user.Service
	CatalogSvc    *catalog.Service
	StudentSvc    *student.Service
	FacultySvc    *faculty.Service
	LedgerSvc     *ledger.Service
	DashboardSvc  *dashboard.Service
	TranscriptSvc *transcript.Service
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewStdLogger(os.Stdout, "API"), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewStdLogger(os.Stdout, "DB"), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, *sqlxrepos.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, sqlxrepos.New(db)
}

func newTransactor(db *sqlxrepos.DB) core.Transactor { return db }

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newLoginLog(conf *core.Config, logger core.Logger) *auditsvc.LoginLog {
	ll, err := auditsvc.OpenLoginLog(conf.Audit.LoginLogPath)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up login audit: %v", err), err)
	}
	return ll
}

func newTranscriptSource(conf *core.Config, logger core.Logger) transcript.Source {
	return transcriptsvc.NewLegacySource(conf.Transcript.LegacyDir, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Logins:        p.Logins,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CatalogSvc:    p.CatalogSvc,
		StudentSvc:    p.StudentSvc,
		FacultySvc:    p.FacultySvc,
		LedgerSvc:     p.LedgerSvc,
		DashboardSvc:  p.DashboardSvc,
		TranscriptSvc: p.TranscriptSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newTransactor))
	must(c.Provide(newEmailService))
	must(c.Provide(newLoginLog))
	must(c.Provide(newTranscriptSource))
	must(c.Provide(echoapi.NewValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewCatalogRepository, dig.As(new(catalog.Repository))))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(sqlxrepos.NewFacultyRepository, dig.As(new(faculty.Repository))))
	must(c.Provide(sqlxrepos.NewLedgerRepository, dig.As(new(ledger.Repository))))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(catalog.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(faculty.NewService))
	must(c.Provide(ledger.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(transcript.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
