package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/schooloffice/apps/api/echo"
	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/core/dashboard"
	"github.com/trezcool/schooloffice/core/ledger"
	"github.com/trezcool/schooloffice/core/payment"
	"github.com/trezcool/schooloffice/core/result"
	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/core/user"
	appfs "github.com/trezcool/schooloffice/fs"
	emailsvc "github.com/trezcool/schooloffice/services/email"
	logsvc "github.com/trezcool/schooloffice/services/logger"
	"github.com/trezcool/schooloffice/services/tokenstore"
	"github.com/trezcool/schooloffice/storage/database"
	sqlxrepos "github.com/trezcool/schooloffice/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up token blacklist
	var blacklist core.TokenBlacklist
	if conf.Redis.URL != "" {
		redisBl, err := tokenstore.NewRedisBlacklist(context.Background(), conf.Redis.URL)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer redisBl.Close()
		blacklist = redisBl
	} else {
		blacklist = tokenstore.NewMemoryBlacklist()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(log.New(os.Stdout, "EMAIL : ", log.LstdFlags), conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	tx := database.NewTransactor(db)
	stdRepo := sqlxrepos.NewStudentRepository(db)
	rules := ledger.NewRules(conf.Fees, sqlxrepos.NewDeliveryRepository(db))
	pmtSvc := payment.NewService(tx, sqlxrepos.NewPaymentRepository(db), stdRepo, rules, conf.Fees)
	resSvc := result.NewService(tx, sqlxrepos.NewResultRepository(db), stdRepo)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	if err = core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, !conf.Debug); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			Blacklist:    blacklist,
			UserSvc:      user.NewService(sqlxrepos.NewUserRepository(db)),
			StudentSvc:   student.NewService(tx, stdRepo, rules, pmtSvc, resSvc),
			PaymentSvc:   pmtSvc,
			ResultSvc:    resSvc,
			ContactSvc:   contact.NewService(sqlxrepos.NewContactRepository(db), mailSvc, conf),
			DashboardSvc: dashboard.NewService(sqlxrepos.NewDashboardRepository(db)),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
