package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/ledger"
	"github.com/trezcool/schooloffice/core/payment"
	"github.com/trezcool/schooloffice/core/result"
	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/core/user"
	logsvc "github.com/trezcool/schooloffice/services/logger"
	"github.com/trezcool/schooloffice/storage/database"
	sqlxrepos "github.com/trezcool/schooloffice/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up services
	tx := database.NewTransactor(db)
	stdRepo := sqlxrepos.NewStudentRepository(db)
	rules := ledger.NewRules(conf.Fees, sqlxrepos.NewDeliveryRepository(db))
	pmtSvc := payment.NewService(tx, sqlxrepos.NewPaymentRepository(db), stdRepo, rules, conf.Fees)
	resSvc := result.NewService(tx, sqlxrepos.NewResultRepository(db), stdRepo)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db)),
		stdSvc:     student.NewService(tx, stdRepo, rules, pmtSvc, resSvc),
		validate:   validate,
		translator: translator,
	}
	err = cli.run(os.Args)
	if err != nil && err != errHelp {
		logger.Error(fmt.Sprintf("error: %v", err), err)
	}
	_ = db.Close()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
