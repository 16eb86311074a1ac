// Package testutil holds the fixtures shared by the test suites.
package testutil

import (
	"context"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

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
	"github.com/trezcool/schooloffice/storage/database"
	inmemdb "github.com/trezcool/schooloffice/storage/database/inmem"
)

// NewConfig returns a config that does not depend on the environment.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		AppName:          "School Office",
		SecretKey:        "test-secret-key",
		Env:              "TEST",
		Build:            "test",
		AdminEmail:       "admin@school.test",
		DefaultFromEmail: mail.Address{Name: "School Office", Address: "noreply@school.test"},
		Server: core.ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
			AllowedOrigins:            []string{"http://localhost:5173"},
		},
		Fees: core.DefaultFeePolicy(),
	}
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Env wires every service on top of a fresh in-memory database.
type Env struct {
	Conf     *core.Config
	DB       *inmemdb.DB
	Mail     *emailsvc.ConsoleServiceMock
	UsrRepo  user.Repository
	StdRepo  student.Repository
	Rules    *ledger.Rules
	Users    *user.Service
	Students *student.Service
	Payments *payment.Service
	Results  *result.Service
	Contacts *contact.Service
	Stats    *dashboard.Service
}

func NewEnv() *Env {
	if err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true); err != nil {
		panic(err)
	}

	conf := NewConfig()
	db := inmemdb.Open()
	env := &Env{
		Conf:    conf,
		DB:      db,
		Mail:    emailsvc.NewConsoleServiceMock(conf),
		UsrRepo: inmemdb.NewUserRepository(db),
	}
	stdRepo := inmemdb.NewStudentRepository(db)
	env.StdRepo = stdRepo
	env.Rules = ledger.NewRules(conf.Fees, inmemdb.NewDeliveryRepository(db))
	env.Users = user.NewService(env.UsrRepo)
	env.Payments = payment.NewService(db, inmemdb.NewPaymentRepository(db), stdRepo, env.Rules, conf.Fees)
	env.Results = result.NewService(db, inmemdb.NewResultRepository(db), stdRepo)
	env.Students = student.NewService(db, stdRepo, env.Rules, env.Payments, env.Results)
	env.Contacts = contact.NewService(inmemdb.NewContactRepository(db), env.Mail, conf)
	env.Stats = dashboard.NewService(inmemdb.NewDashboardRepository(db))
	return env
}

func CreateUser(t *testing.T, repo user.Repository, uname, email, pwd string, isSuperuser, isActive bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Username:    uname,
		Email:       email,
		IsActive:    isActive,
		IsSuperuser: isSuperuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd))
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

// CreateStudent creates a student through the service, so its statuses and Result exist too.
func CreateStudent(t *testing.T, svc *student.Service, code, name string, level int, spec string) student.Student {
	std, err := svc.Create(context.Background(), student.NewStudent{
		StudentCode:    code,
		Name:           name,
		AcademicLevel:  level,
		Specialization: spec,
	})
	require.NoError(t, err)
	return std
}

func Pay(t *testing.T, svc *payment.Service, studentID, number int, amount int64) payment.Payment {
	amt := decimal.NewFromInt(amount)
	pmt, err := svc.RecordPayment(context.Background(), payment.NewPayment{
		StudentID:         studentID,
		InstallmentNumber: number,
		Amount:            &amt,
	})
	require.NoError(t, err)
	return pmt
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

// PrepareDB opens the Postgres test database, migrated and empty.
// Tests are skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST not set: skipping database tests")
	}
	require.NoError(t, os.Setenv("ENV", "TEST"))

	conf := core.NewConfig()
	require.NoError(t, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, "up"))
	t.Cleanup(func() { _ = db.Close() })

	ResetDB(t, db)
	return db
}

// ResetDB empties every table and restarts the sequences.
func ResetDB(t *testing.T, db *sqlx.DB) {
	_, err := db.Exec(`TRUNCATE TABLE
		contact_messages, subject_results, results, receipts, installments,
		uniform_statuses, book_statuses, students, users
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}
