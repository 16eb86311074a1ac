package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Fee policy defaults.
const (
	DefaultTotalFee          = 500000
	DefaultInstallmentAmount = 100000
	DefaultUnlockThreshold   = 100000
	DefaultMaxInstallments   = 5

	// UnlockInstallment is the installment number that can unlock uniform & books.
	UnlockInstallment = 1
	// InstallmentNumberLimit is the highest installment number the installments table accepts.
	InstallmentNumberLimit = 5
)

// MaxAmount is the largest amount a numeric(10,2) column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

type (
	Config struct {
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		Env              string
		Build            string
		RollbarToken     string
		AdminEmail       string
		DefaultFromEmail mail.Address
		SendgridApiKey   string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Fees     FeePolicy
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CookieSecure              bool
		AllowedOrigins            []string
	}

	DatabaseConfig struct {
		Engine        string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
	}

	RedisConfig struct {
		URL string // empty: keep revoked tokens in memory
	}

	// FeePolicy holds the tuition rules applied to payments.
	FeePolicy struct {
		TotalFee          decimal.Decimal
		InstallmentAmount decimal.Decimal
		UnlockThreshold   decimal.Decimal
		MaxInstallments   int
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// DefaultFeePolicy returns the fee policy with its default values.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		TotalFee:          decimal.NewFromInt(DefaultTotalFee),
		InstallmentAmount: decimal.NewFromInt(DefaultInstallmentAmount),
		UnlockThreshold:   decimal.NewFromInt(DefaultUnlockThreshold),
		MaxInstallments:   DefaultMaxInstallments,
	}
}

// Validate makes sure the policy fits the database schema.
func (p FeePolicy) Validate() error {
	if p.MaxInstallments < 1 || p.MaxInstallments > InstallmentNumberLimit {
		return errors.Errorf("maxInstallments must be between 1 and %d, got %d", InstallmentNumberLimit, p.MaxInstallments)
	}
	amounts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"total", p.TotalFee},
		{"installment", p.InstallmentAmount},
		{"unlockThreshold", p.UnlockThreshold},
	}
	for _, amt := range amounts {
		if !amt.value.IsPositive() || amt.value.GreaterThan(MaxAmount) {
			return errors.Errorf("%s must be between 0 and %s, got %s", amt.name, MaxAmount, amt.value)
		}
	}
	return nil
}

// NewConfig reads the configuration from the environment (and the optional config/.env.<env> file).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "School Office")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("adminEmail", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server_host", ":8000")
	v.SetDefault("server_debugHost", ":4000")
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_jwtExpirationDelta", 60*time.Minute)
	v.SetDefault("server_jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_cookieSecure", false)
	v.SetDefault("server_allowedOrigins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_user", "schooloffice")
	v.SetDefault("database_password", "schooloffice")
	v.SetDefault("database_adminUser", "postgres")
	v.SetDefault("database_adminPassword", "")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "schooloffice")
	v.SetDefault("database_disableTLS", true)

	v.SetDefault("redis_url", "")

	v.SetDefault("fees_total", "500000")
	v.SetDefault("fees_installment", "100000")
	v.SetDefault("fees_unlockThreshold", "100000")
	v.SetDefault("fees_maxInstallments", DefaultMaxInstallments)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		Env:              env,
		Build:            v.GetString("build"),
		RollbarToken:     v.GetString("rollbarToken"),
		AdminEmail:       v.GetString("adminEmail"),
		DefaultFromEmail: *fromEmail,
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			DebugHost:                 v.GetString("server_debugHost"),
			ShutdownTimeout:           v.GetDuration("server_shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwtRefreshExpirationDelta"),
			CookieSecure:              v.GetBool("server_cookieSecure"),
			AllowedOrigins:            v.GetStringSlice("server_allowedOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			DisableTLS:    v.GetBool("database_disableTLS"),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis_url"),
		},
		Fees: FeePolicy{
			TotalFee:          mustDecimal(v.GetString("fees_total"), "fees_total"),
			InstallmentAmount: mustDecimal(v.GetString("fees_installment"), "fees_installment"),
			UnlockThreshold:   mustDecimal(v.GetString("fees_unlockThreshold"), "fees_unlockThreshold"),
			MaxInstallments:   v.GetInt("fees_maxInstallments"),
		},
	}
	if err = conf.Fees.Validate(); err != nil {
		log.Fatalf("config.fees: %v", err)
	}
	return conf
}

func mustDecimal(s, key string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("config.%s: %v", key, err)
	}
	return d
}
