package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var ErrMissingSecretKey = errors.New("SECRET_KEY is not set")

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | mongodb | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		URI           string // mongodb only
	}

	StorageConfig struct {
		Provider      string // b2 | memory
		B2AccountID   string
		B2AppKey      string
		B2Bucket      string
		MaxUploadSize string // echo BodyLimit format, e.g. "25M"
	}

	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
		Storage      StorageConfig
	}
)

// Address returns the database "host:port".
func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}

// Address returns the API listen address.
func (sc ServerConfig) Address() string {
	return fmt.Sprintf(":%d", sc.Port)
}

// setDefault registers a default for key and binds it to its upper snake case env var
// (e.g. server.jwtExpirationDelta -> SERVER_JWT_EXPIRATION_DELTA).
func setDefault(v *viper.Viper, key string, value interface{}) {
	v.SetDefault(key, value)
	_ = v.BindEnv(key, envName(key))
}

func envName(key string) string {
	var b strings.Builder
	var prev rune
	for _, r := range key {
		switch {
		case r == '.':
			b.WriteRune('_')
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			b.WriteRune('_')
			b.WriteRune(r)
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
		prev = r
	}
	return b.String()
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	setDefault(v, "appName", "Classboard")
	setDefault(v, "build", "develop")
	setDefault(v, "debug", true)
	setDefault(v, "testMode", false)
	setDefault(v, "secretKey", "")
	setDefault(v, "rollbarToken", "")

	setDefault(v, "server.host", "localhost")
	setDefault(v, "server.port", 5000)
	setDefault(v, "server.debugHost", ":5050")
	setDefault(v, "server.readTimeout", 5*time.Second)
	setDefault(v, "server.writeTimeout", 30*time.Second)
	setDefault(v, "server.shutdownTimeout", 5*time.Second)
	setDefault(v, "server.jwtExpirationDelta", 7*24*time.Hour)
	setDefault(v, "server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	setDefault(v, "server.disableReqLogs", false)

	setDefault(v, "database.engine", "postgres")
	setDefault(v, "database.host", "localhost")
	setDefault(v, "database.port", 5432)
	setDefault(v, "database.name", "classboard")
	setDefault(v, "database.user", "classboard")
	setDefault(v, "database.password", "")
	setDefault(v, "database.adminUser", "postgres")
	setDefault(v, "database.adminPassword", "")
	setDefault(v, "database.disableTLS", true)
	setDefault(v, "database.uri", "mongodb://localhost:27017")

	setDefault(v, "storage.provider", "b2")
	setDefault(v, "storage.b2AccountID", "")
	setDefault(v, "storage.b2AppKey", "")
	setDefault(v, "storage.b2Bucket", "")
	setDefault(v, "storage.maxUploadSize", "25M")
}

// NewConfig loads the app configuration from the environment and, if present, config/.env.<env>.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		setDefault(v, "testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	conf := &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetInt("server.port"),
			DebugHost:                 v.GetString("server.debugHost"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			URI:           v.GetString("database.uri"),
		},
		Storage: StorageConfig{
			Provider:      strings.ToLower(v.GetString("storage.provider")),
			B2AccountID:   v.GetString("storage.b2AccountID"),
			B2AppKey:      v.GetString("storage.b2AppKey"),
			B2Bucket:      v.GetString("storage.b2Bucket"),
			MaxUploadSize: v.GetString("storage.maxUploadSize"),
		},
	}

	// tokens must never be signed with a guessable key
	if strings.TrimSpace(conf.SecretKey) == "" {
		return nil, ErrMissingSecretKey
	}
	return conf, nil
}
