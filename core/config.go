package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	SessionConfig struct {
		CookieName             string
		ExpirationDelta        time.Duration
		RefreshDelta           time.Duration
		RefreshExpirationDelta time.Duration
		SecureCookie           bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	OAuthClientConfig struct {
		ClientID     string
		ClientSecret string
	}

	OAuthConfig struct {
		Google OAuthClientConfig
		Kakao  OAuthClientConfig
	}

	Config struct {
		Env                       string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Build                     string
		SecretKey                 string
		FrontendBaseURL           string
		RollbarToken              string
		SendgridApiKey            string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Session  SessionConfig
		Database DatabaseConfig
		Redis    RedisConfig
		OAuth    OAuthConfig

		defaultFromEmail string
	}
)

// Address returns the "host:port" the database listens on.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

const defaultSecretKey = "2s!k)9ltx$wq@c_fe+5o(m#yc4vl=0z&bh8e^p%n1-gd7ra3uj"

// checkSecretKey refuses to run PROD with the development key, which signs sessions.
func checkSecretKey(env, key string) error {
	if env == "PROD" && (key == "" || key == defaultSecretKey) {
		return errors.New("PROD_SECRETKEY must be set")
	}
	return nil
}

// NewConfig loads the configuration of the current ENV (DEV by default).
// Values come from the environment, optionally seeded by config/.env.<env>.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Campus")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", defaultSecretKey)
	conf.SetDefault("frontendBaseURL", "http://localhost:8000")
	conf.SetDefault("defaultFromEmail", "Campus <noreply@localhost>")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.addr", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.readTimeout", 5*time.Second)
	conf.SetDefault("server.writeTimeout", 10*time.Second)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)

	conf.SetDefault("session.cookieName", "campus_session")
	conf.SetDefault("session.expirationDelta", 7*24*time.Hour)
	conf.SetDefault("session.refreshDelta", time.Hour)
	conf.SetDefault("session.refreshExpirationDelta", 30*24*time.Hour)
	conf.SetDefault("session.secureCookie", false)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.name", "campus")
	conf.SetDefault("database.user", "campus")
	conf.SetDefault("database.password", "campus")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("redis.addr", "") // empty: OAuth states are kept in memory
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)

	conf.SetDefault("oauth.google.clientID", "")
	conf.SetDefault("oauth.google.clientSecret", "")
	conf.SetDefault("oauth.kakao.clientID", "")
	conf.SetDefault("oauth.kakao.clientSecret", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.AllowEmptyEnv(true)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	if err := checkSecretKey(env, conf.GetString("secretKey")); err != nil {
		log.Fatalf("config: %v", err)
	}

	return &Config{
		Env:                       env,
		Debug:                     conf.GetBool("debug"),
		TestMode:                  conf.GetBool("testMode"),
		AppName:                   conf.GetString("appName"),
		Build:                     conf.GetString("build"),
		SecretKey:                 conf.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(conf.GetString("frontendBaseURL"), "/"),
		RollbarToken:              conf.GetString("rollbarToken"),
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			Addr:            conf.GetString("server.addr"),
			DebugHost:       conf.GetString("server.debugHost"),
			ReadTimeout:     conf.GetDuration("server.readTimeout"),
			WriteTimeout:    conf.GetDuration("server.writeTimeout"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
		},
		Session: SessionConfig{
			CookieName:             conf.GetString("session.cookieName"),
			ExpirationDelta:        conf.GetDuration("session.expirationDelta"),
			RefreshDelta:           conf.GetDuration("session.refreshDelta"),
			RefreshExpirationDelta: conf.GetDuration("session.refreshExpirationDelta"),
			SecureCookie:           conf.GetBool("session.secureCookie"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetInt("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redis.addr"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
		},
		OAuth: OAuthConfig{
			Google: OAuthClientConfig{
				ClientID:     conf.GetString("oauth.google.clientID"),
				ClientSecret: conf.GetString("oauth.google.clientSecret"),
			},
			Kakao: OAuthClientConfig{
				ClientID:     conf.GetString("oauth.kakao.clientID"),
				ClientSecret: conf.GetString("oauth.kakao.clientSecret"),
			},
		},
		defaultFromEmail: conf.GetString("defaultFromEmail"),
	}
}

// NewTestConfig returns a Config suitable for unit tests; nothing is read from the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Campus",
		Build:                     "test",
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://localhost:8000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: ServerConfig{
			Host:            "localhost",
			ShutdownTimeout: time.Second,
		},
		Session: SessionConfig{
			CookieName:             "campus_session",
			ExpirationDelta:        7 * 24 * time.Hour,
			RefreshDelta:           time.Hour,
			RefreshExpirationDelta: 30 * 24 * time.Hour,
		},
		defaultFromEmail: "Campus <noreply@localhost>",
	}
}
