package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

// Conf is set by NewConfig; package-level access for leaf helpers (mail templates).
var Conf *Config

type (
	Config struct {
		Env      string
		Build    string
		Debug    bool
		TestMode bool
		WorkDir  string

		AppName         string
		SecretKey       []byte
		FrontendBaseURL string

		defaultFromEmail     string
		SendgridAPIKey       string
		SendCompletionEmails bool

		RollbarToken string

		Server struct {
			Host                      string
			DebugHost                 string
			ShutdownTimeout           time.Duration
			JWTExpirationDelta        time.Duration
			JWTRefreshExpirationDelta time.Duration
		}

		Database struct {
			Engine        string
			Name          string
			User          string
			Password      string
			AdminUser     string
			AdminPassword string
			Host          string
			Port          string
			DisableTLS    bool
		}

		Watch struct {
			// TickInterval is how often an active session reports progress.
			// Each tick credits exactly 1 study unit.
			TickInterval time.Duration
		}

		VideoInfo struct {
			BaseURL string
			APIKey  string
			Timeout time.Duration
		}
	}
)

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Darasa")
	conf.SetDefault("secretKey", "v1x)o&41mkm3*cqh29-y%*#^sk0q7#gge^7)%1p^zx&7&u9(zv")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendCompletionEmails", false)
	conf.SetDefault("serverHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "darasa")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("watchTickInterval", time.Minute)
	conf.SetDefault("videoInfoBaseURL", "https://www.googleapis.com/youtube/v3")
	conf.SetDefault("videoInfoTimeout", 10*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Env:                  env,
		Build:                conf.GetString("build"),
		Debug:                conf.GetBool("debug"),
		TestMode:             env == "TEST",
		WorkDir:              wd,
		AppName:              conf.GetString("appName"),
		SecretKey:            []byte(conf.GetString("secretKey")),
		FrontendBaseURL:      conf.GetString("frontendBaseURL"),
		defaultFromEmail:     conf.GetString("defaultFromEmail"),
		SendgridAPIKey:       conf.GetString("sendgridAPIKey"),
		SendCompletionEmails: conf.GetBool("sendCompletionEmails"),
		RollbarToken:         conf.GetString("rollbarToken"),
	}
	c.Server.Host = conf.GetString("serverHost")
	c.Server.DebugHost = conf.GetString("serverDebugHost")
	c.Server.ShutdownTimeout = conf.GetDuration("serverShutdownTimeout")
	c.Server.JWTExpirationDelta = conf.GetDuration("jwtExpirationDelta")
	c.Server.JWTRefreshExpirationDelta = conf.GetDuration("jwtRefreshExpirationDelta")
	c.Database.Engine = conf.GetString("dbEngine")
	c.Database.Name = conf.GetString("dbName")
	c.Database.User = conf.GetString("dbUser")
	c.Database.Password = conf.GetString("dbPassword")
	c.Database.AdminUser = conf.GetString("dbAdminUser")
	c.Database.AdminPassword = conf.GetString("dbAdminPassword")
	c.Database.Host = conf.GetString("dbHost")
	c.Database.Port = conf.GetString("dbPort")
	c.Database.DisableTLS = conf.GetBool("dbDisableTLS")
	c.Watch.TickInterval = conf.GetDuration("watchTickInterval")
	c.VideoInfo.BaseURL = conf.GetString("videoInfoBaseURL")
	c.VideoInfo.APIKey = conf.GetString("videoInfoAPIKey")
	c.VideoInfo.Timeout = conf.GetDuration("videoInfoTimeout")

	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(string(c.SecretKey), "secretKey"),
		vala.StringNotEmpty(c.Server.Host, "serverHost"),
		vala.StringNotEmpty(c.Database.Name, "dbName"),
		vala.GreaterThan(int(c.Watch.TickInterval), 0, "watchTickInterval"),
	).Check()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	Conf = c
	return c
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (c *Config) IsProd() bool { return c.Env == "PROD" }

// Getwd returns the app's root directory; it falls back to "." on failure.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
