package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Build            string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		DefaultFromEmail string
		RollbarToken     string
		SendgridAPIKey   string

		Server    ServerConfig
		Database  DatabaseConfig
		Assistant AssistantConfig
		Accounts  AccountsConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// AssistantConfig is handed to the chat client at construction time.
	AssistantConfig struct {
		APIKey          string
		Model           string
		Timeout         time.Duration
		MaxRows         int
		FallbackMessage string
	}

	// AccountsConfig drives the bulk creation of student accounts.
	AccountsConfig struct {
		DefaultPassword string
		EmailDomain     string
	}
)

func (db DatabaseConfig) Address() string {
	if db.Port == "" {
		return db.Host
	}
	return db.Host + ":" + db.Port
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Alama")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("secretKey", "j2#k7v!c9q$z4w&m1p(x8r)t5y@u6e^b3n*f0h+a-s=d")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverDisableReqLogs", false)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "alama")
	v.SetDefault("dbUser", "alama")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("assistantApiKey", "")
	v.SetDefault("assistantModel", "gemini-2.5-flash")
	v.SetDefault("assistantTimeout", 30*time.Second)
	v.SetDefault("assistantMaxRows", 60)
	v.SetDefault("assistantFallbackMessage", "Sorry, the assistant is unavailable right now. Please try again later.")

	v.SetDefault("accountsDefaultPassword", "123456")
	v.SetDefault("accountsEmailDomain", "student.edu.vn")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          workDir,
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			DisableReqLogs:            v.GetBool("serverDisableReqLogs"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Assistant: AssistantConfig{
			APIKey:          v.GetString("assistantApiKey"),
			Model:           v.GetString("assistantModel"),
			Timeout:         v.GetDuration("assistantTimeout"),
			MaxRows:         v.GetInt("assistantMaxRows"),
			FallbackMessage: v.GetString("assistantFallbackMessage"),
		},
		Accounts: AccountsConfig{
			DefaultPassword: v.GetString("accountsDefaultPassword"),
			EmailDomain:     v.GetString("accountsEmailDomain"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests; it never touches the environment.
func NewTestConfig() *Config {
	return &Config{
		AppName:   "Alama",
		Build:     "test",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret-key",
		Server: ServerConfig{
			Address:                   ":0",
			DisableReqLogs:            true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
		Assistant: AssistantConfig{
			Model:           "test-model",
			MaxRows:         60,
			FallbackMessage: "assistant unavailable",
		},
		Accounts: AccountsConfig{
			DefaultPassword: "123456",
			EmailDomain:     "student.test",
		},
	}
}

// Getwd walks up from the working directory until it finds the project root (the directory holding go.mod).
// go test runs inside the package directory, so os.Getwd alone is not enough.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s, build %s)", c.AppName, c.Env, c.Build)
}
