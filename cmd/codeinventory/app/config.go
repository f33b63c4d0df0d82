package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/codeinventory"
	"github.com/agentstation/codeinventory/internal/config"
	"github.com/agentstation/codeinventory/pkg/constants"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Artifact locations
	RawDir     string
	OutputDir  string
	PrivateDir string

	// Pipeline
	PolicyFile     string
	Salt           string
	Organizations  []string
	Concurrency    int
	CollectTimeout time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.codeinventory.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.SetDefault("raw_dir", codeinventory.DefaultRawDir)
	viper.SetDefault("output_dir", codeinventory.DefaultOutputDir)
	viper.SetDefault("private_dir", codeinventory.DefaultPrivateDir)
	viper.SetDefault("concurrency", constants.DefaultConcurrency)
	viper.SetDefault("collect_timeout", constants.OrganizationCollectTimeout)

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".codeinventory")
		}
	}

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	return &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Format:  viper.GetString("format"),

		ConfigFile: viper.ConfigFileUsed(),

		RawDir:     viper.GetString("raw_dir"),
		OutputDir:  viper.GetString("output_dir"),
		PrivateDir: viper.GetString("private_dir"),

		PolicyFile:     config.GetString("policy"),
		Salt:           config.GetString("CODEINVENTORY_SALT"),
		Organizations:  config.GetList("GH_ORG"),
		Concurrency:    viper.GetInt("concurrency"),
		CollectTimeout: viper.GetDuration("collect_timeout"),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}, nil
}

// UpdateFromFlags updates config values from parsed command flags so that
// flags take precedence over config files and environment variables.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local does not override values already set by .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
