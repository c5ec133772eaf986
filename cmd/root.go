package cmd

import (
	stdlog "log"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/ai/provider"
	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/logger"
)

const (
	app       = "joe-enricher"
	envPrefix = "JOE_ENRICHER"
)

type Config struct {
	Database           string         `mapstructure:"database"`
	Portfolio          string         `mapstructure:"portfolio"`
	PromptsFile        string         `mapstructure:"prompts-file"`
	ResearchFocalAreas []string       `mapstructure:"research-focal-areas"`
	BatchSize          int            `mapstructure:"batch-size"`
	Source             *SourceConfig  `mapstructure:"source"`
	Backup             *BackupConfig  `mapstructure:"backup"`
	Filters            *FiltersConfig `mapstructure:"filters"`
	LLM                *LLMConfig     `mapstructure:"llm"`
}

type SourceConfig struct {
	URL       string `mapstructure:"url"`
	UserAgent string `mapstructure:"user-agent"`
}

type BackupConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type FiltersConfig struct {
	ExcludeInstitutions []string `mapstructure:"exclude-institutions"`
	ExcludeStatuses     []string `mapstructure:"exclude-statuses"`
	ExcludeFile         string   `mapstructure:"exclude-file"`
}

type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	BaseURL         string        `mapstructure:"base-url"`
	APIKey          string        `mapstructure:"api-key"`
	APIKeyFile      string        `mapstructure:"api-key-file"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max-tokens"`
	MaxConcurrency  int           `mapstructure:"max-concurrency"`
	MinCallInterval time.Duration `mapstructure:"min-call-interval"`
	CallTimeout     time.Duration `mapstructure:"call-timeout"`
	MaxLogLength    int           `mapstructure:"max-log-length"`
	MaxRetries      int           `mapstructure:"max-retries"`
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.WithHint(errors.New("database path is empty"), "set the 'database' key")
	}
	if c.BatchSize <= 0 {
		return errors.Newf("batch-size must be positive, got %d", c.BatchSize)
	}
	if c.LLM == nil {
		return errors.New("llm section is missing")
	}
	if !provider.Supported(c.LLM.Provider) {
		return errors.WithHintf(errors.Newf("unknown llm provider %q", c.LLM.Provider),
			"must be one of %s", strings.Join(provider.Names, ", "))
	}
	if c.LLM.MaxConcurrency <= 0 {
		return errors.Newf("llm.max-concurrency must be positive, got %d", c.LLM.MaxConcurrency)
	}
	if c.LLM.MinCallInterval < 0 {
		return errors.Newf("llm.min-call-interval must not be negative, got %s", c.LLM.MinCallInterval)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.Newf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature)
	}
	if c.Filters != nil {
		for _, status := range c.Filters.ExcludeStatuses {
			if !job.ValidStatus(strings.ToLower(strings.TrimSpace(status))) {
				return errors.WithHintf(errors.Newf("unknown status %q in filters.exclude-statuses", status),
					"valid statuses: %s", strings.Join(job.Statuses, ", "))
			}
		}
	}
	return nil
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "joe-enricher imports AEA JOE job postings, enriches them with an LLM and scores them against your portfolio",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is joe-enricher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "data/job_listings.db")
	v.SetDefault("portfolio", "portfolio")
	v.SetDefault("prompts-file", "")
	v.SetDefault("research-focal-areas", []string{})
	v.SetDefault("batch-size", 10)
	v.SetDefault("source.url", "")
	v.SetDefault("source.user-agent", "")
	v.SetDefault("backup.enabled", false)
	v.SetDefault("filters.exclude-institutions", []string{})
	v.SetDefault("filters.exclude-statuses", []string{})
	v.SetDefault("filters.exclude-file", "")
	v.SetDefault("llm.provider", "deepseek")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base-url", "")
	v.SetDefault("llm.api-key", "")
	v.SetDefault("llm.api-key-file", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max-tokens", 4096)
	v.SetDefault("llm.max-concurrency", 10)
	v.SetDefault("llm.min-call-interval", time.Second)
	v.SetDefault("llm.call-timeout", 90*time.Second)
	v.SetDefault("llm.max-log-length", 200)
	v.SetDefault("llm.max-retries", 3)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	// The version command works without a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Defaults and environment are enough when no config file exists.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		stdlog.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// setup builds the logger and loads the config. Failures are fatal.
func setup() (*zap.Logger, *Config) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		stdlog.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err), hint(err))
	}

	return log, config
}

// hint surfaces an error hint as a log field.
func hint(err error) zap.Field {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		return zap.Skip()
	}
	return zap.String("hint", strings.Join(hints, "; "))
}
