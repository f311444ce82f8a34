package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	rendercache "github.com/render-cache/render-cache"
	"github.com/render-cache/render-cache/cache"
	"github.com/render-cache/render-cache/notifier"
	"github.com/render-cache/render-cache/renderer"
)

var (
	cfgFile            string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

var rootCmd = &cobra.Command{
	Use:   "render-cache",
	Short: "Render-and-cache proxy for fully rendered HTML",
	Long: `render-cache serves the fully rendered HTML of a target URL,
reusing a previously rendered copy while it is still fresh under a
caller-configurable time window.

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (RENDER_CACHE_*)
  3. Config file (~/.render-cache/config.yaml)
  4. Defaults`,
	RunE:         runServe,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("render-cache " + version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.render-cache/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbosityTraceFlag, "vv", false, "verbosity: trace logging")
	rootCmd.PersistentFlags().StringVar(&logFilenameFlag, "log-file", "", "log file to use (in addition to stdout)")

	flags := rootCmd.Flags()
	flags.Int("port", 8080, "port to listen on")
	flags.String("provider", "sqlite", "cache provider to use (sqlite or memory)")
	flags.String("db", "cache.db", "cache db file name (use 'memory' for an in-memory db)")
	flags.Duration("ttl", 5*time.Minute, "default freshness window")
	flags.Duration("render-timeout", rendercache.DefaultRenderTimeout, "hard limit for a single render")
	flags.Duration("request-timeout", rendercache.DefaultRequestTimeout, "overall per-request deadline")
	flags.String("ua", "render-cache/1.0", "renderer user agent")
	flags.Int64("max-bytes", 10<<20, "max bytes to read from a rendered page")
	flags.String("webhook-url", "", "webhook URL for failure notifications")
	flags.String("namespace", "render-cache", "cache key namespace")
	flags.Bool("coalesce", false, "coalesce concurrent renders of the same key")
	flags.Float64("renders-per-host", 0, "render starts per second per target host (0 disables)")
	cobra.CheckErr(viper.BindPFlags(flags))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configInitCmd)

	if version == "" {
		version = "DEV"
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.render-cache")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("RENDER_CACHE")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func runServe(cmd *cobra.Command, args []string) error {
	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		}
		logOutputs = append(logOutputs, logFileOutput)
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	// pick the configured store
	var store cache.Store
	switch provider := viper.GetString("provider"); provider {
	case "sqlite":
		dbFilename := viper.GetString("db")
		if dbFilename == "memory" {
			dbFilename = ""
		}
		store = cache.NewSQLiteStore(dbFilename)
	case "memory":
		store = cache.NewMemoryStore()
	default:
		log.Fatal().Msgf("Unsupported cache provider: %s", provider)
	}

	var notif notifier.Notifier = notifier.Noop{}
	if webhookURL := viper.GetString("webhook-url"); webhookURL != "" {
		notif = notifier.NewWebhook(webhookURL, log.Logger)
	}

	rc := rendercache.New(rendercache.Config{
		Store:           store,
		Renderer:        renderer.NewHTTP(viper.GetString("ua"), viper.GetInt64("max-bytes")),
		Notifier:        notif,
		Logger:          &log.Logger,
		DefaultTTL:      viper.GetDuration("ttl"),
		RenderTimeout:   viper.GetDuration("render-timeout"),
		RequestTimeout:  viper.GetDuration("request-timeout"),
		KeyNamespace:    viper.GetString("namespace"),
		CoalesceRenders: viper.GetBool("coalesce"),
		RendersPerHost:  viper.GetFloat64("renders-per-host"),
	})

	port := viper.GetInt("port")
	log.Info().Msgf("Listening on port %d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), rc.Handler())
}

// fileConfig is the shape of the yaml config file.
// Durations are strings so the generated file stays readable.
type fileConfig struct {
	Port           int     `yaml:"port"`
	Provider       string  `yaml:"provider"`
	DB             string  `yaml:"db"`
	TTL            string  `yaml:"ttl"`
	RenderTimeout  string  `yaml:"render-timeout"`
	RequestTimeout string  `yaml:"request-timeout"`
	UA             string  `yaml:"ua"`
	MaxBytes       int64   `yaml:"max-bytes"`
	WebhookURL     string  `yaml:"webhook-url"`
	Namespace      string  `yaml:"namespace"`
	Coalesce       bool    `yaml:"coalesce"`
	RendersPerHost float64 `yaml:"renders-per-host"`
}

var configInitCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Initialize a default configuration file",
	Long:  `Create a default configuration file at ~/.render-cache/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}
		configDir := home + "/.render-cache"
		configPath := configDir + "/config.yaml"

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s", configPath)
		}
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		defaults := fileConfig{
			Port:           8080,
			Provider:       "sqlite",
			DB:             "cache.db",
			TTL:            "5m",
			RenderTimeout:  rendercache.DefaultRenderTimeout.String(),
			RequestTimeout: rendercache.DefaultRequestTimeout.String(),
			UA:             "render-cache/1.0",
			MaxBytes:       10 << 20,
			Namespace:      "render-cache",
		}
		yamlData, err := yaml.Marshal(defaults)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		header := "# render-cache configuration file\n" +
			"# Every setting can be overridden with a RENDER_CACHE_* environment\n" +
			"# variable or the matching CLI flag.\n\n"
		if err := os.WriteFile(configPath, append([]byte(header), yamlData...), 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		fmt.Printf("Created default configuration: %s\n", configPath)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
