package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/username/business-calendar/internal/calendar"
	"github.com/username/business-calendar/internal/config"
)

var (
	configPath string
	logger     = zap.NewNop()
	cfg        *config.Config
	cfgErr     error
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "business-calendar",
		Short:         "Business day calculator",
		Long:          "Check holidays and business days and shift dates by business days for a jurisdiction or a remote holiday feed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config to get log settings; commands that need a
			// calendar report cfgErr themselves
			cfg, cfgErr = config.Load(configPath, cmd.Root().PersistentFlags())

			level, logFile := "warn", ""
			if cfgErr == nil {
				level, logFile = cfg.Log.Level, cfg.Log.File
			}

			var err error
			if logFile != "" {
				logger, err = initFileLogger(logFile, level)
			} else {
				logger, err = initLogger(level)
			}
			if err != nil {
				logger = zap.NewNop()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file path (default: ./config.yaml if present)")
	flags.StringP("jurisdiction", "j", "", "Holiday table to use, e.g. US or GB")
	flags.String("additions-url", "", "Endpoint listing holidays to add")
	flags.String("removals-url", "", "Endpoint listing holidays to remove")
	flags.Bool("business-weekends", false, "Treat Saturday and Sunday as business days")
	flags.String("ttl", "", "Remote holiday cache TTL: duration, seconds, 0 or disabled (default 24h)")
	flags.String("http-timeout", "", "Remote fetch timeout (default 10s)")
	flags.Int("fetch-retries", 0, "Attempts per remote request (default 1)")
	flags.String("overrides-file", "", "File of local 'YYYY-MM-DD holiday|workday' corrections")
	flags.String("log-file", "", "Write JSON logs to this file instead of stderr")
	flags.String("log-level", "", "Log level (default info)")
	flags.String("listen", "", "Address for the serve command (default :8080)")

	rootCmd.AddCommand(
		isHolidayCmd(),
		isBusinessDayCmd(),
		nearestCmd(),
		followingCmd(),
		precedingCmd(),
		addCmd(),
		holidaysCmd(),
		jurisdictionsCmd(),
		serveCmd(),
	)

	return rootCmd
}

// loadCalendar builds the calendar described by the loaded config
func loadCalendar() (*calendar.BusinessCalendar, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("failed to load config: %w", cfgErr)
	}
	return initializeCalendar(cfg)
}

func initializeCalendar(cfg *config.Config) (*calendar.BusinessCalendar, error) {
	ttl := cfg.Calendar.GetTTL()
	if ttl == config.TTLDisabled {
		ttl = calendar.TTLDisabled
	}

	opts := []calendar.Option{
		calendar.WithBusinessWeekends(cfg.Calendar.BusinessWeekends),
		calendar.WithTTL(ttl),
		calendar.WithDecisionCacheCapacity(cfg.Calendar.DecisionCacheSize),
		calendar.WithHTTPClient(&http.Client{Timeout: cfg.Calendar.GetHTTPTimeout()}),
		calendar.WithOverridesFile(cfg.Calendar.OverridesFile),
		calendar.WithFetchRetries(cfg.Calendar.FetchRetries, time.Second),
		calendar.WithLogger(logger),
	}

	if cfg.Calendar.IsRemote() {
		logger.Info("Using remote holiday feed",
			zap.String("additions_url", cfg.Calendar.AdditionsURL),
			zap.String("removals_url", cfg.Calendar.RemovalsURL),
			zap.Duration("ttl", ttl))
		return calendar.ForEndpoints(cfg.Calendar.AdditionsURL, cfg.Calendar.RemovalsURL, opts...)
	}

	logger.Info("Using holiday table", zap.String("jurisdiction", cfg.Calendar.Jurisdiction))
	return calendar.ForJurisdiction(cfg.Calendar.Jurisdiction, opts...)
}

func initLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Encoding = "console"

	zapLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	config.Level = zapLevel

	return config.Build()
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,  // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	// Setup encoder
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}
