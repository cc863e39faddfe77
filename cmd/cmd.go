// Package cmd wires the Votify command line interface.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mkarlsv/votify/api"
	"github.com/mkarlsv/votify/cache"
	"github.com/mkarlsv/votify/config"
	"github.com/mkarlsv/votify/notify"
	"github.com/mkarlsv/votify/notify/email"
	"github.com/mkarlsv/votify/scheduler"
	"github.com/mkarlsv/votify/store"
)

var rootCmdPersistentFlags struct {
	LogFile    string
	ConfigFile string
	LogLevel   string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogFile, "log-file", "", "File to write logs to")
	rootCmd.PersistentFlags().StringVarP(&rootCmdPersistentFlags.ConfigFile, "config", "c", "", "Path to config file (default: search for config.yml in current dir, ~/.votify, /etc/votify)")
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogLevel, "log-level", "", "Log level (debug, info, warn, error) - overrides config file setting")
}

var rootCmd = &cobra.Command{
	Use:   "votify",
	Short: "Votify is a small web application for live voting sessions",
	Long:  `Votify lets administrators create time-bounded voting sessions with slides and user groups, while participants cast votes and follow the results.`,
	Example: `votify --config config.yml
  votify -c /path/to/config.yml --log-level debug`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logToFile()
	},
	Run: root,
}

func root(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	setLogLevel(cfg, rootCmdPersistentFlags.LogLevel)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := store.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close() //nolint:errcheck

	if err := st.EnsureDefaultGroup(ctx); err != nil {
		log.Fatalf("failed to ensure default group: %v", err)
	}

	sessions := cache.NewSessions(cfg.Cache)
	notifier := notify.New(st, email.New(cfg.Email, cfg.ServerURL))

	sched, err := scheduler.New()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	registerJobs(cfg, sched, st, sessions, notifier)
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Error("failed to shut down scheduler", "error", err)
		}
	}()

	server, err := api.New(cfg, st, sessions)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	// Start the API server in a goroutine
	go func() {
		log.Info("starting API server", "listen", cfg.Listen)
		if err := server.Run(); err != nil {
			log.Error("API server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Info("votify started successfully")
	<-c
	log.Info("shutting down gracefully...")

	cancel()
	time.Sleep(2 * time.Second)
}

func registerJobs(cfg *config.Config, sched *scheduler.Scheduler, st *store.Store, sessions *cache.Sessions, notifier *notify.Notifier) {
	refresh := time.Duration(cfg.Scheduler.CacheRefreshMinutes) * time.Minute
	if err := sched.AddIntervalJob("session-cache-refresh", refresh, func(ctx context.Context) error {
		list, err := st.ListSessions(ctx)
		if err != nil {
			return err
		}
		return sessions.Set(ctx, list)
	}); err != nil {
		log.Fatalf("failed to schedule cache refresh: %v", err)
	}

	notifyInterval := time.Duration(cfg.Scheduler.NotifyMinutes) * time.Minute
	if err := sched.AddIntervalJob("session-open-notify", notifyInterval, notifier.NotifyOpenSessions); err != nil {
		log.Fatalf("failed to schedule notifications: %v", err)
	}
}

func setLogLevel(cfg *config.Config, override string) {
	level := cfg.LogLevel
	if override != "" {
		level = override
	}
	switch level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Warnf("unknown log level %s, defaulting to info", level)
		log.SetLevel(log.InfoLevel)
	}
}

func logToFile() {
	if rootCmdPersistentFlags.LogFile == "" {
		return
	}
	file, err := os.OpenFile(rootCmdPersistentFlags.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		log.Errorf("failed to open log file: %v", err)
		return
	}

	// Create a multi-writer that writes to both console and file
	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.Info("logging to both console and file", "file", rootCmdPersistentFlags.LogFile)
}

func Execute() error {
	return rootCmd.Execute()
}
