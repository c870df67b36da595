package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Ivanka58/OpenAI-GPT/bot"
	"github.com/Ivanka58/OpenAI-GPT/internal/healthcheck"
	"github.com/Ivanka58/OpenAI-GPT/internal/logutil"
	"github.com/Ivanka58/OpenAI-GPT/internal/telegram"
	"github.com/Ivanka58/OpenAI-GPT/providers/openai"
	"github.com/Ivanka58/OpenAI-GPT/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot (long poll)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd)
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().String("telegram-base-url", "https://api.telegram.org", "Telegram Bot API base URL.")
	cmd.Flags().String("admin-id", "", "Telegram user id of the administrator.")
	cmd.Flags().String("admin-password", "", "Password for admin command flows.")
	cmd.Flags().String("llm-endpoint", "https://api.openai.com", "OpenAI-compatible API endpoint.")
	cmd.Flags().String("llm-api-key", "", "API key for the model provider.")
	cmd.Flags().String("llm-model", "gpt-4o", "Model name for chat completions.")
	cmd.Flags().String("db-driver", "sqlite", "Database driver: sqlite|postgres.")
	cmd.Flags().String("db-dsn", "", "Database DSN (sqlite file path or postgres DSN).")
	cmd.Flags().Duration("poll-timeout", 30*time.Second, "Long-poll timeout for getUpdates.")
	cmd.Flags().Duration("task-timeout", 2*time.Minute, "Per-event handling timeout.")
	cmd.Flags().Int("max-concurrency", 8, "Max concurrently handled events.")
	cmd.Flags().Int("history-limit", 50, "Conversation turns loaded per model call.")
	cmd.Flags().Duration("uptime-limit", 0, "Stop after this duration so a supervisor restarts the process (0 disables).")
	cmd.Flags().String("health-listen", "", "Health endpoint listen address (empty disables).")

	_ = viper.BindPFlag("telegram.bot_token", cmd.Flags().Lookup("telegram-bot-token"))
	_ = viper.BindPFlag("telegram.base_url", cmd.Flags().Lookup("telegram-base-url"))
	_ = viper.BindPFlag("admin.id", cmd.Flags().Lookup("admin-id"))
	_ = viper.BindPFlag("admin.password", cmd.Flags().Lookup("admin-password"))
	_ = viper.BindPFlag("llm.endpoint", cmd.Flags().Lookup("llm-endpoint"))
	_ = viper.BindPFlag("llm.api_key", cmd.Flags().Lookup("llm-api-key"))
	_ = viper.BindPFlag("llm.model", cmd.Flags().Lookup("llm-model"))
	_ = viper.BindPFlag("db.driver", cmd.Flags().Lookup("db-driver"))
	_ = viper.BindPFlag("db.dsn", cmd.Flags().Lookup("db-dsn"))
	_ = viper.BindPFlag("runtime.poll_timeout", cmd.Flags().Lookup("poll-timeout"))
	_ = viper.BindPFlag("runtime.task_timeout", cmd.Flags().Lookup("task-timeout"))
	_ = viper.BindPFlag("runtime.max_concurrency", cmd.Flags().Lookup("max-concurrency"))
	_ = viper.BindPFlag("runtime.history_limit", cmd.Flags().Lookup("history-limit"))
	_ = viper.BindPFlag("runtime.uptime_limit", cmd.Flags().Lookup("uptime-limit"))
	_ = viper.BindPFlag("health.listen", cmd.Flags().Lookup("health-listen"))

	viper.SetDefault("admin.password", "secret123")

	return cmd
}

func runBot(cmd *cobra.Command) error {
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	token := strings.TrimSpace(viper.GetString("telegram.bot_token"))
	if token == "" {
		return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
	}

	storeCfg := store.DefaultConfig()
	storeCfg.Driver = viper.GetString("db.driver")
	storeCfg.DSN = viper.GetString("db.dsn")
	st, err := store.Open(storeCfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	client := openai.New(viper.GetString("llm.endpoint"), viper.GetString("llm.api_key"))

	api := telegram.NewAPI(&http.Client{Timeout: 60 * time.Second}, viper.GetString("telegram.base_url"), token)

	router, err := bot.NewRouter(bot.RouterOptions{
		Store:        st,
		Transport:    api,
		LLM:          client,
		Model:        viper.GetString("llm.model"),
		AdminID:      viper.GetString("admin.id"),
		Secret:       viper.GetString("admin.password"),
		HistoryLimit: viper.GetInt("runtime.history_limit"),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthListen := healthcheck.NormalizeListen(viper.GetString("health.listen"))
	if healthListen != "" {
		if _, err := healthcheck.StartServer(ctx, logger, healthListen, "vipbot"); err != nil {
			logger.Warn("health_server_start_error", "addr", healthListen, "error", err.Error())
		}
	}

	// ErrUptimeLimit propagates as a non-zero exit so a supervisor restarts
	// the process with fresh state.
	return telegram.Run(ctx, api, router, telegram.RuntimeOptions{
		PollTimeout:    viper.GetDuration("runtime.poll_timeout"),
		EventTimeout:   viper.GetDuration("runtime.task_timeout"),
		MaxConcurrency: viper.GetInt("runtime.max_concurrency"),
		UptimeLimit:    viper.GetDuration("runtime.uptime_limit"),
		Logger:         logger,
	})
}
