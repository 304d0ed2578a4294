package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sead/sqlassist/pkg/assistant"
	"github.com/sead/sqlassist/pkg/config"
	"github.com/sead/sqlassist/pkg/llm"
	"github.com/sead/sqlassist/pkg/vector"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sqlassist",
	Short: "Natural-language SQL assistant for the SEAD database",
	Long: `sqlassist keeps the training data of a retrieval-augmented SQL assistant for the
Strategic Environmental Archaeology Database (SEAD) in step with the authored content,
and answers questions about SEAD with SQL from the terminal or a web front-end.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		cfg = c

		lvl, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil || lvl == zerolog.NoLevel {
			lvl = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(lvl)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// app holds the connections shared by the subcommands.
type app struct {
	DB        *sqlx.DB
	LLM       *llm.Client
	Vector    *vector.Service
	Store     *vector.TrainingStore
	History   *vector.HistoryStore
	Assistant *assistant.Service
}

func connect(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SEAD database: %w", err)
	}

	llmCli := llm.New(cfg)
	vs, err := vector.New(ctx, cfg, llmCli)
	if err != nil {
		db.Close()
		return nil, err
	}
	store, err := vector.NewTrainingStore(ctx, vs, cfg.RetrievalLimit)
	if err != nil {
		vs.Close()
		db.Close()
		return nil, err
	}
	history, err := vector.NewHistory(ctx, vs)
	if err != nil {
		vs.Close()
		db.Close()
		return nil, err
	}

	return &app{
		DB:        db,
		LLM:       llmCli,
		Vector:    vs,
		Store:     store,
		History:   history,
		Assistant: assistant.New(db, store, llmCli, history, cfg.MaxPromptTokens, cfg.AllowLLMToSeeData),
	}, nil
}

func (a *app) Close() {
	a.Vector.Close()
	a.DB.Close()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Command failed")
	}
}
