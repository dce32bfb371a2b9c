// Package cli - операторская утилита condorctl для журнала iron condor сделок.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"condorledger/internal/config"
	"condorledger/internal/repository"
	"condorledger/internal/service"
	"condorledger/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// commandTimeout - предел выполнения одной команды против хранилища
const commandTimeout = 30 * time.Second

// App хранит зависимости команд
type App struct {
	Ledger service.LedgerServiceInterface
	Admin  service.AdminServiceInterface

	// Connect поднимает сервисы из окружения; вызывается только командами,
	// которым нужно хранилище, и только если Ledger еще не задан
	Connect func(ctx context.Context, app *App) error

	db *sql.DB
}

// NewApp возвращает App, подключающийся к БД по переменным окружения
func NewApp() *App {
	return &App{Connect: connectFromEnv}
}

// NewRootCmd создает корневую команду condorctl
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "condorctl",
		Short: "Operator tool for the iron condor trade ledger",
		Long: `condorctl reads ledger statistics and applies admin edits
directly against the ledger store, using the same environment as the server.

Use 'condorctl hash-password' to produce ADMIN_PASSWORD_HASH.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newTradeCmd(app))
	rootCmd.AddCommand(newSetLevelCmd(app))
	rootCmd.AddCommand(newDeleteTradeCmd(app))
	rootCmd.AddCommand(newHashPasswordCmd())

	return rootCmd
}

// Close закрывает соединение с БД, если оно было открыто
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) ensureServices(ctx context.Context) error {
	if a.Ledger != nil && a.Admin != nil {
		return nil
	}
	if a.Connect == nil {
		return fmt.Errorf("ledger store is not configured")
	}
	return a.Connect(ctx, a)
}

// connectFromEnv собирает сервисы так же, как сервер, но без WebSocket hub
func connectFromEnv(ctx context.Context, app *App) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: "text",
		Output: "stderr",
	})

	db, err := repository.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	tradeRepo := repository.NewTradeRepository(db)
	configRepo := repository.NewBotConfigRepository(db)

	ledger := service.NewLedgerService(tradeRepo, configRepo, cfg.Partitions, cfg.Ledger)
	app.Ledger = ledger
	app.Admin = service.NewAdminService(tradeRepo, configRepo, cfg.Partitions, ledger)
	app.db = db

	return nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
