package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"condorledger/internal/service"
	"condorledger/pkg/crypto"
)

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats SYMBOL",
		Short: "Show ledger statistics for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.ensureServices(ctx); err != nil {
				return err
			}

			stats, err := app.Ledger.GetStats(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return writeJSON(out, stats)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Symbol\t%s\n", strings.ToUpper(args[0]))
			fmt.Fprintf(tw, "Total trades\t%d\n", stats.TotalTrades)
			fmt.Fprintf(tw, "Open / closed\t%d / %d\n", stats.OpenTrades, stats.ClosedTrades)
			fmt.Fprintf(tw, "Total PnL\t%.2f\n", stats.TotalPnL)
			fmt.Fprintf(tw, "Win rate\t%.2f%%\n", stats.WinRate)
			fmt.Fprintf(tw, "Avg win / loss\t%.2f / %.2f\n", stats.AvgWin, stats.AvgLoss)
			return tw.Flush()
		},
	}
}

func newTradesCmd(app *App) *cobra.Command {
	var (
		limit  int
		status string
	)

	cmd := &cobra.Command{
		Use:   "trades SYMBOL",
		Short: "List the most recent trades with their resolved outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.ensureServices(ctx); err != nil {
				return err
			}

			trades, err := app.Ledger.GetTrades(ctx, args[0], limit, status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return writeJSON(out, trades)
			}
			return renderTrades(out, trades)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of trades (0 uses the server default)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status: open or closed")

	return cmd
}

func renderTrades(w io.Writer, trades []service.TradeView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLEVEL\tEXPIRATION\tPUTS\tCALLS\tCREDIT\tSTATUS\tOUTCOME\tPNL")
	for _, t := range trades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g/%g\t%g/%g\t%.2f\t%s\t%s\t%.2f\n",
			t.ID,
			t.Level,
			t.Expiration.Format("2006-01-02"),
			t.PutBuyStrike, t.PutSellStrike,
			t.CallSellStrike, t.CallBuyStrike,
			t.Credit,
			t.Status,
			t.Resolution.Outcome,
			t.Resolution.PnL,
		)
	}
	return tw.Flush()
}

func newTradeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trade SYMBOL ID",
		Short: "Show one trade with its status resolved against the whole ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.ensureServices(ctx); err != nil {
				return err
			}

			trade, err := app.Ledger.GetTrade(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return writeJSON(out, trade)
			}
			return renderTrades(out, []service.TradeView{*trade})
		},
	}
}

func newSetLevelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-level SYMBOL LEVEL",
		Short: "Change the bot configuration level for a symbol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.ensureServices(ctx); err != nil {
				return err
			}

			cfg, err := app.Admin.ApplyConfigEdit(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return writeJSON(out, cfg)
			}
			fmt.Fprintf(out, "%s level set to %s\n", cfg.Symbol, cfg.CurrentLevel)
			return nil
		},
	}
}

func newDeleteTradeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-trade SYMBOL ID",
		Short: "Delete a trade from the ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.ensureServices(ctx); err != nil {
				return err
			}

			if err := app.Admin.DeleteTrade(ctx, args[1], args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "trade %s deleted from %s\n", args[1], strings.ToUpper(args[0]))
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [PASSWORD]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  "Hashes PASSWORD, or the first line of stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			if password == "" {
				return fmt.Errorf("password must not be empty")
			}

			hash, err := crypto.HashPasswordWithCost(password, cost)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", crypto.DefaultCost, "bcrypt cost")

	return cmd
}
