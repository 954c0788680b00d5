package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hitoshi/presence-analyzer/internal/model"
)

// NewRootCmd はpresence-analyzerのルートコマンドを返す。
// サブコマンドなしで起動した場合はserveとして動作する。
// ログとコマンド出力はwに書き込む。
func NewRootCmd(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "presence-analyzer",
		Short: "Presence analyzer - weekday presence statistics over HTTP",
		Long: `presence-analyzer reads per-day presence records from a CSV file
and serves weekday statistics per user as JSON, with a small dashboard.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, w)
		},
	}
	root.SetOut(w)

	root.AddCommand(ServeCmd(w))
	root.AddCommand(FetchUsersCmd(w))
	root.AddCommand(ReportCmd(w))
	root.AddCommand(HealthcheckCmd())

	return root
}

// ServeCmd はAPIサーバーを起動するコマンドを返す。
func ServeCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, w)
		},
	}
}

func serve(cmd *cobra.Command, w io.Writer) error {
	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", "serve"),
		slog.String("port", cfg.ServerPort),
	)

	// SIGINTまたはSIGTERMでグレースフルシャットダウンする
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, log)
}

// FetchUsersCmd はusers.xmlを1回だけ取得するコマンドを返す。
func FetchUsersCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-users",
		Short: "Download users.xml from USERS_XML_SOURCE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			comps := newComponents(cfg, nil, log, true)
			if err := comps.fetcher.Fetch(cmd.Context()); err != nil {
				return fmt.Errorf("fetch users: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("updated"), cfg.UsersXML)
			return nil
		},
	}
}

// ReportCmd は1ユーザーの統計をテキストで出力するコマンドを返す。
func ReportCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "report <user_id>",
		Short: "Print weekday statistics for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, ok := model.ParseUserID(args[0])
			if !ok {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			cfg, log, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			// レポートではusers.xmlを取得しにいかない
			comps := newComponents(cfg, nil, log, false)
			return writeReport(cmd.Context(), cmd.OutOrStdout(), comps, userID)
		},
	}
}

// HealthcheckCmd はローカルの/healthを確認するコマンドを返す。
// 軽量サブコマンドのため、フル初期化をスキップする。
func HealthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Check the local /health endpoint (for container health checks)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(healthcheckURL())
		},
	}
}
