// Package cmd holds the console's cobra commands.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/console/internal/viewer"
	"github.com/noemamarkets/pulse/pkg/config"
)

var (
	addr     string
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal viewer for the pulse dashboard",
	Long: `Terminal viewer for the pulse dashboard.

Connects to the dashboard websocket, renders every section and accepts:
    add SYMBOL     add a symbol to the watchlist
    rm SYMBOL      remove a symbol (asks for confirmation)
    refresh        redraw the board
    quit           leave
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; flags and env vars still apply without it.
		_ = godotenv.Load()
		if v := os.Getenv("PULSE_WS_ADDR"); v != "" && !cmd.Flags().Changed("addr") {
			addr = v
		}
		return nil
	},
	RunE: run,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "ws://localhost:8080/ws", "dashboard websocket address")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "log level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := config.NewLogger(config.LoggerConfig{
		Level:      logLevel,
		Format:     "console",
		File:       logFile,
		MaxSizeMB:  10,
		MaxBackups: 1,
		MaxAgeDays: 7,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, err := viewer.Dial(dialCtx, addr)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	session := viewer.NewSession(cmd.OutOrStdout(), conn, viewer.NewBoard(), logger)
	if err := session.Subscribe(); err != nil {
		return err
	}

	disconnected := make(chan error, 1)
	go func() {
		disconnected <- conn.Listen(session.HandleMessage)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-disconnected:
			logger.Warn("Connection closed", zap.Error(err))
			return fmt.Errorf("disconnected from %s: %w", addr, err)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := session.HandleLine(line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}
