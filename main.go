package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	port       string
	answers    bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "jeopardy",
		Short:        "Trivia board served to the browser",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config/config.yaml)")
	root.AddCommand(serveCmd(), dealCmd())
	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Load(configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides config)")
	return cmd
}

func dealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deal",
		Short: "Deal one board and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Load(configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Env)
			if err != nil {
				return err
			}
			defer log.Sync()

			source, closer, err := newCategorySource(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Session.DealTimeout)
			defer cancel()

			sess := NewSession()
			if err := sess.Restart(ctx, NewDealer(source, cfg.Board, log), nil); err != nil {
				return err
			}
			if answers {
				revealAll(sess, cfg.Board.Categories, cfg.Board.Clues)
			}

			v := NewGameView(sess)
			return WriteBoardText(cmd.OutOrStdout(), *v.Board)
		},
	}
	cmd.Flags().BoolVarP(&answers, "answers", "a", false, "print answers instead of hidden cells")
	return cmd
}

// revealAll clicks every cell through to its answer.
func revealAll(sess *Session, columns, rows int) {
	for col := range columns {
		for row := range rows {
			for range 2 {
				sess.Reveal(col, row)
			}
		}
	}
}

func serve(parent context.Context, cfg *Config) error {
	log, err := newLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, closer, err := newCategorySource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	srv := NewServer(NewStore(), NewDealer(source, cfg.Board, log), cfg.Session.StartsPerMinute, log)
	srv.dealTimeout = cfg.Session.DealTimeout

	go func() {
		if err := srv.RunSweeper(ctx, cfg.Session.SweepSchedule, cfg.Session.TTL); err != nil {
			log.Error("session sweeper", zap.Error(err))
		}
	}()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with ctx instead of holding Shutdown open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("url", "http://localhost:"+cfg.Port))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	srv.Wait()
	return nil
}
