package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"batchbook/matcheng"
)

const shutdownTimeout = 10 * time.Second

func main() {
	loadDotEnv()

	v := newViper()
	cmd, err := newRootCmd(v)
	if err != nil {
		log.Fatal(err)
	}
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd(v *viper.Viper) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:           "batchbook",
		Short:         "订单簿深度与集合竞价估算服务",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	if err := registerFlags(v, root.PersistentFlags()); err != nil {
		return nil, err
	}
	root.AddCommand(newPlotCmd(v))
	return root, nil
}

// newPlotCmd 从 Redis 读取一次快照并输出供需曲线
func newPlotCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "plot PAIR",
		Short: "输出交易对的累计供需曲线",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(v)
			if err != nil {
				return err
			}
			var market Market
			for _, m := range cfg.Markets {
				if m.Pair == args[0] {
					market = m
				}
			}
			if market.Pair == "" {
				return fmt.Errorf("%w: %s", errUnknownPair, args[0])
			}

			rc := NewRedisClient(cfg)
			defer rc.Close()
			snap, err := rc.LoadSnapshot(cmd.Context(), market)
			if err != nil {
				return err
			}
			view, err := BuildView(market, snap, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), matcheng.PlotCurves(matcheng.Cumulate(view.BidLevels), matcheng.Cumulate(view.AskLevels)))
			return nil
		},
	}
}

func serve(parent context.Context, cfg Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化 Redis
	rc := NewRedisClient(cfg)
	defer rc.Close()
	if err := rc.Ping(ctx); err != nil {
		log.Printf("Redis 暂不可用，将在刷新时重试: %v", err)
	}

	cache := newViewCache()
	metrics := NewMetrics()
	hub := NewHub()
	refresher := NewRefresher(cfg, rc, cache, metrics)
	refresher.hub = hub
	refresher.publisher = rc

	// 初始化 PostgreSQL（可选）
	var history HistoryStore
	if cfg.PostgresDSN != "" {
		pc, err := NewPostgresClient(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pc.Close()
		history = pc
		refresher.history = pc
	} else {
		log.Println("未配置 PostgreSQL，不记录估算历史")
	}

	server := NewServer(cfg.Markets, cache, hub, metrics, history)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go refresher.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP 服务器启动在 %s，交易对 %d 个，刷新间隔 %s", cfg.HTTPAddr, len(cfg.Markets), cfg.RefreshInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务器启动失败: %w", err)
		}
	}

	log.Println("正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP 服务器关闭失败: %w", err)
	}
	return nil
}
