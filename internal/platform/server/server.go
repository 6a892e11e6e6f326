package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ogurasousui/construction-api/internal/platform/config"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	defaultHealthInterval  = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	pingTimeout            = 2 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// Pinger はデータベースの疎通確認に利用します。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server は HTTP API とヘルスチェック用 gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr       string
	healthListenAddr string
	shutdownTimeout  time.Duration
	healthInterval   time.Duration

	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	db         Pinger
	log        *logger.Logger
}

// Option は Server の挙動を調整します。
type Option func(*Server)

// WithHealthInterval はデータベース疎通確認の間隔を変更します。
func WithHealthInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.healthInterval = d
		}
	}
}

// New は HTTP ハンドラとヘルスチェック対象から Server を構築します。
func New(cfg config.ServerConfig, handler http.Handler, db Pinger, log *logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.NewNop()
	}

	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	s := &Server{
		listenAddr:       cfg.ListenAddr,
		healthListenAddr: cfg.HealthListenAddr,
		shutdownTimeout:  cfg.ShutdownTimeout,
		healthInterval:   defaultHealthInterval,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		grpcServer: grpcSrv,
		health:     healthSrv,
		db:         db,
		log:        log.With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run は設定されたアドレスで待ち受けを開始し、コンテキストがキャンセルされると停止します。
// ヘルスチェック用のアドレスが空の場合は gRPC サーバーを起動しません。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}

	var healthLis net.Listener
	if s.healthListenAddr != "" {
		healthLis, err = net.Listen("tcp", s.healthListenAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("listen on %s: %w", s.healthListenAddr, err)
		}
	}

	return s.Serve(ctx, httpLis, healthLis)
}

// Serve は与えられたリスナーで待ち受けます。healthLis は nil でも構いません。
func (s *Server) Serve(ctx context.Context, httpLis, healthLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("HTTP server listening", "addr", httpLis.Addr().String())
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	if healthLis != nil {
		g.Go(func() error {
			s.log.Info("gRPC health server listening", "addr", healthLis.Addr().String())
			if err := s.grpcServer.Serve(healthLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC health: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			s.watchDatabase(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.health.Shutdown()
	s.grpcServer.GracefulStop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown HTTP: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) watchDatabase(ctx context.Context) {
	s.checkDatabase(ctx)

	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkDatabase(ctx)
		}
	}
}

func (s *Server) checkDatabase(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.db.Ping(pingCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("database ping failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
}
