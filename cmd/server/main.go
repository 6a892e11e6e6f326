package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/construction-api/internal/adapters/http/handler"
	"github.com/ogurasousui/construction-api/internal/adapters/http/middleware"
	"github.com/ogurasousui/construction-api/internal/adapters/http/router"
	"github.com/ogurasousui/construction-api/internal/adapters/repository/postgres"
	"github.com/ogurasousui/construction-api/internal/core/employee"
	"github.com/ogurasousui/construction-api/internal/core/material"
	"github.com/ogurasousui/construction-api/internal/core/project"
	"github.com/ogurasousui/construction-api/internal/platform/config"
	pg "github.com/ogurasousui/construction-api/internal/platform/db/postgres"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
	"github.com/ogurasousui/construction-api/internal/platform/server"
	"github.com/ogurasousui/construction-api/internal/platform/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize tracing", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			appLog.Warn("failed to shutdown tracing", "error", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := migrate(cfg.Database, appLog); err != nil {
			appLog.Fatal("failed to apply migrations", "error", err)
		}
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize database pool", "error", err)
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool)
	// 上長の循環検査は読み取った連鎖に依存するため、従業員の書き込みは直列化可能で実行する。
	employeeTx := pg.NewTransactionManager(dbPool, pg.WithIsolationLevel(pgx.Serializable))

	employeeSvc := employee.NewService(postgres.NewEmployeeRepository(dbPool), nil, employeeTx)
	projectSvc := project.NewService(
		postgres.NewProjectRepository(dbPool),
		postgres.NewAssignmentRepository(dbPool),
		nil,
		txManager,
	)
	materialSvc := material.NewService(
		postgres.NewMaterialRepository(dbPool),
		postgres.NewAllocationRepository(dbPool),
		nil,
		txManager,
	)

	engine := router.New(router.Config{
		Health:    handler.NewHealthHandler(dbPool, appLog),
		Employees: handler.NewEmployeeHandler(employeeSvc, appLog),
		Projects:  handler.NewProjectHandler(projectSvc, materialSvc, appLog),
		Materials: handler.NewMaterialHandler(materialSvc, appLog),
		Auth:      middleware.NewAuthenticator(cfg.Auth, appLog),
		CORS:      cfg.CORS,
		Tracing:   cfg.Tracing,
		Logger:    appLog,
	})

	srv := server.New(cfg.Server, engine, dbPool, appLog)
	if err := srv.Run(ctx); err != nil {
		appLog.Fatal("server stopped with error", "error", err)
	}
}

func migrate(cfg config.DatabaseConfig, appLog *logger.Logger) error {
	m, err := pg.NewMigrator(cfg.DSN(), pg.MigrationSource{}, appLog)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up()
}
