package postgres

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationSource はマイグレーションの読み込み元を表します。Dir が空の場合はバイナリに埋め込んだ SQL を利用します。
type MigrationSource struct {
	Dir string
}

// Migrator は golang-migrate のラッパーです。
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator は DSN とマイグレーションの読み込み元から Migrator を生成します。
func NewMigrator(dsn string, src MigrationSource, log *logger.Logger) (*Migrator, error) {
	var (
		m   *migrate.Migrate
		err error
	)

	if src.Dir != "" {
		absDir, absErr := filepath.Abs(src.Dir)
		if absErr != nil {
			return nil, fmt.Errorf("resolve path for %s: %w", src.Dir, absErr)
		}
		m, err = migrate.New("file://"+filepath.ToSlash(absDir), dsn)
	} else {
		driver, srcErr := iofs.New(embeddedMigrations, "migrations")
		if srcErr != nil {
			return nil, fmt.Errorf("postgres: open embedded migrations: %w", srcErr)
		}
		m, err = migrate.NewWithSourceInstance("iofs", driver, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: create migrate instance: %w", err)
	}

	if log != nil {
		m.Log = migrateLogger{log: log.With("component", "migrate")}
	}

	return &Migrator{m: m}, nil
}

// Close は基になるソースとデータベース接続を閉じます。
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Up は未適用のマイグレーションをすべて適用します。dirty 状態の場合は現在のバージョンへ強制した上で再適用します。
func (mg *Migrator) Up() error {
	version, dirty, err := mg.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("postgres: read migration version: %w", err)
	}
	if dirty {
		if err := mg.m.Force(int(version)); err != nil {
			return fmt.Errorf("postgres: force version %d: %w", version, err)
		}
	}

	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Run は CLI から指定されたアクションを実行します。version の場合は現在のバージョンを返します。
func (mg *Migrator) Run(action string, args ...string) (string, error) {
	switch action {
	case "up":
		return "", mg.Up()
	case "down":
		if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return "", err
		}
		return "", nil
	case "drop":
		return "", mg.m.Drop()
	case "force":
		if len(args) == 0 {
			return "", fmt.Errorf("force requires a version argument")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return "", mg.m.Force(v)
	case "version":
		version, dirty, err := mg.m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				return "no migration applied", nil
			}
			return "", err
		}
		return fmt.Sprintf("version=%d dirty=%t", version, dirty), nil
	default:
		return "", fmt.Errorf("unsupported action %q", action)
	}
}

type migrateLogger struct {
	log *logger.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return false
}
