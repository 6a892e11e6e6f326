package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
)

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// queryTracer は閾値を超えたクエリと失敗したクエリを記録します。引数は記録しません。
type queryTracer struct {
	log       *logger.Logger
	threshold time.Duration
	now       func() time.Time
}

func newQueryTracer(log *logger.Logger, threshold time.Duration) *queryTracer {
	return &queryTracer{
		log:       log.With("component", "postgres"),
		threshold: threshold,
		now:       time.Now,
	}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: t.now()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := t.now().Sub(start.at)

	switch {
	case data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) && !errors.Is(data.Err, context.Canceled):
		t.log.Debug("query failed", "sql", compactSQL(start.sql), "duration", elapsed, "error", data.Err)
	case elapsed >= t.threshold:
		t.log.Warn("slow query", "sql", compactSQL(start.sql), "duration", elapsed, "rows", data.CommandTag.RowsAffected())
	}
}

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
