package pgconn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies the embedded schema migrations from fsys (rulestore
// ships them as rulestore.Migrations). goose wants a database/sql handle,
// so the pool is bridged through pgx's stdlib adapter for the duration.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration bridge", slog.Any("error", err))
		}
	}()

	goose.SetBaseFS(fsys)
	goose.SetLogger(gooseSlog{ctx: ctx, log: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// gooseSlog routes goose's printf logging into slog.
type gooseSlog struct {
	ctx context.Context
	log *slog.Logger
}

func (g gooseSlog) Fatalf(format string, v ...any) {
	g.log.ErrorContext(g.ctx, fmt.Sprintf(format, v...))
}

func (g gooseSlog) Printf(format string, v ...any) {
	g.log.InfoContext(g.ctx, fmt.Sprintf(format, v...))
}
