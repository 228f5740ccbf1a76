package rulestore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/rule"
)

// Migrations holds the schema for the Postgres backend. Apply with
// pgconn.Migrate before constructing the repository.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose walks.
const MigrationsDir = "migrations"

// PostgresRepository stores rule documents as JSONB rows. The id and
// rule_set_id columns are lifted out of the document for indexed lookups.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository binds the repository to an established pool.
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.NewPostgresRepository", ErrNilPool)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (p *PostgresRepository) FindByRuleSetID(ctx context.Context, ruleSetID string) ([]rule.Rule, error) {
	const op = "rulestore.postgres.FindByRuleSetID"

	if ruleSetID == "" {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyRuleSetID)
	}
	return p.query(ctx, op,
		`SELECT doc FROM fluxgate_rules WHERE rule_set_id = $1 ORDER BY id`, ruleSetID)
}

func (p *PostgresRepository) FindByID(ctx context.Context, id string) (rule.Rule, error) {
	const op = "rulestore.postgres.FindByID"

	if id == "" {
		return rule.Rule{}, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyID)
	}

	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT doc FROM fluxgate_rules WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rule.Rule{}, ErrNotFound
		}
		return rule.Rule{}, wrapPostgres(op, err)
	}

	var r rule.Rule
	if err := json.Unmarshal(raw, &r); err != nil {
		return rule.Rule{}, fluxerr.New(fluxerr.KindSerialization, op, err)
	}
	return r, nil
}

func (p *PostgresRepository) Save(ctx context.Context, r rule.Rule) error {
	const op = "rulestore.postgres.Save"

	if err := r.Validate(); err != nil {
		return fluxerr.New(fluxerr.KindInvalidArgument, op, err)
	}

	doc, err := json.Marshal(r)
	if err != nil {
		return fluxerr.New(fluxerr.KindSerialization, op, err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO fluxgate_rules (id, rule_set_id, enabled, doc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			rule_set_id = EXCLUDED.rule_set_id,
			enabled = EXCLUDED.enabled,
			doc = EXCLUDED.doc,
			updated_at = now()`,
		r.ID, r.RuleSetID, r.Enabled, doc)
	if err != nil {
		return wrapPostgres(op, err)
	}
	return nil
}

func (p *PostgresRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	const op = "rulestore.postgres.DeleteByID"

	if id == "" {
		return false, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyID)
	}

	tag, err := p.pool.Exec(ctx, `DELETE FROM fluxgate_rules WHERE id = $1`, id)
	if err != nil {
		return false, wrapPostgres(op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresRepository) FindAll(ctx context.Context) ([]rule.Rule, error) {
	return p.query(ctx, "rulestore.postgres.FindAll",
		`SELECT doc FROM fluxgate_rules ORDER BY id`)
}

func (p *PostgresRepository) DeleteByRuleSetID(ctx context.Context, ruleSetID string) (int64, error) {
	const op = "rulestore.postgres.DeleteByRuleSetID"

	if ruleSetID == "" {
		return 0, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyRuleSetID)
	}

	tag, err := p.pool.Exec(ctx, `DELETE FROM fluxgate_rules WHERE rule_set_id = $1`, ruleSetID)
	if err != nil {
		return 0, wrapPostgres(op, err)
	}
	return tag.RowsAffected(), nil
}

func (p *PostgresRepository) query(ctx context.Context, op, sql string, args ...any) ([]rule.Rule, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapPostgres(op, err)
	}
	defer rows.Close()

	var rules []rule.Rule
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, wrapPostgres(op, err)
		}
		var r rule.Rule
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fluxerr.New(fluxerr.KindSerialization, op, err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPostgres(op, err)
	}
	return rules, nil
}

func wrapPostgres(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fluxerr.New(fluxerr.KindTimeout, op, err)
	}
	return fluxerr.New(fluxerr.KindStoreConnection, op, err)
}
