package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	documentsTableName = "documents"
	changesChannel     = "docstore_changes"

	pgUniqueViolation = "23505"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

type documentRow struct {
	ID        string    `db:"id"`
	Data      string    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Postgres keeps every collection in one jsonb table. Writes announce the
// touched collection on a LISTEN/NOTIFY channel, which is what feeds
// subscriptions.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the schema and documents table if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context, schema string) error {
	ident := pgx.Identifier{schema}.Sanitize()
	table := pgx.Identifier{schema, documentsTableName}.Sanitize()

	statements := []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", ident),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			collection text NOT NULL,
			id text NOT NULL,
			data jsonb NOT NULL DEFAULT '{}'::jsonb,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)`, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS documents_data_idx ON %s USING gin (data jsonb_path_ops)", table),
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	return nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	query, args, err := psql().
		Select("id", "data::text AS data", "updated_at").
		From(documentsTableName).
		Where(sq.Eq{"collection": collection, "id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return Document{}, fmt.Errorf("failed to generate get document query: %w", err)
	}

	var row documentRow
	err = pgxscan.Get(ctx, p.pool, &row, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, fmt.Errorf("failed to fetch document %s/%s: %w", collection, id, err)
	}

	return row.document()
}

func (p *Postgres) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	builder := psql().
		Select("id", "data::text AS data", "updated_at").
		From(documentsTableName).
		Where(sq.Eq{"collection": collection}).
		OrderBy("id ASC")

	if len(filters) > 0 {
		containment, err := filtersJSON(filters)
		if err != nil {
			return nil, err
		}
		builder = builder.Where(sq.Expr("data @> ?::jsonb", containment))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate query documents query: %w", err)
	}

	var rows []*documentRow
	err = pgxscan.Select(ctx, p.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func (p *Postgres) Create(ctx context.Context, collection, id string, fields Fields) error {
	return p.Commit(ctx, []Operation{CreateOp(collection, id, fields)})
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields Fields) error {
	return p.Commit(ctx, []Operation{{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields}})
}

func (p *Postgres) UpdateIf(ctx context.Context, collection, id string, guard []Filter, fields Fields) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}

	builder := psql().
		Update(documentsTableName).
		Set("data", sq.Expr("data || ?::jsonb", string(payload))).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"collection": collection, "id": id})

	if len(guard) > 0 {
		containment, err := filtersJSON(guard)
		if err != nil {
			return err
		}
		builder = builder.Where(sq.Expr("data @> ?::jsonb", containment))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate guarded update query: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := p.Get(ctx, collection, id); err != nil {
			return err
		}
		return fmt.Errorf("%s/%s: %w", collection, id, ErrConflict)
	}

	return p.announce(ctx, p.pool, collection)
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	return p.Commit(ctx, []Operation{DeleteOp(collection, id)})
}

func (p *Postgres) Commit(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin document batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	touched := make(map[string]struct{})
	for _, op := range ops {
		if err := p.exec(ctx, tx, op); err != nil {
			return err
		}
		touched[op.Collection] = struct{}{}
	}

	// NOTIFY inside the transaction is only delivered on commit.
	for collection := range touched {
		if err := p.announce(ctx, tx, collection); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document batch: %w", err)
	}

	return nil
}

func (p *Postgres) exec(ctx context.Context, db execer, op Operation) error {
	var (
		builder sq.Sqlizer
		payload []byte
		err     error
	)

	if op.Kind != OpDelete {
		payload, err = json.Marshal(op.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", op.Collection, op.ID, err)
		}
	}

	where := sq.And{sq.Eq{"collection": op.Collection, "id": op.ID}}
	if op.guarded() {
		containment, err := filtersJSON(op.Guard)
		if err != nil {
			return err
		}
		where = append(where, sq.Expr("data @> ?::jsonb", containment))
	}

	switch op.Kind {
	case OpCreate:
		builder = psql().
			Insert(documentsTableName).
			Columns("collection", "id", "data").
			Values(op.Collection, op.ID, sq.Expr("?::jsonb", string(payload)))
	case OpSet:
		builder = psql().
			Insert(documentsTableName).
			Columns("collection", "id", "data").
			Values(op.Collection, op.ID, sq.Expr("?::jsonb", string(payload))).
			Suffix("ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()")
	case OpUpdate:
		builder = psql().
			Update(documentsTableName).
			Set("data", sq.Expr("data || ?::jsonb", string(payload))).
			Set("updated_at", sq.Expr("now()")).
			Where(where)
	case OpDelete:
		builder = psql().
			Delete(documentsTableName).
			Where(where)
	default:
		return fmt.Errorf("unsupported operation %d", op.Kind)
	}

	if op.guarded() && (op.Kind == OpCreate || op.Kind == OpSet) {
		return fmt.Errorf("guarded %s of %s/%s is not supported", op.Kind, op.Collection, op.ID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate %s query: %w", op.Kind, err)
	}

	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to %s %s/%s: %w", op.Kind, op.Collection, op.ID, err)
	}

	switch {
	case op.guarded() && tag.RowsAffected() == 0:
		return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrConflict)
	case op.Kind == OpUpdate && tag.RowsAffected() == 0:
		return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrNotFound)
	}

	return nil
}

func (p *Postgres) announce(ctx context.Context, db execer, collection string) error {
	_, err := db.Exec(ctx, "SELECT pg_notify($1, $2)", changesChannel, collection)
	if err != nil {
		return fmt.Errorf("failed to announce change on %s: %w", collection, err)
	}
	return nil
}

type postgresSubscription struct {
	cancel context.CancelFunc
}

func (s *postgresSubscription) Close() {
	s.cancel()
}

// Subscribe holds one pooled connection in LISTEN mode for the life of the
// subscription and re-runs the query whenever the collection is announced.
func (p *Postgres) Subscribe(ctx context.Context, collection string, filters []Filter, onChange ChangeFunc) (Subscription, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+changesChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen for document changes: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &postgresSubscription{cancel: cancel}

	go func() {
		defer conn.Release()
		defer func() {
			unlistenCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, _ = conn.Exec(unlistenCtx, "UNLISTEN "+changesChannel)
		}()

		deliver := func() bool {
			docs, err := p.Query(subCtx, collection, filters...)
			if err != nil {
				if subCtx.Err() == nil {
					onChange(nil, err)
				}
				return false
			}
			onChange(docs, nil)
			return true
		}

		if !deliver() {
			return
		}

		for {
			notification, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					onChange(nil, fmt.Errorf("failed waiting for document changes: %w", err))
				}
				return
			}

			if notification.Payload != collection {
				continue
			}

			if !deliver() {
				return
			}
		}
	}()

	return sub, nil
}

func (r *documentRow) document() (Document, error) {
	fields := make(Fields)
	if err := json.Unmarshal([]byte(r.Data), &fields); err != nil {
		return Document{}, fmt.Errorf("failed to decode document %s: %w", r.ID, err)
	}
	return Document{ID: r.ID, Fields: fields}, nil
}

func filtersJSON(filters []Filter) (string, error) {
	containment := make(map[string]any, len(filters))
	for _, filter := range filters {
		containment[filter.Field] = filter.Value
	}

	data, err := json.Marshal(containment)
	if err != nil {
		return "", fmt.Errorf("failed to encode filters: %w", err)
	}

	return string(data), nil
}
