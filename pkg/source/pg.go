package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

// PGLoader reads snapshots from PostgreSQL
type PGLoader struct {
	pool *pgxpool.Pool
}

// NewPGLoader connects to databaseURL and ensures the schema exists
func NewPGLoader(ctx context.Context, databaseURL string) (*PGLoader, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &PGLoader{pool: pool}, nil
}

// LoadGraph reads the orders, documents and document links of scope
func (l *PGLoader) LoadGraph(ctx context.Context, scope string) (*graph.Snapshot, error) {
	b := newBuilder()

	rows, err := l.pool.Query(ctx, fmt.Sprintf(ordersQuery, "$1"), scope)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orderRow, error) {
		var o orderRow
		err := row.Scan(&o.ID, &o.Title, &o.Customer, &o.Status, &o.DocumentCount)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}
	for _, o := range orders {
		b.addOrder(o)
	}

	rows, err = l.pool.Query(ctx, fmt.Sprintf(documentsQuery, "$1"), scope)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (documentRow, error) {
		var d documentRow
		err := row.Scan(&d.ID, &d.OrderID, &d.Name, &d.DocType, &d.Category, &d.ProcessingStatus)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning documents: %w", err)
	}
	for _, d := range docs {
		b.addDocument(d)
	}

	rows, err = l.pool.Query(ctx, fmt.Sprintf(linksQuery, "$1"), scope)
	if err != nil {
		return nil, fmt.Errorf("querying document links: %w", err)
	}
	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (graph.Edge, error) {
		var e graph.Edge
		err := row.Scan(&e.Source, &e.Target, &e.Type)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning document links: %w", err)
	}
	for _, e := range links {
		b.addEdge(e.Source, e.Target, e.Type)
	}

	return b.build(scope)
}

// Ping checks database connectivity
func (l *PGLoader) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

// Close closes the connection pool
func (l *PGLoader) Close() error {
	l.pool.Close()
	return nil
}
