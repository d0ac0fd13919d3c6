package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

// SQLiteLoader reads snapshots from a local SQLite database
type SQLiteLoader struct {
	db *sql.DB
}

// NewSQLiteLoader opens or creates the database at path
func NewSQLiteLoader(ctx context.Context, path string) (*SQLiteLoader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open graph db: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteLoader{db: db}, nil
}

// DB exposes the handle for seeding
func (l *SQLiteLoader) DB() *sql.DB { return l.db }

// LoadGraph reads the orders, documents and document links of scope
func (l *SQLiteLoader) LoadGraph(ctx context.Context, scope string) (*graph.Snapshot, error) {
	b := newBuilder()

	err := l.each(ctx, fmt.Sprintf(ordersQuery, "?1"), scope, func(rows *sql.Rows) error {
		var o orderRow
		if err := rows.Scan(&o.ID, &o.Title, &o.Customer, &o.Status, &o.DocumentCount); err != nil {
			return err
		}
		b.addOrder(o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	err = l.each(ctx, fmt.Sprintf(documentsQuery, "?1"), scope, func(rows *sql.Rows) error {
		var d documentRow
		if err := rows.Scan(&d.ID, &d.OrderID, &d.Name, &d.DocType, &d.Category, &d.ProcessingStatus); err != nil {
			return err
		}
		b.addDocument(d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}

	err = l.each(ctx, fmt.Sprintf(linksQuery, "?1"), scope, func(rows *sql.Rows) error {
		var src, dst, kind string
		if err := rows.Scan(&src, &dst, &kind); err != nil {
			return err
		}
		b.addEdge(src, dst, kind)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("document links: %w", err)
	}

	return b.build(scope)
}

func (l *SQLiteLoader) each(ctx context.Context, query, scope string, fn func(*sql.Rows) error) error {
	rows, err := l.db.QueryContext(ctx, query, scope)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the database
func (l *SQLiteLoader) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Ping checks the database file is usable
func (l *SQLiteLoader) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
