// Package source loads order/document snapshots from files or databases.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
	"github.com/dd0wney/cluso-orderviz/pkg/validation"
)

// ErrScopeNotFound is returned when a scope has no orders
var ErrScopeNotFound = errors.New("scope not found")

// EdgeContains links an order to each of its documents
const EdgeContains = "contains"

// Loader loads the graph for a scope, such as a customer or shipment
type Loader interface {
	LoadGraph(ctx context.Context, scope string) (*graph.Snapshot, error)
	Close() error
}

// Pinger is implemented by loaders backed by a connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks l's backing store. Loaders without one always succeed.
func Ping(ctx context.Context, l Loader) error {
	if p, ok := l.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Drivers accepted by Open
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Drivers lists every driver Open accepts
var Drivers = []string{DriverFile, DriverPostgres, DriverSQLite}

// Open creates a loader for driver. dsn is a directory for file, a
// connection URL for postgres and a database path for sqlite.
func Open(ctx context.Context, driver, dsn string, logger logging.Logger, reg *metrics.Registry) (Loader, error) {
	var (
		l   Loader
		err error
	)
	switch driver {
	case DriverFile:
		l, err = NewFileLoader(dsn)
	case DriverPostgres:
		l, err = NewPGLoader(ctx, dsn)
	case DriverSQLite:
		l, err = NewSQLiteLoader(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown source driver %q (want one of %s)", driver, strings.Join(Drivers, ", "))
	}
	if err != nil {
		return nil, err
	}
	return Instrument(l, driver, logger, reg), nil
}

// Instrument wraps l so each load is validated, logged and counted
func Instrument(l Loader, driver string, logger logging.Logger, reg *metrics.Registry) Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &instrumented{
		Loader:  l,
		driver:  driver,
		logger:  logger.With(logging.Component("source"), logging.String("driver", driver)),
		metrics: reg,
	}
}

type instrumented struct {
	Loader
	driver  string
	logger  logging.Logger
	metrics *metrics.Registry
}

func (i *instrumented) Ping(ctx context.Context) error { return Ping(ctx, i.Loader) }

func (i *instrumented) LoadGraph(ctx context.Context, scope string) (*graph.Snapshot, error) {
	if err := validation.ValidateScope(scope); err != nil {
		i.metrics.RecordSourceLoad(i.driver, "invalid", 0)
		return nil, err
	}

	start := time.Now()
	snap, err := i.Loader.LoadGraph(ctx, scope)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrScopeNotFound):
		i.metrics.RecordSourceLoad(i.driver, "not_found", elapsed)
		i.logger.Info("scope not found", logging.Scope(scope))
	case err != nil:
		i.metrics.RecordSourceLoad(i.driver, "error", elapsed)
		i.logger.Error("graph load failed", logging.Scope(scope), logging.Error(err))
	default:
		i.metrics.RecordSourceLoad(i.driver, "success", elapsed)
		orders, docs := snap.CountByType()
		i.logger.Info("graph loaded",
			logging.Scope(scope),
			logging.Int("orders", orders),
			logging.Int("documents", docs),
			logging.Count(len(snap.Edges)),
			logging.Latency(elapsed))
	}
	return snap, err
}

// builder assembles a snapshot from order and document rows
type builder struct {
	snap graph.Snapshot
	seen map[string]bool
}

func newBuilder() *builder {
	return &builder{seen: map[string]bool{}}
}

type orderRow struct {
	ID, Title, Customer, Status string
	DocumentCount               int
}

type documentRow struct {
	ID, OrderID, Name, DocType, Category, ProcessingStatus string
}

func (b *builder) addOrder(o orderRow) {
	if b.seen[o.ID] {
		return
	}
	b.seen[o.ID] = true
	label := o.Title
	if label == "" {
		label = o.ID
	}
	b.snap.Nodes = append(b.snap.Nodes, graph.Node{
		ID:    o.ID,
		Type:  graph.TypeOrder,
		Label: label,
		Data: map[string]any{
			"title":          o.Title,
			"customer":       o.Customer,
			"status":         o.Status,
			"document_count": o.DocumentCount,
		},
	})
}

func (b *builder) addDocument(d documentRow) {
	if !b.seen[d.ID] {
		b.seen[d.ID] = true
		label := d.Name
		if label == "" {
			label = d.ID
		}
		b.snap.Nodes = append(b.snap.Nodes, graph.Node{
			ID:    d.ID,
			Type:  graph.TypeDocument,
			Label: label,
			Data: map[string]any{
				"name":              d.Name,
				"type":              d.DocType,
				"category":          d.Category,
				"processing_status": d.ProcessingStatus,
			},
		})
	}
	if d.OrderID != "" {
		b.snap.Edges = append(b.snap.Edges, graph.Edge{Source: d.OrderID, Target: d.ID, Type: EdgeContains})
	}
}

func (b *builder) addEdge(source, target, kind string) {
	b.snap.Edges = append(b.snap.Edges, graph.Edge{Source: source, Target: target, Type: kind})
}

func (b *builder) build(scope string) (*graph.Snapshot, error) {
	orders, _ := b.snap.CountByType()
	if orders == 0 {
		return nil, fmt.Errorf("%w: %s", ErrScopeNotFound, scope)
	}
	s := b.snap
	return &s, nil
}
