package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

// fileExtensions are tried in order for <dir>/<scope>
var fileExtensions = []string{".json", ".yaml", ".yml"}

// fileGraph is the on-disk form. A file either lists nodes and edges
// directly or lists order and document rows, from which contains edges are
// derived.
type fileGraph struct {
	Nodes     []graph.Node   `json:"nodes" yaml:"nodes"`
	Edges     []graph.Edge   `json:"edges" yaml:"edges"`
	Orders    []fileOrder    `json:"orders" yaml:"orders"`
	Documents []fileDocument `json:"documents" yaml:"documents"`
}

type fileOrder struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Customer string `json:"customer" yaml:"customer"`
	Status   string `json:"status" yaml:"status"`
}

type fileDocument struct {
	ID               string `json:"id" yaml:"id"`
	OrderID          string `json:"order_id" yaml:"order_id"`
	Name             string `json:"name" yaml:"name"`
	Type             string `json:"type" yaml:"type"`
	Category         string `json:"category" yaml:"category"`
	ProcessingStatus string `json:"processing_status" yaml:"processing_status"`
}

// FileLoader reads <dir>/<scope>.json, .yaml or .yml
type FileLoader struct {
	dir string
}

// NewFileLoader creates a loader over dir
func NewFileLoader(dir string) (*FileLoader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("graph directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("graph directory %s is not a directory", dir)
	}
	return &FileLoader{dir: dir}, nil
}

// LoadGraph reads and decodes the scope's file
func (l *FileLoader) LoadGraph(ctx context.Context, scope string) (*graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, ext := range fileExtensions {
		path := filepath.Join(l.dir, scope+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var fg fileGraph
		if ext == ".json" {
			err = json.Unmarshal(data, &fg)
		} else {
			err = yaml.Unmarshal(data, &fg)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return fg.snapshot(scope)
	}
	return nil, fmt.Errorf("%w: %s", ErrScopeNotFound, scope)
}

func (fg *fileGraph) snapshot(scope string) (*graph.Snapshot, error) {
	if len(fg.Nodes) > 0 {
		return &graph.Snapshot{Nodes: fg.Nodes, Edges: fg.Edges}, nil
	}

	counts := map[string]int{}
	for _, d := range fg.Documents {
		counts[d.OrderID]++
	}

	b := newBuilder()
	for _, o := range fg.Orders {
		b.addOrder(orderRow{
			ID: o.ID, Title: o.Title, Customer: o.Customer, Status: o.Status,
			DocumentCount: counts[o.ID],
		})
	}
	for _, d := range fg.Documents {
		b.addDocument(documentRow{
			ID: d.ID, OrderID: d.OrderID, Name: d.Name, DocType: d.Type,
			Category: d.Category, ProcessingStatus: d.ProcessingStatus,
		})
	}
	for _, e := range fg.Edges {
		b.addEdge(e.Source, e.Target, e.Type)
	}
	return b.build(scope)
}

// Ping checks the directory is still there
func (l *FileLoader) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(l.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.dir)
	}
	return nil
}

func (l *FileLoader) Close() error { return nil }
