package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/render"
	"github.com/dd0wney/cluso-orderviz/pkg/source"
	"github.com/dd0wney/cluso-orderviz/pkg/validation"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

// errBusy is returned when every layout slot is taken
var errBusy = errors.New("too many layouts in progress")

// settleChunk is how many ticks run between context checks
const settleChunk = 100

type layoutResult struct {
	snap      *graph.Snapshot
	report    graph.Report
	sim       *visualization.Simulation
	ticks     int
	converged bool
	frame     *visualization.Frame
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")
	vp, err := s.viewportFrom(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.computeLayout(r.Context(), scope, vp)
	if err != nil {
		s.respondLayoutError(w, scope, err)
		return
	}

	s.respondJSON(w, http.StatusOK, LayoutResponse{
		Scope:      scope,
		Ticks:      res.ticks,
		Converged:  res.converged,
		Parameters: res.sim.Parameters(),
		Dropped: DroppedInputs{
			MalformedNodes: res.report.MalformedNodes,
			DuplicateNodes: res.report.DuplicateNodes,
			MalformedEdges: res.report.MalformedEdges,
			DanglingEdges:  res.report.DanglingEdges,
		},
		Frame: res.frame,
	})
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	scope, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("unknown resource %q", r.PathValue("file")))
		return
	}
	vp, err := s.viewportFrom(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.computeLayout(r.Context(), scope, vp)
	if err != nil {
		s.respondLayoutError(w, scope, err)
		return
	}

	doc := render.SVGDocument(res.snap, res.frame, r.URL.Query().Get("highlight"), s.logger, s.metrics)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		s.logger.Warn("writing svg failed", logging.Scope(scope), logging.Error(err))
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// computeLayout loads scope and runs a simulation until it settles
func (s *Server) computeLayout(ctx context.Context, scope string, vp visualization.Viewport) (*layoutResult, error) {
	if err := validation.ValidateScope(scope); err != nil {
		return nil, err
	}

	select {
	case s.layoutSem <- struct{}{}:
		defer func() { <-s.layoutSem }()
	default:
		return nil, errBusy
	}
	s.activeJobs.Add(1)
	defer s.activeJobs.Add(-1)

	raw, err := s.loader.LoadGraph(ctx, scope)
	if err != nil {
		return nil, err
	}
	snap, report := graph.Sanitize(raw)
	s.metrics.RecordDropped("malformed_node", report.MalformedNodes)
	s.metrics.RecordDropped("duplicate_node", report.DuplicateNodes)
	s.metrics.RecordDropped("malformed_edge", report.MalformedEdges)
	s.metrics.RecordDropped("dangling_edge", report.DanglingEdges)

	s.metrics.SimulationStarted()
	defer s.metrics.SimulationStopped()

	sim := visualization.NewSimulation(snap, vp, s.simOpts)
	ticks := 0
	for ticks < s.maxTicks && !sim.Converged() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ticks += sim.RunUntilSettled(min(settleChunk, s.maxTicks-ticks))
	}
	converged := sim.Converged()
	if converged {
		s.metrics.RecordConvergence(ticks)
	}

	orders, documents := snap.CountByType()
	s.metrics.RecordLoad("served", orders, documents, len(snap.Edges))
	s.logger.Debug("layout computed",
		logging.Scope(scope),
		logging.Tick(ticks),
		logging.Bool("converged", converged),
		logging.Count(sim.Len()))

	return &layoutResult{
		snap:      snap,
		report:    report,
		sim:       sim,
		ticks:     ticks,
		converged: converged,
		frame:     sim.Frame(0),
	}, nil
}

// viewportFrom reads optional width and height query overrides
func (s *Server) viewportFrom(r *http.Request) (visualization.Viewport, error) {
	vp := s.viewport
	q := r.URL.Query()
	for _, dim := range []struct {
		name string
		dst  *float64
	}{{"width", &vp.Width}, {"height", &vp.Height}} {
		v := q.Get(dim.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > maxDimension {
			return vp, fmt.Errorf("%s must be a number in (0, %g]", dim.name, maxDimension)
		}
		*dim.dst = f
	}
	return vp, nil
}

func (s *Server) respondLayoutError(w http.ResponseWriter, scope string, err error) {
	switch {
	case errors.Is(err, source.ErrScopeNotFound):
		s.respondError(w, http.StatusNotFound, fmt.Errorf("scope %q not found", scope))
	case errors.Is(err, errBusy):
		w.Header().Set("Retry-After", "1")
		s.respondError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusServiceUnavailable, errors.New("request cancelled"))
	case validation.ValidateScope(scope) != nil:
		s.respondError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("layout failed", logging.Scope(scope), logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, errors.New("layout failed"))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
	})
}
