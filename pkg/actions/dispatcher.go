package actions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-orderviz/pkg/audit"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
)

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for the data service
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id attached by the dispatcher, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// failureMessages are the generic alerts shown ahead of the error text
var failureMessages = map[Kind]string{
	ViewMetadata: "Failed to load document metadata",
	Download:     "Failed to get download link",
	ViewDetails:  "Failed to load order details",
}

// Dispatcher runs one action at a time against the data service. Calls
// run on their own goroutine so the layout keeps animating.
type Dispatcher struct {
	service    DataService
	panel      Panel
	downloader Downloader
	status     Status
	audit      audit.Logger
	logger     logging.Logger
	metrics    *metrics.Registry
	now        func() time.Time

	busy atomic.Bool
	wg   sync.WaitGroup
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger
func WithLogger(l logging.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = r }
}

// WithDownloader sets where download links are handed off
func WithDownloader(dl Downloader) DispatcherOption {
	return func(d *Dispatcher) { d.downloader = dl }
}

// WithAudit records every completed action in log
func WithAudit(log audit.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.audit = log }
}

// WithClock overrides the time source used for link expiry
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher. panel and status must not be nil.
func NewDispatcher(service DataService, panel Panel, status Status, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		service: service,
		panel:   panel,
		status:  status,
		logger:  logging.NewNopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logging.Component("actions"))
	return d
}

// Busy reports whether an action is awaiting the data service
func (d *Dispatcher) Busy() bool { return d.busy.Load() }

// Wait blocks until every dispatched action has completed
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Dispatch starts kind against target and returns immediately. done, if
// not nil, is called on the dispatch goroutine once the action completes,
// after the panel or error alert has been shown. Dispatch returns ErrBusy
// while another action is in flight and ErrUnsupportedAction when kind is
// not offered for the target's type; done is not called in either case.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, kind Kind, done func(Result)) error {
	if !Supports(target.Type, kind) {
		d.metrics.RecordActionRejected("unsupported")
		return fmt.Errorf("%s on %s: %w", kind, target.Type, ErrUnsupportedAction)
	}
	if !d.busy.CompareAndSwap(false, true) {
		d.metrics.RecordActionRejected("busy")
		return ErrBusy
	}

	reqID := uuid.New().String()
	ctx = WithRequestID(ctx, reqID)
	log := d.logger.With(
		logging.RequestID(reqID),
		logging.Action(string(kind)),
		logging.NodeID(target.ID),
	)

	d.status.SetLoading(true)
	d.metrics.ActionStarted()
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		start := time.Now()
		content, err := d.run(ctx, target, kind)
		res := Result{
			RequestID: reqID,
			Target:    target,
			Action:    kind,
			Content:   content,
			Err:       err,
			Duration:  time.Since(start),
		}

		d.status.SetLoading(false)
		d.metrics.ActionFinished()
		d.busy.Store(false)

		if err != nil {
			res.Message = fmt.Sprintf("%s: %v", failureMessages[kind], err)
			d.metrics.RecordAction(string(kind), "error", res.Duration)
			log.Warn("action failed", logging.Error(err), logging.Latency(res.Duration))
			d.status.ShowError(res.Message)
		} else {
			d.metrics.RecordAction(string(kind), "success", res.Duration)
			log.Info("action completed", logging.Latency(res.Duration))
			d.panel.Show(*content)
		}

		d.record(res, log)

		if done != nil {
			done(res)
		}
	}()
	return nil
}

func (d *Dispatcher) record(res Result, log logging.Logger) {
	if d.audit == nil {
		return
	}
	e := &audit.Event{
		RequestID:    res.RequestID,
		Action:       string(res.Action),
		ResourceType: string(res.Target.Type),
		ResourceID:   res.Target.ID,
		Status:       audit.StatusSuccess,
		DurationMS:   res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		e.Status = audit.StatusFailure
		e.ErrorMessage = res.Err.Error()
	}
	if err := d.audit.Log(e); err != nil {
		log.Error("audit write failed", logging.Error(err))
	}
}

func (d *Dispatcher) run(ctx context.Context, target Target, kind Kind) (*PanelContent, error) {
	switch kind {
	case ViewMetadata:
		rec, err := d.service.GetDocumentMetadata(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		c := FormatRecord("Document "+target.ID, rec)
		return &c, nil

	case ViewDetails:
		rec, err := d.service.GetOrderDetail(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		c := FormatRecord("Order "+target.ID, rec)
		return &c, nil

	case Download:
		link, err := d.service.GetDocumentDownloadLink(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if link == nil {
			return nil, fmt.Errorf("empty download link for %s", target.ID)
		}
		if d.downloader != nil {
			if err := d.downloader.Download(ctx, *link); err != nil {
				return nil, fmt.Errorf("download %s: %w", link.Filename, err)
			}
		}
		c := FormatLink("Download "+link.Filename, *link, d.now())
		return &c, nil
	}
	return nil, ErrUnsupportedAction
}
