// Package dataservice talks to the document/order data-access service that
// backs the node actions.
package dataservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/auth"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
)

// ErrUnexpectedStatus is returned for any non-2xx response
var ErrUnexpectedStatus = errors.New("unexpected status from data service")

const (
	DefaultTimeout = 30 * time.Second
	// maxBodyBytes bounds how much of a response is read
	maxBodyBytes = 4 << 20
	tokenScope   = "documents:read orders:read"
)

// Endpoint names, used as metric labels
const (
	EndpointMetadata     = "document_metadata"
	EndpointDownloadLink = "document_download_link"
	EndpointOrderDetail  = "order_detail"
)

// StatusError carries the status code and body of a failed call
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL string
	// Tokens mints the bearer token sent with every call. Nil sends none.
	Tokens *auth.JWTManager
	// Subject is the service name put in minted tokens
	Subject    string
	HTTPClient *http.Client
	Logger     logging.Logger
	Metrics    *metrics.Registry
}

// Client is the HTTP implementation of actions.DataService
type Client struct {
	base    *url.URL
	tokens  *auth.JWTManager
	subject string
	http    *http.Client
	logger  logging.Logger
	metrics *metrics.Registry
	valid   *validator.Validate

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

var _ actions.DataService = (*Client)(nil)

// NewClient creates a data service client
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Subject == "" {
		cfg.Subject = "orderviz"
	}
	return &Client{
		base:    base,
		tokens:  cfg.Tokens,
		subject: cfg.Subject,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger.With(logging.Component("dataservice")),
		metrics: cfg.Metrics,
		valid:   validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// GetDocumentMetadata fetches the metadata record of a document
func (c *Client) GetDocumentMetadata(ctx context.Context, id string) (actions.Record, error) {
	var rec actions.Record
	if err := c.get(ctx, EndpointMetadata, "documents/"+url.PathEscape(id)+"/metadata", &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetDocumentDownloadLink requests a time-limited link to a document's file
func (c *Client) GetDocumentDownloadLink(ctx context.Context, id string) (*actions.DownloadLink, error) {
	var link actions.DownloadLink
	if err := c.get(ctx, EndpointDownloadLink, "documents/"+url.PathEscape(id)+"/download-link", &link); err != nil {
		return nil, err
	}
	if err := c.valid.Struct(link); err != nil {
		return nil, fmt.Errorf("%s: invalid download link: %w", EndpointDownloadLink, err)
	}
	return &link, nil
}

// GetOrderDetail fetches the detail record of an order
func (c *Client) GetOrderDetail(ctx context.Context, id string) (actions.Record, error) {
	var rec actions.Record
	if err := c.get(ctx, EndpointOrderDetail, "orders/"+url.PathEscape(id), &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	code, err := c.do(ctx, endpoint, path, out)
	c.metrics.RecordDataServiceCall(endpoint, statusLabel(code))
	if err != nil {
		c.logger.Warn("data service call failed",
			logging.String("endpoint", endpoint),
			logging.Int("status", code),
			logging.RequestID(actions.RequestID(ctx)),
			logging.Error(err))
		return err
	}
	c.logger.Debug("data service call",
		logging.String("endpoint", endpoint),
		logging.Latency(time.Since(start)))
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, path string, out any) (int, error) {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	reqID := actions.RequestID(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	req.Header.Set("X-Request-ID", reqID)

	if c.tokens != nil {
		tok, err := c.bearer()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", endpoint, err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s: reading body: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{
			Endpoint: endpoint,
			Code:     resp.StatusCode,
			Body:     errorMessage(body),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s: decoding response: %w", endpoint, err)
	}
	return resp.StatusCode, nil
}

// bearer returns a cached service token, minting a new one once less than
// a tenth of its lifetime remains
func (c *Client) bearer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	margin := c.tokens.TokenDuration() / 10
	if c.token != "" && time.Until(c.tokenExp) > margin {
		return c.token, nil
	}
	tok, exp, err := c.tokens.GenerateToken(c.subject, tokenScope)
	if err != nil {
		return "", err
	}
	c.token, c.tokenExp = tok, exp
	return tok, nil
}

func statusLabel(code int) string {
	if code == 0 {
		return "transport_error"
	}
	return strconv.Itoa(code)
}

// errorMessage pulls a short message out of an error body
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, s := range []string{payload.Error, payload.Message, payload.Detail} {
			if s != "" {
				return s
			}
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
