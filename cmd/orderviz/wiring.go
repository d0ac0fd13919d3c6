package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/auth"
	"github.com/dd0wney/cluso-orderviz/pkg/config"
	"github.com/dd0wney/cluso-orderviz/pkg/dataservice"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

// serviceSubject names this program in tokens sent to the data service
const serviceSubject = "orderviz"

var errNoDataService = errors.New("data service not configured")

// offlineService answers every action with errNoDataService
type offlineService struct{}

func (offlineService) GetDocumentMetadata(context.Context, string) (actions.Record, error) {
	return nil, errNoDataService
}

func (offlineService) GetDocumentDownloadLink(context.Context, string) (*actions.DownloadLink, error) {
	return nil, errNoDataService
}

func (offlineService) GetOrderDetail(context.Context, string) (actions.Record, error) {
	return nil, errNoDataService
}

// newDataService builds the HTTP client for the data-access service, with
// presigned S3 links layered on top when a bucket is configured
func newDataService(ctx context.Context, cfg *config.Config, logger logging.Logger, reg *metrics.Registry) (actions.DataService, error) {
	ds := cfg.DataService
	if ds.BaseURL == "" {
		logger.Warn("no data service configured; node actions will fail")
		return offlineService{}, nil
	}

	var tokens *auth.JWTManager
	if ds.TokenSecret != "" {
		var err error
		if tokens, err = auth.NewJWTManager(ds.TokenSecret, ds.TokenTTL); err != nil {
			return nil, err
		}
	}

	client, err := dataservice.NewClient(dataservice.ClientConfig{
		BaseURL:    ds.BaseURL,
		Tokens:     tokens,
		Subject:    serviceSubject,
		HTTPClient: &http.Client{Timeout: ds.Timeout},
		Logger:     logger,
		Metrics:    reg,
	})
	if err != nil {
		return nil, err
	}
	if ds.S3.Bucket == "" {
		return client, nil
	}

	return dataservice.NewS3Links(ctx, client, dataservice.S3Config{
		Bucket:          ds.S3.Bucket,
		Region:          ds.S3.Region,
		Prefix:          ds.S3.Prefix,
		Endpoint:        ds.S3.Endpoint,
		AccessKeyID:     ds.S3.AccessKeyID,
		SecretAccessKey: ds.S3.SecretAccessKey,
		LinkTTL:         ds.S3.LinkTTL,
	}, logger)
}

func simulationOptions(cfg *config.Config) visualization.Options {
	return visualization.Options{
		TickInterval:    cfg.Layout.TickInterval,
		EnergyThreshold: cfg.Layout.EnergyThreshold,
	}
}

func engineOptions(cfg *config.Config) visualization.EngineOptions {
	return visualization.EngineOptions{
		Simulation:            simulationOptions(cfg),
		ViewportRetryDelay:    cfg.Layout.ViewportRetryDelay,
		ViewportRetryAttempts: cfg.Layout.ViewportRetryAttempts,
	}
}
