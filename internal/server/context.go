package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mailtable/mailtable/internal/delivery"
	"github.com/mailtable/mailtable/internal/forward"
	"github.com/mailtable/mailtable/internal/googleauth"
	"github.com/mailtable/mailtable/internal/hosting"
	"github.com/mailtable/mailtable/internal/instrumentation"
	"github.com/mailtable/mailtable/internal/links"
	"github.com/mailtable/mailtable/internal/mailhost"
	"github.com/mailtable/mailtable/internal/msauth"
	"github.com/mailtable/mailtable/internal/records"
)

// Hosting backend selectors for MAILTABLE_HOSTING_BACKEND.
const (
	HostingOneDrive = "onedrive"
	HostingGDrive   = "gdrive"
)

// ServerContext holds the shared state for the MCP server: the mail
// host, the record backend client and the attachment delivery
// pipeline. Components are created lazily on first use so the server
// can start before all credentials are configured.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	broker *msauth.Broker

	mu            sync.RWMutex
	metrics       *instrumentation.Metrics
	auditLogger   *instrumentation.AuditLogger
	host          mailhost.Host
	recordsClient *records.Client
	hostingSvc    hosting.Service
	pipeline      *delivery.Pipeline
	titles        *links.TitleResolver
	session       *forward.Session
	shutdown      bool
}

// NewServerContext creates a new server context. The credential broker
// is created eagerly since it only reads configuration; everything
// that needs a live connection is deferred.
func NewServerContext(ctx context.Context, logger *slog.Logger) (*ServerContext, error) {
	if logger == nil {
		logger = slog.Default()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		logger: logger,
		broker: msauth.NewBroker(msauth.ConfigFromEnv(), logger),
	}, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Broker returns the mail host credential broker.
func (sc *ServerContext) Broker() *msauth.Broker {
	return sc.broker
}

// Metrics returns the instrumentation metrics, or nil when not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the instrumentation metrics and propagates the
// recorder to every component that records its own measurements.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	sc.metrics = metrics
	pipeline := sc.pipeline
	titles := sc.titles
	sc.mu.Unlock()

	sc.broker.SetMetrics(metrics)
	if pipeline != nil {
		pipeline.SetMetrics(metrics)
	}
	if titles != nil {
		titles.SetMetrics(metrics)
	}
}

// AuditLogger returns the audit logger, or nil when not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(auditLogger *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = auditLogger
}

// Host returns the mail host, creating it on first use.
func (sc *ServerContext) Host() (mailhost.Host, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.host != nil {
		return sc.host, nil
	}

	host, err := mailhost.NewGraphHost(sc.broker)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail host: %w", err)
	}
	sc.host = host
	return host, nil
}

// Records returns the record backend client, creating it on first
// use. Returns an error when the backend is not configured.
func (sc *ServerContext) Records() (*records.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.recordsClient != nil {
		return sc.recordsClient, nil
	}

	cfg := records.ConfigFromEnv()
	if !cfg.Complete() {
		return nil, fmt.Errorf("record backend not configured: set MAILTABLE_API_BASE_URL, MAILTABLE_API_TOKEN and MAILTABLE_BASE_ID")
	}

	client, err := records.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create record backend client: %w", err)
	}
	sc.recordsClient = client
	return client, nil
}

// Hosting returns the attachment hosting backend, creating it on
// first use. The backend is selected by MAILTABLE_HOSTING_BACKEND;
// OneDrive is the default since it shares credentials with the mail
// host.
func (sc *ServerContext) Hosting() (hosting.Service, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.hostingSvc != nil {
		return sc.hostingSvc, nil
	}

	backend := os.Getenv("MAILTABLE_HOSTING_BACKEND")
	if backend == "" {
		backend = HostingOneDrive
	}

	var (
		svc hosting.Service
		err error
	)
	switch backend {
	case HostingOneDrive:
		svc, err = hosting.NewGraphDrive(sc.broker)
	case HostingGDrive:
		cfg := googleauth.ConfigFromEnv()
		if !cfg.Complete() {
			return nil, fmt.Errorf("google drive hosting not configured: set MAILTABLE_GOOGLE_CLIENT_ID and MAILTABLE_GOOGLE_CLIENT_SECRET")
		}
		client, cerr := cfg.GetHTTPClient(sc.ctx)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create google drive client: %w", cerr)
		}
		var opts []hosting.DriveOption
		if domain := os.Getenv("MAILTABLE_GOOGLE_DOMAIN"); domain != "" {
			opts = append(opts, hosting.WithDriveDomain(domain))
		}
		svc, err = hosting.NewDriveService(sc.ctx, client, opts...)
	default:
		return nil, fmt.Errorf("unknown hosting backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create hosting backend: %w", err)
	}

	sc.hostingSvc = svc
	return svc, nil
}

// Pipeline returns the attachment delivery pipeline, creating it on
// first use.
func (sc *ServerContext) Pipeline() (*delivery.Pipeline, error) {
	host, err := sc.Host()
	if err != nil {
		return nil, err
	}
	hostingSvc, err := sc.Hosting()
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.pipeline == nil {
		sc.pipeline = delivery.NewPipeline(host, hostingSvc, sc.broker, sc.logger)
		sc.pipeline.SetMetrics(sc.metrics)
	}
	return sc.pipeline, nil
}

// Titles returns the link title resolver, creating it on first use.
// The lookup endpoint is optional; without it only fallback labels
// are produced.
func (sc *ServerContext) Titles() *links.TitleResolver {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.titles == nil {
		sc.titles = links.NewTitleResolver(os.Getenv("MAILTABLE_TITLE_LOOKUP_URL"), sc.logger)
		sc.titles.SetMetrics(sc.metrics)
	}
	return sc.titles
}

// Session returns the forwarding session, creating it on first use.
// Reference option caches live for the lifetime of the session.
func (sc *ServerContext) Session() (*forward.Session, error) {
	host, err := sc.Host()
	if err != nil {
		return nil, err
	}
	recordsClient, err := sc.Records()
	if err != nil {
		return nil, err
	}
	pipeline, err := sc.Pipeline()
	if err != nil {
		return nil, err
	}
	titles := sc.Titles()

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session == nil {
		sc.session = forward.NewSession(host, recordsClient, pipeline, titles, forward.TablesFromEnv(), sc.logger)
	}
	return sc.session, nil
}

// SetHost overrides the mail host. Intended for tests.
func (sc *ServerContext) SetHost(host mailhost.Host) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.host = host
	sc.session = nil
}

// SetRecords overrides the record backend client. Intended for tests.
func (sc *ServerContext) SetRecords(client *records.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.recordsClient = client
	sc.session = nil
}

// SetHosting overrides the hosting backend. Intended for tests.
func (sc *ServerContext) SetHosting(svc hosting.Service) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.hostingSvc = svc
	sc.pipeline = nil
	sc.session = nil
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
