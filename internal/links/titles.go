package links

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mailtable/mailtable/internal/instrumentation"
	"github.com/mailtable/mailtable/internal/logging"
)

// errEmptyTitle marks a lookup that answered but carried no usable
// title. It is distinguished from transport failures in metrics.
var errEmptyTitle = errors.New("title lookup returned no title")

// titleHTTPClient is the HTTP client used for title lookups.
var titleHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// TitleResolver derives display titles for links. Resolution is always
// possible synchronously via a hostname fallback; when a lookup
// endpoint is configured, Prime enriches the cache with real page
// titles fetched concurrently.
//
// The cache lives as long as the resolver, is never evicted, and is
// write-once per key: the first resolution for a link wins.
type TitleResolver struct {
	lookupURL string
	client    *http.Client
	logger    *slog.Logger

	mu      sync.Mutex
	cache   map[string]string
	metrics *instrumentation.Metrics
}

// TitleOption customizes a TitleResolver.
type TitleOption func(*TitleResolver)

// WithLookupClient overrides the HTTP client used for lookups.
func WithLookupClient(client *http.Client) TitleOption {
	return func(r *TitleResolver) {
		r.client = client
	}
}

// SetMetrics attaches the metrics recorder. A nil recorder disables
// lookup metrics.
func (r *TitleResolver) SetMetrics(m *instrumentation.Metrics) {
	r.mu.Lock()
	r.metrics = m
	r.mu.Unlock()
}

// NewTitleResolver creates a resolver. lookupURL may be empty, in which
// case Prime is a no-op and only the synchronous fallback is used.
func NewTitleResolver(lookupURL string, logger *slog.Logger, opts ...TitleOption) *TitleResolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &TitleResolver{
		lookupURL: lookupURL,
		client:    titleHTTPClient,
		logger:    logger,
		cache:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the display title for a link: the cached lookup
// result if present, otherwise the synchronous fallback label.
func (r *TitleResolver) Resolve(link string) string {
	r.mu.Lock()
	title, ok := r.cache[link]
	r.mu.Unlock()
	if ok && title != "" {
		return title
	}
	return FallbackLabel(link)
}

// FallbackLabel derives a short label from the URL itself: hostname
// plus path, with the path omitted when it is just "/". Unparseable
// input is returned verbatim.
func FallbackLabel(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return link
	}
	if u.Path == "" || u.Path == "/" {
		return u.Hostname()
	}
	return u.Hostname() + u.Path
}

// Prime fetches titles for any not-yet-cached links. All lookups for
// the batch are issued concurrently and Prime returns once every one
// has settled. Individual failures are logged and swallowed; the links
// simply keep their fallback labels. Without a configured endpoint
// Prime returns immediately.
func (r *TitleResolver) Prime(ctx context.Context, candidates []string) {
	if r.lookupURL == "" {
		return
	}

	var pending []string
	r.mu.Lock()
	for _, link := range candidates {
		if _, ok := r.cache[link]; !ok {
			pending = append(pending, link)
		}
	}
	r.mu.Unlock()

	g := new(errgroup.Group)
	for _, link := range pending {
		g.Go(func() error {
			title, err := r.lookup(ctx, link)
			switch {
			case err == nil:
				r.store(link, title)
				r.recordLookup(ctx, "hit")
			case errors.Is(err, errEmptyTitle):
				r.recordLookup(ctx, "miss")
			default:
				r.logger.Debug("title lookup failed", "url", link, logging.Err(err))
				r.recordLookup(ctx, "error")
			}
			return nil
		})
	}
	// Lookup errors are swallowed above; Wait only joins the batch.
	_ = g.Wait()
}

// recordLookup records one lookup outcome when a recorder is attached.
func (r *TitleResolver) recordLookup(ctx context.Context, result string) {
	r.mu.Lock()
	m := r.metrics
	r.mu.Unlock()
	m.RecordTitleLookup(ctx, result)
}

// store records a title, first write wins.
func (r *TitleResolver) store(link, title string) {
	if title == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[link]; !ok {
		r.cache[link] = title
	}
}

// lookup queries the external title endpoint for one link.
func (r *TitleResolver) lookup(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.lookupURL+"?url="+url.QueryEscape(link), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create lookup request: %w", err)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("title lookup returned http status %s", res.Status)
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode title response: %w", err)
	}
	if body.Title == "" {
		return "", errEmptyTitle
	}

	return body.Title, nil
}
