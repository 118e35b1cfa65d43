package golokal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ZaguanLabs/golokal/cache"
)

const (
	manifestPath     = "/api/public/v1/manifest"
	translationsPath = "/api/public/v1/translations"
	apiKeyHeader     = "x-api-key"

	// defaultHTTPTimeout bounds shared fetches, which outlive their callers' contexts.
	defaultHTTPTimeout = 30 * time.Second

	// maxPayloadSize caps the response body read from the API.
	maxPayloadSize = 32 << 20
)

// Client keeps the Cache Store in sync with the translations API.
type Client struct {
	config     Config
	store      *cache.Store
	httpClient *http.Client
	logger     zerolog.Logger
	userAgent  string
	retry      *RetryConfig
	limiter    *RateLimiter

	flights    singleflight.Group
	refreshing atomic.Bool

	mu        sync.Mutex
	listeners []listener
	nextID    uint64
	manifest  *Manifest
	started   bool
	destroyed bool
	stop      chan struct{}
}

type listener struct {
	id uint64
	fn func()
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for API requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetryPolicy enables exponential backoff for explicit fetches.
func WithRetryPolicy(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = &cfg
	}
}

// WithRateLimit throttles outbound API requests.
func WithRateLimit(cfg RateLimitConfig) ClientOption {
	return func(c *Client) {
		c.limiter = NewRateLimiter(cfg)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient validates cfg and creates a client. Nothing is loaded or fetched
// until Init.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg.withDefaults(),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     zerolog.Nop(),
		userAgent:  UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With().Str("component", "golokal").Logger()
	c.store = cache.NewStore(c.config.APIKey, c.config.Storage, cache.WithStoreLogger(c.logger))
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	cfg := c.config
	cfg.Namespaces = slices.Clone(c.config.Namespaces)
	return cfg
}

// Store returns the underlying cache store.
func (c *Client) Store() *cache.Store {
	return c.store
}

// Init loads the persisted cache and returns. A refresh and, when a poll
// interval is configured, the poll loop then run in the background.
// Calls after the first, or after Destroy, do nothing.
func (c *Client) Init(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.destroyed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	restored := c.store.Load(ctx)
	c.logger.Debug().Bool("restored", restored).Str("key", c.store.Key()).Msg("translation cache loaded")

	bg := context.WithoutCancel(ctx)
	go c.Refresh(bg)

	if c.config.PollInterval <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.stop = make(chan struct{})
	go c.poll(bg, c.config.PollInterval, c.stop)
}

func (c *Client) poll(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Ticks fire on schedule; a tick that lands on a running refresh is skipped.
			go c.Refresh(ctx)
		}
	}
}

// Destroy stops the poll loop and drops all subscribers. In-flight requests
// complete normally. Safe to call more than once.
func (c *Client) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.listeners = nil
	c.destroyed = true
}

func (c *Client) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Refresh revalidates the default locale. Failures are logged and otherwise
// ignored; cached data stays in place.
func (c *Client) Refresh(ctx context.Context) {
	err := c.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		c.logger.Debug().Msg("refresh already running, skipping")
	case errors.Is(err, ErrDestroyed):
		c.logger.Debug().Msg("client destroyed, skipping refresh")
	default:
		c.logger.Warn().Err(err).Msg("refreshing translations failed, serving cached data")
	}
}

// Sync runs one refresh and reports its outcome. It returns ErrSyncInProgress
// without doing anything when another refresh is running.
func (c *Client) Sync(ctx context.Context) error {
	if c.isDestroyed() {
		return ErrDestroyed
	}
	if !c.refreshing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer c.refreshing.Store(false)

	manifest, err := c.fetchManifest(ctx)
	if err != nil {
		return err
	}
	c.setManifest(manifest)

	if manifest.Version != "" && manifest.Version == c.store.Version() {
		c.logger.Debug().Str("version", manifest.Version).Msg("translations up to date")
		return nil
	}

	changed, fetchErr := c.fetchNamespaces(ctx, c.config.DefaultLocale, c.config.Namespaces)

	var saveErr error
	if fetchErr == nil {
		if manifest.Version != "" {
			c.store.SetVersion(manifest.Version)
		}
		saveErr = c.store.Save(ctx)
	}

	if len(changed) > 0 {
		c.logger.Debug().Strs("namespaces", changed).Msg("translations changed")
		c.notifyListeners()
	}

	if fetchErr != nil {
		return fetchErr
	}
	return saveErr
}

// FetchTranslations performs a conditional fetch of one locale/namespace pair
// and returns the resulting map. Identical concurrent calls share one request.
// Subscribers are notified when the content changed.
func (c *Client) FetchTranslations(ctx context.Context, locale, namespace string) (TranslationMap, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	res, err := c.fetchShared(ctx, locale, namespace)
	if err != nil {
		return nil, err
	}
	if res.changed {
		c.notifyListeners()
	}
	return res.translations, nil
}

// Translations returns the cached map for locale and namespace. The map is
// empty, never nil, when nothing is cached.
func (c *Client) Translations(locale, namespace string) TranslationMap {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return c.store.Translations(locale, namespace)
}

// Manifest returns the last manifest received, if any.
func (c *Client) Manifest() (Manifest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.manifest == nil {
		return Manifest{}, false
	}
	m := *c.manifest
	m.Locales = slices.Clone(m.Locales)
	m.Namespaces = slices.Clone(m.Namespaces)
	return m, true
}

func (c *Client) setManifest(m Manifest) {
	c.mu.Lock()
	c.manifest = &m
	c.mu.Unlock()
}

// Subscribe registers fn to run after translations change. Listeners run in
// registration order. The returned function removes the registration.
func (c *Client) Subscribe(fn func()) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listeners = slices.DeleteFunc(c.listeners, func(l listener) bool { return l.id == id })
	}
}

func (c *Client) notifyListeners() {
	c.mu.Lock()
	snapshot := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range snapshot {
		c.invoke(l)
	}
}

// invoke runs one listener; a panic is logged and does not reach the others.
func (c *Client) invoke(l listener) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Uint64("listener", l.id).Msg("translation listener panicked")
		}
	}()
	l.fn()
}

// fetchResult is the outcome of one conditional fetch.
type fetchResult struct {
	translations TranslationMap
	changed      bool
}

func (c *Client) fetchShared(ctx context.Context, locale, namespace string) (fetchResult, error) {
	key := cache.ETagKey(locale, namespace)
	ch := c.flights.DoChan(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), locale, namespace)
	})

	select {
	case <-ctx.Done():
		return fetchResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return fetchResult{}, res.Err
		}
		r := res.Val.(fetchResult)
		r.translations = maps.Clone(r.translations)
		return r, nil
	}
}

func (c *Client) fetch(ctx context.Context, locale, namespace string) (fetchResult, error) {
	if c.retry == nil {
		return c.fetchOnce(ctx, locale, namespace)
	}
	return WithRetry(ctx, *c.retry, func() (fetchResult, error) {
		return c.fetchOnce(ctx, locale, namespace)
	})
}

func (c *Client) fetchOnce(ctx context.Context, locale, namespace string) (fetchResult, error) {
	query := url.Values{}
	query.Set("locale", locale)
	query.Set("namespace", namespace)

	req, err := c.newRequest(ctx, translationsPath, query)
	if err != nil {
		return fetchResult{}, err
	}
	if etag, ok := c.store.ETag(locale, namespace); ok {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.do(req)
	if err != nil {
		return fetchResult{}, err
	}
	defer resp.Body.Close()

	log := c.logger.With().Str("locale", locale).Str("namespace", namespace).Logger()

	if resp.StatusCode == http.StatusNotModified {
		log.Debug().Msg("translations not modified")
		return fetchResult{translations: c.store.Translations(locale, namespace)}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fetchResult{}, newStatusError(fmt.Sprintf("fetching %s/%s", locale, namespace), resp.StatusCode, resp.Header)
	}

	var payload translationsPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadSize)).Decode(&payload); err != nil {
		return fetchResult{}, &FetchError{Message: "decoding translations", Cause: err, StatusCode: resp.StatusCode}
	}
	if payload.Translations == nil {
		return fetchResult{}, &FetchError{Message: "response has no translations object", StatusCode: resp.StatusCode}
	}

	hadPrevious := c.store.Has(locale, namespace)
	previous := c.store.Translations(locale, namespace)
	c.store.Put(locale, namespace, payload.Translations, resp.Header.Get("ETag"))

	diff := DiffTranslations(previous, payload.Translations)
	stats := diff.Stats()
	log.Debug().
		Int("added", stats.Added).
		Int("removed", stats.Removed).
		Int("modified", stats.Modified).
		Int("unchanged", stats.Unchanged).
		Msg("translations fetched")

	if err := c.store.Save(ctx); err != nil {
		log.Warn().Err(err).Msg("persisting translations failed")
	}

	return fetchResult{
		translations: payload.Translations,
		changed:      !hadPrevious || diff.HasChanges(),
	}, nil
}

func (c *Client) fetchManifest(ctx context.Context) (Manifest, error) {
	req, err := c.newRequest(ctx, manifestPath, nil)
	if err != nil {
		return Manifest{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return Manifest{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Manifest{}, newStatusError("fetching manifest", resp.StatusCode, resp.Header)
	}

	var m Manifest
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadSize)).Decode(&m); err != nil {
		return Manifest{}, &FetchError{Message: "decoding manifest", Cause: err, StatusCode: resp.StatusCode}
	}
	return m, nil
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Message: "building request", Cause: err}
	}
	req.Header.Set(apiKeyHeader, c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// do sends req, waiting on the rate limiter first when one is configured.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, &FetchError{Message: "rate limit wait cancelled", Cause: err}
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures are transient unless the caller gave up
		retryable := req.Context().Err() == nil
		return nil, &FetchError{Message: "requesting " + req.URL.Path, Cause: err, Retryable: retryable}
	}
	return resp, nil
}
