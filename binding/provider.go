// Package binding exposes a Sync Client to UI code: a Provider owns one client
// and the active locale, and each Translation consumer tracks the map for one
// namespace, refetching on locale changes and signalling re-renders.
package binding

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/golokal"
)

// Provider scopes one Sync Client to a tree of consumers.
type Provider struct {
	client *golokal.Client
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	locale    string
	ready     bool
	unmounted bool
	consumers []*Translation

	destroyOnce sync.Once
}

// Option configures a Provider.
type Option func(*Provider)

// WithLocale sets the initial locale. The default is the client's default locale.
func WithLocale(locale string) Option {
	return func(p *Provider) {
		if locale != "" {
			p.locale = locale
		}
	}
}

// WithLogger sets the logger used for consumer diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a Sync Client from cfg and wraps it.
func NewProvider(cfg golokal.Config, clientOpts []golokal.ClientOption, opts ...Option) (*Provider, error) {
	client, err := golokal.NewClient(cfg, clientOpts...)
	if err != nil {
		return nil, err
	}
	return NewProviderWithClient(client, opts...), nil
}

// NewProviderWithClient wraps an existing client. The provider takes ownership
// and destroys the client on Unmount.
func NewProviderWithClient(client *golokal.Client, opts ...Option) *Provider {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		client: client,
		logger: zerolog.Nop(),
		ctx:    ctx,
		cancel: cancel,
		locale: client.Config().DefaultLocale,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "binding").Logger()
	return p
}

// Mount initializes the client and marks the provider ready.
func (p *Provider) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.client.Init(ctx)

	p.mu.Lock()
	p.ready = true
	consumers := slices.Clone(p.consumers)
	p.mu.Unlock()

	for _, c := range consumers {
		c.signal()
	}
}

// Unmount closes every consumer, cancels their fetches and destroys the client.
func (p *Provider) Unmount() {
	p.mu.Lock()
	p.unmounted = true
	p.ready = false
	consumers := p.consumers
	p.consumers = nil
	p.mu.Unlock()

	p.cancel()
	for _, c := range consumers {
		c.close()
	}
	p.destroyOnce.Do(p.client.Destroy)
}

// Client returns the underlying Sync Client.
func (p *Provider) Client() *golokal.Client {
	return p.client
}

// IsReady reports whether Mount has completed.
func (p *Provider) IsReady() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// Locale returns the active locale.
func (p *Provider) Locale() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.locale
}

// Dir returns "rtl" or "ltr" for the active locale.
func (p *Provider) Dir() string {
	return golokal.GetDirection(p.Locale())
}

// SetLocale switches the active locale. Every live consumer refetches; the
// client's background refresh keeps using its default locale.
func (p *Provider) SetLocale(locale string) {
	p.mu.Lock()
	if locale == "" || locale == p.locale || p.unmounted {
		p.mu.Unlock()
		return
	}
	p.locale = locale
	consumers := slices.Clone(p.consumers)
	p.mu.Unlock()

	for _, c := range consumers {
		c.load()
	}
}

// Use returns a consumer for namespace ("" means the default namespace).
// The consumer shows cached data immediately and fetches fresh data in the
// background. Call Close when it is no longer needed.
func (p *Provider) Use(namespace string) *Translation {
	if namespace == "" {
		namespace = golokal.DefaultNamespace
	}

	t := &Translation{
		provider:  p,
		namespace: namespace,
		logger:    p.logger.With().Str("namespace", namespace).Logger(),
		updates:   make(chan struct{}, 1),
	}

	p.mu.Lock()
	t.locale = p.locale
	t.translations = p.client.Translations(t.locale, namespace)
	if p.unmounted {
		p.mu.Unlock()
		t.close()
		return t
	}
	p.consumers = append(p.consumers, t)
	p.mu.Unlock()

	unsubscribe := p.client.Subscribe(t.reload)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		unsubscribe()
		return t
	}
	t.unsubscribe = unsubscribe
	t.mu.Unlock()

	t.load()
	return t
}

func (p *Provider) remove(t *Translation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumers = slices.DeleteFunc(p.consumers, func(c *Translation) bool { return c == t })
}
