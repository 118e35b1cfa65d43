package binding

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/golokal"
)

// Translation is one consumer's view of a namespace in the provider's locale.
type Translation struct {
	provider  *Provider
	namespace string
	logger    zerolog.Logger

	mu           sync.Mutex
	locale       string
	translations golokal.TranslationMap
	loading      bool
	gen          uint64 // bumped on every load; older fetch results are dropped
	cancel       context.CancelFunc
	closed       bool
	unsubscribe  func()
	updates      chan struct{}
}

// load starts a fetch for the provider's current locale, superseding any
// fetch still in flight.
func (t *Translation) load() {
	client := t.provider.client

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	locale := t.provider.Locale()
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	gen := t.gen
	ctx, cancel := context.WithCancel(t.provider.ctx)
	t.cancel = cancel
	t.loading = true
	if t.locale != locale {
		t.locale = locale
		if cached := client.Translations(locale, t.namespace); len(cached) > 0 {
			t.translations = cached
		}
	}
	t.mu.Unlock()

	t.signal()
	go t.fetch(ctx, gen, locale)
}

func (t *Translation) fetch(ctx context.Context, gen uint64, locale string) {
	client := t.provider.client
	m, err := client.FetchTranslations(ctx, locale, t.namespace)

	t.mu.Lock()
	if t.closed || gen != t.gen {
		t.mu.Unlock()
		t.logger.Debug().Str("locale", locale).Msg("ignoring superseded fetch")
		return
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			t.logger.Warn().Err(err).Str("locale", locale).Msg("fetching translations failed, using cache")
		}
		m = client.Translations(locale, t.namespace)
	}
	t.translations = m
	t.loading = false
	t.cancel()
	t.cancel = nil
	t.mu.Unlock()

	t.signal()
}

// reload re-reads the cache after the client reports a change.
func (t *Translation) reload() {
	client := t.provider.client

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	cached := client.Translations(t.locale, t.namespace)
	if t.loading && len(cached) == 0 {
		// Keep showing what we have until the fetch settles
		t.mu.Unlock()
		return
	}
	t.translations = cached
	t.mu.Unlock()

	t.signal()
}

// signal queues a re-render notification without blocking.
func (t *Translation) signal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.updates <- struct{}{}:
	default:
	}
}

// T returns the interpolated value for key, or key itself when it is missing.
func (t *Translation) T(key string, vars map[string]any) string {
	t.mu.Lock()
	value, ok := t.translations[key]
	t.mu.Unlock()

	if !ok {
		return key
	}
	return golokal.Interpolate(value, vars)
}

// Has reports whether key is present in the current map.
func (t *Translation) Has(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.translations[key]
	return ok
}

// Translations returns a copy of the current map.
func (t *Translation) Translations() golokal.TranslationMap {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.translations == nil {
		return golokal.TranslationMap{}
	}
	return maps.Clone(t.translations)
}

// Locale returns the locale this consumer currently shows.
func (t *Translation) Locale() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locale
}

// SetLocale switches the provider's locale, which reloads every consumer.
func (t *Translation) SetLocale(locale string) {
	t.provider.SetLocale(locale)
}

// Namespace returns the consumer's namespace.
func (t *Translation) Namespace() string {
	return t.namespace
}

// Dir returns "rtl" or "ltr" for the consumer's locale.
func (t *Translation) Dir() string {
	return golokal.GetDirection(t.Locale())
}

// IsReady reports whether the provider is mounted.
func (t *Translation) IsReady() bool {
	return t.provider.IsReady()
}

// IsLoading reports whether a fetch for the current locale is in flight.
func (t *Translation) IsLoading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Updates returns a channel that receives a value whenever the consumer
// should re-render. Notifications coalesce; the channel is closed by Close.
func (t *Translation) Updates() <-chan struct{} {
	return t.updates
}

// Close stops the consumer: its fetch is cancelled, it leaves the client's
// subscribers and Updates is closed.
func (t *Translation) Close() {
	t.provider.remove(t)
	t.close()
}

func (t *Translation) close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.loading = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	close(t.updates)
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
