package cache

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// StorageKeyPrefix namespaces persisted blobs so tenants sharing one Storage never collide.
const StorageKeyPrefix = "@golokal/"

// TranslationMap maps translation keys to resolved values for one (locale, namespace) pair.
type TranslationMap map[string]string

// CachedData is the persisted unit, one per credential.
type CachedData struct {
	Translations map[string]map[string]TranslationMap `json:"translations"`
	ETags        map[string]string                    `json:"etags"`
	Version      string                               `json:"version,omitempty"` // empty means absent
	UpdatedAt    time.Time                            `json:"updatedAt"`
}

// NewCachedData returns an empty CachedData with initialized maps.
func NewCachedData() CachedData {
	return CachedData{
		Translations: make(map[string]map[string]TranslationMap),
		ETags:        make(map[string]string),
	}
}

// ETagKey builds the composite validator key for a (locale, namespace) pair.
func ETagKey(locale, namespace string) string {
	return locale + ":" + namespace
}

// Store holds the in-memory CachedData for one credential and persists it
// through a Storage backend.
type Store struct {
	storage Storage
	key     string
	logger  zerolog.Logger
	now     func() time.Time

	mu   sync.RWMutex
	data CachedData

	// saveMu orders snapshot+write pairs so a later Save never lands before an earlier one.
	saveMu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for storage read failures.
func WithStoreLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an empty store for credential backed by storage.
func NewStore(credential string, storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		key:     StorageKeyPrefix + credential,
		logger:  zerolog.Nop(),
		now:     time.Now,
		data:    NewCachedData(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Key returns the storage key of the persisted blob.
func (s *Store) Key() string {
	return s.key
}

// Load replaces the in-memory data with the persisted blob.
// A missing, unreadable or corrupt blob yields an empty cache; Load never fails.
// It reports whether persisted data was restored.
func (s *Store) Load(ctx context.Context) bool {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("reading translation cache failed, starting cold")
	}

	data := NewCachedData()
	restored := false
	if err == nil && ok && len(raw) > 0 {
		var decoded CachedData
		if jsonErr := json.Unmarshal(raw, &decoded); jsonErr != nil {
			s.logger.Debug().Err(jsonErr).Str("key", s.key).Msg("discarding corrupt translation cache")
		} else {
			data = normalize(decoded)
			restored = true
		}
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()

	return restored
}

// normalize fills nil maps and drops validators that have no stored map.
func normalize(data CachedData) CachedData {
	if data.Translations == nil {
		data.Translations = make(map[string]map[string]TranslationMap)
	}
	if data.ETags == nil {
		data.ETags = make(map[string]string)
	}

	for locale, namespaces := range data.Translations {
		if namespaces == nil {
			delete(data.Translations, locale)
			continue
		}
		for ns, m := range namespaces {
			if m == nil {
				namespaces[ns] = TranslationMap{}
			}
		}
	}

	present := make(map[string]bool)
	for locale, namespaces := range data.Translations {
		for ns := range namespaces {
			present[ETagKey(locale, ns)] = true
		}
	}
	for key := range data.ETags {
		if !present[key] {
			delete(data.ETags, key)
		}
	}

	return data
}

// Save stamps UpdatedAt and writes the serialized data to storage.
func (s *Store) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.data.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(s.data)
	s.mu.Unlock()

	if err != nil {
		return &Error{Message: "encoding cache", Cause: err}
	}

	if err := s.storage.Set(ctx, s.key, raw); err != nil {
		return &Error{Message: "writing cache", Cause: err}
	}
	return nil
}

// Clear removes the persisted blob and resets the in-memory data.
func (s *Store) Clear(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.storage.Remove(ctx, s.key); err != nil {
		return &Error{Message: "removing cache", Cause: err}
	}

	s.mu.Lock()
	s.data = NewCachedData()
	s.mu.Unlock()
	return nil
}

// Translations returns a copy of the stored map, or an empty map when absent.
func (s *Store) Translations(locale, namespace string) TranslationMap {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data.Translations[locale][namespace]
	if !ok {
		return TranslationMap{}
	}
	return maps.Clone(m)
}

// Has reports whether a map is stored for the pair.
func (s *Store) Has(locale, namespace string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data.Translations[locale][namespace]
	return ok
}

// SetTranslations replaces the stored map wholesale.
func (s *Store) SetTranslations(locale, namespace string, translations TranslationMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTranslationsLocked(locale, namespace, translations)
}

func (s *Store) setTranslationsLocked(locale, namespace string, translations TranslationMap) {
	if translations == nil {
		translations = TranslationMap{}
	}
	if s.data.Translations[locale] == nil {
		s.data.Translations[locale] = make(map[string]TranslationMap)
	}
	s.data.Translations[locale][namespace] = maps.Clone(translations)
}

// ETag returns the stored validator. The bool is false when no conditional fetch is possible.
func (s *Store) ETag(locale, namespace string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	etag, ok := s.data.ETags[ETagKey(locale, namespace)]
	return etag, ok && etag != ""
}

// SetETag records a validator. It is ignored when no map is stored for the
// pair, since a validator without content could turn a 304 into an empty result.
func (s *Store) SetETag(locale, namespace, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Translations[locale][namespace]; !ok || etag == "" {
		return
	}
	s.data.ETags[ETagKey(locale, namespace)] = etag
}

// ClearETag forgets the validator for the pair.
func (s *Store) ClearETag(locale, namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.ETags, ETagKey(locale, namespace))
}

// Put replaces the map and its validator together. An empty etag clears the
// previous validator so the next fetch is unconditional.
func (s *Store) Put(locale, namespace string, translations TranslationMap, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setTranslationsLocked(locale, namespace, translations)
	key := ETagKey(locale, namespace)
	if etag == "" {
		delete(s.data.ETags, key)
		return
	}
	s.data.ETags[key] = etag
}

// Version returns the last-seen manifest version, or "" when absent.
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Version
}

// SetVersion overwrites the manifest version.
func (s *Store) SetVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Version = version
}

// UpdatedAt returns the time of the last successful Save (zero if never saved).
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.UpdatedAt
}

// Snapshot returns a deep copy of the current data.
func (s *Store) Snapshot() CachedData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data)
}

// Replace swaps in a copy of data, normalized like a loaded blob.
func (s *Store) Replace(data CachedData) {
	data = normalize(clone(data))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}

func clone(data CachedData) CachedData {
	out := CachedData{
		Translations: make(map[string]map[string]TranslationMap, len(data.Translations)),
		ETags:        maps.Clone(data.ETags),
		Version:      data.Version,
		UpdatedAt:    data.UpdatedAt,
	}
	if out.ETags == nil {
		out.ETags = make(map[string]string)
	}
	for locale, namespaces := range data.Translations {
		inner := make(map[string]TranslationMap, len(namespaces))
		for ns, m := range namespaces {
			inner[ns] = maps.Clone(m)
		}
		out.Translations[locale] = inner
	}
	return out
}
