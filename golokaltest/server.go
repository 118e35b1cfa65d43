// Package golokaltest provides an in-process fake of the public translations
// API for tests and examples.
package golokaltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/ZaguanLabs/golokal"
)

// Server fakes the manifest and translations endpoints over httptest.
// The zero value is not usable; create one with NewServer and Close it when done.
type Server struct {
	*httptest.Server

	apiKey string

	mu           sync.Mutex
	translations map[string]map[string]golokal.TranslationMap // locale → namespace → map
	source       string
	version      string
	pinned       bool
	omitVersion  bool
	failures     map[string]int
	holds        map[string]chan struct{}
	requests     map[string]int

	manifestRequests    int
	translationRequests int
	notModified         int
}

// NewServer starts a fake API that accepts apiKey.
func NewServer(apiKey string) *Server {
	s := &Server{
		apiKey:       apiKey,
		translations: make(map[string]map[string]golokal.TranslationMap),
		failures:     make(map[string]int),
		holds:        make(map[string]chan struct{}),
		requests:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/public/v1/manifest", s.handleManifest)
	mux.HandleFunc("GET /api/public/v1/translations", s.handleTranslations)
	s.Server = httptest.NewServer(mux)
	return s
}

func pairKey(locale, namespace string) string {
	return locale + ":" + namespace
}

// SetTranslations publishes m for locale and namespace. The first locale set
// becomes the source locale.
func (s *Server) SetTranslations(locale, namespace string, m golokal.TranslationMap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == "" {
		s.source = locale
	}
	if s.translations[locale] == nil {
		s.translations[locale] = make(map[string]golokal.TranslationMap)
	}
	cp := make(golokal.TranslationMap, len(m))
	for k, v := range m {
		cp[k] = v
	}
	s.translations[locale][namespace] = cp
}

// SetVersion pins the manifest version. Without it the version is derived from
// the published content and changes whenever content does.
func (s *Server) SetVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
	s.pinned = true
}

// OmitVersion drops the version field from the manifest.
func (s *Server) OmitVersion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitVersion = true
}

// Fail makes requests for locale and namespace answer with status.
// A status of 0 clears the failure.
func (s *Server) Fail(locale, namespace string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, pairKey(locale, namespace))
		return
	}
	s.failures[pairKey(locale, namespace)] = status
}

// Hold blocks requests for locale and namespace until release is called.
func (s *Server) Hold(locale, namespace string) (release func()) {
	ch := make(chan struct{})
	key := pairKey(locale, namespace)

	s.mu.Lock()
	s.holds[key] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holds[key] == ch {
				delete(s.holds, key)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// ManifestRequests returns the number of manifest requests served.
func (s *Server) ManifestRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifestRequests
}

// TranslationRequests returns the number of translations requests served.
func (s *Server) TranslationRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translationRequests
}

// Requests returns the number of translations requests for one pair.
func (s *Server) Requests(locale, namespace string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[pairKey(locale, namespace)]
}

// NotModified returns the number of 304 responses sent.
func (s *Server) NotModified() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notModified
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("x-api-key") != s.apiKey {
		writeError(w, http.StatusUnauthorized, "invalid API key")
		return false
	}
	return true
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.manifestRequests++
	s.mu.Unlock()

	if !s.authorized(w, r) {
		return
	}

	s.mu.Lock()
	manifest := golokal.Manifest{
		Locales:    s.localesLocked(),
		Namespaces: s.namespacesLocked(),
	}
	if !s.omitVersion {
		manifest.Version = s.versionLocked()
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, manifest)
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = golokal.DefaultNamespace
	}
	key := pairKey(locale, namespace)

	s.mu.Lock()
	s.translationRequests++
	s.requests[key]++
	hold := s.holds[key]
	s.mu.Unlock()

	if !s.authorized(w, r) {
		return
	}
	if locale == "" {
		writeError(w, http.StatusBadRequest, "locale is required")
		return
	}

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	status, failing := s.failures[key]
	namespaces, known := s.translations[locale]
	m := namespaces[namespace]
	s.mu.Unlock()

	switch {
	case failing:
		writeError(w, status, http.StatusText(status))
		return
	case !known:
		writeError(w, http.StatusNotFound, "locale not found")
		return
	}
	if m == nil {
		m = golokal.TranslationMap{}
	}

	etag := golokal.ContentETag(m)
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		s.mu.Lock()
		s.notModified++
		s.mu.Unlock()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"translations": m})
}

func (s *Server) localesLocked() []golokal.Locale {
	codes := make([]string, 0, len(s.translations))
	for code := range s.translations {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	locales := make([]golokal.Locale, len(codes))
	for i, code := range codes {
		locales[i] = golokal.Locale{Code: code, Name: code, IsSource: code == s.source}
	}
	return locales
}

func (s *Server) namespacesLocked() []string {
	seen := make(map[string]bool)
	for _, namespaces := range s.translations {
		for ns := range namespaces {
			seen[ns] = true
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

func (s *Server) versionLocked() string {
	if s.pinned {
		return s.version
	}

	// Derived version: a hash over every published map.
	all := golokal.TranslationMap{}
	for locale, namespaces := range s.translations {
		for ns, m := range namespaces {
			for k, v := range m {
				all[locale+"\x00"+ns+"\x00"+k] = v
			}
		}
	}
	return golokal.HashTranslations(all)[:12]
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
