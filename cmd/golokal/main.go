// Command golokal syncs, inspects and moves the local translation cache.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/golokal"
	"github.com/ZaguanLabs/golokal/cache"
	"github.com/ZaguanLabs/golokal/keys"
)

const usage = `Usage: golokal [global flags] <command> [flags]

Commands:
  sync     Fetch the configured namespaces into the cache
  get      Print translations for a locale and namespace
  watch    Keep the cache fresh and print changes
  check    Report translation keys used in source but missing from the cache
  export   Write the cache to a JSON snapshot
  import   Replace the cache with a JSON snapshot
  version  Show version

Global flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env carries what every command needs.
type env struct {
	settings *settings
	logger   zerolog.Logger
	stdout   io.Writer
	stderr   io.Writer
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("golokal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	globals := registerGlobalFlags(fs)
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion || fs.Arg(0) == "version" {
		printVersion(stdout)
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("command is required")
	}

	s, err := loadSettings(fs, globals)
	if err != nil {
		return err
	}
	logger, err := newLogger(stderr, s.LogLevel)
	if err != nil {
		return err
	}
	e := &env{settings: s, logger: logger, stdout: stdout, stderr: stderr}

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "sync":
		return e.runSync(rest)
	case "get":
		return e.runGet(rest)
	case "watch":
		return e.runWatch(rest)
	case "check":
		return e.runCheck(rest)
	case "export":
		return e.runExport(rest)
	case "import":
		return e.runImport(rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printVersion(w io.Writer) {
	b := golokal.Build()
	fmt.Fprintf(w, "%s %s\n", golokal.Name, b)
	if b.Date != "" {
		fmt.Fprintf(w, "  built:   %s\n", b.Date)
	}
	fmt.Fprintf(w, "  go:      %s\n", b.GoVersion)
}

// openClient builds a client over the configured storage and loads the cache.
func (e *env) openClient(ctx context.Context, pollInterval time.Duration) (*golokal.Client, func() error, error) {
	storage, closer, err := openStorage(ctx, e.settings)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	cfg := e.settings.clientConfig(storage)
	cfg.PollInterval = pollInterval
	client, err := golokal.NewClient(cfg,
		golokal.WithLogger(e.logger),
		golokal.WithRetryPolicy(golokal.DefaultRetryConfig()),
	)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return client, closer, nil
}

// openStore opens only the cache, for commands that never reach the API.
func (e *env) openStore(ctx context.Context) (*cache.Store, func() error, error) {
	if e.settings.APIKey == "" {
		return nil, nil, fmt.Errorf("API key required (--api-key or GOLOKAL_API_KEY)")
	}
	storage, closer, err := openStorage(ctx, e.settings)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	store := cache.NewStore(e.settings.APIKey, storage, cache.WithStoreLogger(e.logger))
	store.Load(ctx)
	return store, closer, nil
}

func (e *env) runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	jsonOut := fs.Bool("json", false, "Output result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	client, closer, err := e.openClient(ctx, 0)
	if err != nil {
		return err
	}
	defer closer()
	defer client.Destroy()

	client.Store().Load(ctx)
	start := time.Now()
	if err := client.Sync(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	elapsed := time.Since(start)

	cfg := client.Config()
	counts := make(map[string]int, len(cfg.Namespaces))
	for _, ns := range cfg.Namespaces {
		counts[ns] = len(client.Translations(cfg.DefaultLocale, ns))
	}

	if *jsonOut {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Locale     string         `json:"locale"`
			Version    string         `json:"version,omitempty"`
			Namespaces map[string]int `json:"namespaces"`
			ElapsedMs  int64          `json:"elapsed_ms"`
		}{
			Locale:     cfg.DefaultLocale,
			Version:    client.Store().Version(),
			Namespaces: counts,
			ElapsedMs:  elapsed.Milliseconds(),
		})
	}

	for _, ns := range cfg.Namespaces {
		fmt.Fprintf(e.stdout, "%s/%s\t%d keys\n", cfg.DefaultLocale, ns, counts[ns])
	}
	fmt.Fprintf(e.stderr, "Synced in %v\n", elapsed.Round(time.Millisecond))
	return nil
}

func (e *env) runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	locale := fs.String("locale", "", "Locale (default: configured locale)")
	namespace := fs.String("namespace", golokal.DefaultNamespace, "Namespace")
	offline := fs.Bool("offline", false, "Read the cache only")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *locale == "" {
		*locale = e.settings.Locale
	}

	m, err := e.translations(context.Background(), *locale, *namespace, *offline)
	if err != nil {
		return err
	}

	if names := fs.Args(); len(names) > 0 {
		selected := make(golokal.TranslationMap, len(names))
		for _, k := range names {
			if v, ok := m[k]; ok {
				selected[k] = v
			} else {
				selected[k] = k
				e.logger.Warn().Str("key", k).Msg("missing translation")
			}
		}
		m = selected
	}

	if *jsonOut {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(e.stdout, "%s\t%s\n", k, m[k])
	}
	return nil
}

// translations reads one namespace from the cache, or fetches it first unless offline.
func (e *env) translations(ctx context.Context, locale, namespace string, offline bool) (golokal.TranslationMap, error) {
	if offline {
		store, closer, err := e.openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer closer()
		return store.Translations(locale, namespace), nil
	}

	client, closer, err := e.openClient(ctx, 0)
	if err != nil {
		return nil, err
	}
	defer closer()
	defer client.Destroy()

	client.Store().Load(ctx)
	m, err := client.FetchTranslations(ctx, locale, namespace)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s: %w", locale, namespace, err)
	}
	return m, nil
}

func (e *env) runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	locale := fs.String("locale", "", "Locale (default: configured locale)")
	namespace := fs.String("namespace", golokal.DefaultNamespace, "Namespace")
	offline := fs.Bool("offline", false, "Read the cache only")
	funcs := fs.String("funcs", "T", "Comma-separated call names whose first argument is a key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *locale == "" {
		*locale = e.settings.Locale
	}
	dirs := fs.Args()
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	scanner := keys.NewScanner(keys.WithFuncs(strings.Split(*funcs, ",")...))
	var usages []keys.Usage
	for _, dir := range dirs {
		found, err := scanner.ScanDir(dir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
		usages = append(usages, found...)
	}

	m, err := e.translations(context.Background(), *locale, *namespace, *offline)
	if err != nil {
		return err
	}

	missing := keys.Missing(usages, m)
	for _, u := range missing {
		fmt.Fprintln(e.stdout, u)
	}

	used := keys.Unique(usages)
	e.logger.Debug().Int("used", len(used)).Int("available", len(m)).Msg("checked keys")
	if n := len(keys.Unique(missing)); n > 0 {
		return fmt.Errorf("%d of %d keys missing from %s/%s", n, len(used), *locale, *namespace)
	}
	fmt.Fprintf(e.stderr, "All %d keys present in %s/%s\n", len(used), *locale, *namespace)
	return nil
}

func (e *env) runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	interval := fs.Duration("interval", 0, "Poll interval (default: configured poll interval)")
	duration := fs.Duration("for", 0, "Stop after this long (default: until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interval <= 0 {
		*interval = e.settings.PollInterval
	}
	if *interval <= 0 {
		return fmt.Errorf("watch needs a positive poll interval")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	client, closer, err := e.openClient(ctx, *interval)
	if err != nil {
		return err
	}
	defer closer()
	defer client.Destroy()

	cfg := client.Config()
	var mu sync.Mutex
	previous := make(map[string]golokal.TranslationMap, len(cfg.Namespaces))

	report := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, ns := range cfg.Namespaces {
			current := client.Translations(cfg.DefaultLocale, ns)
			diff := golokal.DiffTranslations(previous[ns], current)
			previous[ns] = current
			if !diff.HasChanges() {
				continue
			}
			printDiff(e.stdout, cfg.DefaultLocale+"/"+ns, diff, current)
		}
	}

	unsubscribe := client.Subscribe(report)
	defer unsubscribe()

	client.Init(ctx)
	report()
	fmt.Fprintf(e.stderr, "Watching %s every %v (Ctrl+C to stop)\n", strings.Join(cfg.Namespaces, ","), *interval)

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil
	}
	fmt.Fprintln(e.stderr, "Stopped")
	return nil
}

func printDiff(w io.Writer, label string, diff *golokal.DiffResult, current golokal.TranslationMap) {
	stats := diff.Stats()
	fmt.Fprintf(w, "%s %s: +%d -%d ~%d\n", time.Now().Format("15:04:05"), label, stats.Added, stats.Removed, stats.Modified)
	for _, k := range diff.Added {
		fmt.Fprintf(w, "  + %s = %s\n", k, current[k])
	}
	for _, k := range diff.Removed {
		fmt.Fprintf(w, "  - %s\n", k)
	}
	for _, k := range diff.Modified {
		fmt.Fprintf(w, "  ~ %s = %s\n", k, current[k])
	}
}

func (e *env) runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	output := fs.String("output", "", "Output file (default: stdout)")
	outputShort := fs.String("o", "", "Output file (short for --output)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outputShort != "" && *output == "" {
		*output = *outputShort
	}

	ctx := context.Background()
	store, closer, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer closer()

	metadata := map[string]string{
		"generator": golokal.UserAgent(),
		"store":     e.settings.Store,
	}
	exporter := cache.NewExporter(store)
	if *output == "" {
		return exporter.Export(e.stdout, metadata)
	}
	if err := exporter.ExportToFile(*output, metadata); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	fmt.Fprintf(e.stderr, "Exported cache to %s\n", *output)
	return nil
}

func (e *env) runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import takes exactly one snapshot file")
	}

	ctx := context.Background()
	store, closer, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer closer()

	result, err := cache.NewImporter(store).ImportFromFile(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("importing: %w", err)
	}
	fmt.Fprintf(e.stdout, "Imported %d locales, %d namespaces, %d keys\n", result.Locales, result.Namespaces, result.Keys)
	return nil
}
