// Package keys finds the translation keys a code base references and reports
// the ones a translation map does not provide.
package keys

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ZaguanLabs/golokal"
	"github.com/ZaguanLabs/golokal/render"
)

// Usage is one reference to a translation key.
type Usage struct {
	Key  string
	File string
	Line int    // 0 when the source format has no line information
	Kind string // "go" or "html"
}

func (u Usage) String() string {
	if u.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", u.File, u.Line, u.Key)
	}
	return fmt.Sprintf("%s: %s", u.File, u.Key)
}

// ScanError indicates a source file that could not be scanned.
type ScanError struct {
	File  string
	Cause error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error: %s: %v", e.File, e.Cause)
}

func (e *ScanError) Unwrap() error {
	return e.Cause
}

// Scanner extracts key usages from Go and HTML sources.
type Scanner struct {
	funcs map[string]bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFuncs sets the function or method names whose first argument is a key.
func WithFuncs(names ...string) Option {
	return func(s *Scanner) {
		s.funcs = make(map[string]bool, len(names))
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				s.funcs[name] = true
			}
		}
	}
}

// NewScanner creates a scanner that recognizes calls to T by default.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{funcs: map[string]bool{"T": true}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanGo returns the string-literal keys passed to recognized calls in src.
// Keys built at runtime cannot be seen and are skipped.
func (s *Scanner) ScanGo(filename, src string) ([]Usage, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, &ScanError{File: filename, Cause: err}
	}

	var usages []Usage
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || len(call.Args) == 0 || !s.funcs[calleeName(call.Fun)] {
			return true
		}

		lit, ok := call.Args[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		key, err := strconv.Unquote(lit.Value)
		if err != nil || key == "" {
			return true
		}

		usages = append(usages, Usage{
			Key:  key,
			File: filename,
			Line: fset.Position(lit.Pos()).Line,
			Kind: "go",
		})
		return true
	})

	return usages, nil
}

func calleeName(fun ast.Expr) string {
	switch f := fun.(type) {
	case *ast.Ident:
		return f.Name
	case *ast.SelectorExpr:
		return f.Sel.Name
	case *ast.IndexExpr:
		return calleeName(f.X)
	}
	return ""
}

// ScanHTML returns the keys referenced by data-i18n and data-i18n-attrs
// markers that a Localizer would fill.
func (s *Scanner) ScanHTML(filename, src string) ([]Usage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, &ScanError{File: filename, Cause: err}
	}

	skip := strings.Join(render.DefaultIgnoredTags, ",") + ",[" + render.NoTranslateAttr + "]"
	selector := "[" + render.TextAttr + "],[" + render.AttrsAttr + "]"

	var usages []Usage
	add := func(key string) {
		if key = strings.TrimSpace(key); key != "" {
			usages = append(usages, Usage{Key: key, File: filename, Kind: "html"})
		}
	}

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if sel.Closest(skip).Length() > 0 {
			return
		}
		if key, ok := sel.Attr(render.TextAttr); ok {
			add(key)
		}
		if spec, ok := sel.Attr(render.AttrsAttr); ok {
			for _, pair := range strings.Split(spec, ",") {
				if _, key, found := strings.Cut(pair, "="); found {
					add(key)
				}
			}
		}
	})

	return usages, nil
}

var htmlExtensions = map[string]bool{
	".html":   true,
	".htm":    true,
	".gohtml": true,
	".tmpl":   true,
}

// ScanDir walks root and scans every Go and HTML template file. Hidden
// directories, vendor and testdata are skipped.
func (s *Scanner) ScanDir(root string) ([]Usage, error) {
	var usages []Usage

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".go" && !htmlExtensions[ext] {
			return nil
		}

		data, err := os.ReadFile(path) // #nosec G304 - walking a user-chosen tree
		if err != nil {
			return err
		}

		var found []Usage
		if ext == ".go" {
			found, err = s.ScanGo(path, string(data))
		} else {
			found, err = s.ScanHTML(path, string(data))
		}
		if err != nil {
			return err
		}
		usages = append(usages, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortUsages(usages)
	return usages, nil
}

// Missing returns the usages whose key is absent from available.
func Missing(usages []Usage, available golokal.TranslationMap) []Usage {
	var missing []Usage
	for _, u := range usages {
		if _, ok := available[u.Key]; !ok {
			missing = append(missing, u)
		}
	}
	sortUsages(missing)
	return missing
}

// Unique returns the distinct keys of usages, sorted.
func Unique(usages []Usage) []string {
	seen := make(map[string]bool, len(usages))
	var out []string
	for _, u := range usages {
		if !seen[u.Key] {
			seen[u.Key] = true
			out = append(out, u.Key)
		}
	}
	sort.Strings(out)
	return out
}

func sortUsages(usages []Usage) {
	sort.SliceStable(usages, func(i, j int) bool {
		a, b := usages[i], usages[j]
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}
