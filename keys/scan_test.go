package keys

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ZaguanLabs/golokal"
)

const goSource = `package views

import "fmt"

func header(tr Translator, user string) string {
	title := tr.T("page.title", nil)
	greeting := tr.T(` + "`greeting.hello`" + `, map[string]any{"name": user})
	dynamic := tr.T("prefix." + user, nil)
	other := fmt.Sprint("not.a.key")
	return title + greeting + dynamic + other + T("bare.call", nil)
}
`

func TestScanGo(t *testing.T) {
	usages, err := NewScanner().ScanGo("views.go", goSource)
	if err != nil {
		t.Fatalf("ScanGo failed: %v", err)
	}

	got := Unique(usages)
	want := []string{"bare.call", "greeting.hello", "page.title"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}

	for _, u := range usages {
		if u.Key == "page.title" && (u.Line != 6 || u.Kind != "go") {
			t.Errorf("page.title usage = %+v", u)
		}
	}
}

func TestScanGo_CustomFuncs(t *testing.T) {
	src := `package p

func f() { Translate("a"); msg.Get("b"); T("c") }
`
	usages, err := NewScanner(WithFuncs("Translate", "Get")).ScanGo("p.go", src)
	if err != nil {
		t.Fatalf("ScanGo failed: %v", err)
	}
	if got := Unique(usages); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestScanGo_ParseError(t *testing.T) {
	_, err := NewScanner().ScanGo("broken.go", "package")

	var scanErr *ScanError
	if !errors.As(err, &scanErr) || scanErr.File != "broken.go" {
		t.Fatalf("expected *ScanError, got %v", err)
	}
}

func TestScanHTML(t *testing.T) {
	src := `<div>
		<h1 data-i18n="page.title">Title</h1>
		<input data-i18n-attrs="placeholder=search.hint, title=search.title">
		<pre><span data-i18n="ignored.pre">x</span></pre>
		<section data-no-translate><p data-i18n="ignored.section">x</p></section>
	</div>`

	usages, err := NewScanner().ScanHTML("index.html", src)
	if err != nil {
		t.Fatalf("ScanHTML failed: %v", err)
	}

	got := Unique(usages)
	want := []string{"page.title", "search.hint", "search.title"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestScanDirAndMissing(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("views/views.go", goSource)
	write("templates/index.gohtml", `<p data-i18n="footer.text">x</p>`)
	write("vendor/lib/lib.go", `package lib; func f() { T("vendored") }`)
	write(".git/hooks/x.go", `package x; func f() { T("hidden") }`)
	write("README.md", `T("markdown")`)

	usages, err := NewScanner().ScanDir(root)
	if err != nil {
		t.Fatalf("ScanDir failed: %v", err)
	}

	want := []string{"bare.call", "footer.text", "greeting.hello", "page.title"}
	if got := Unique(usages); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	missing := Missing(usages, golokal.TranslationMap{
		"page.title":     "Home",
		"greeting.hello": "Hello",
	})
	if got := Unique(missing); !reflect.DeepEqual(got, []string{"bare.call", "footer.text"}) {
		t.Errorf("missing = %v", got)
	}
}

func TestUsageString(t *testing.T) {
	if s := (Usage{Key: "k", File: "a.go", Line: 3}).String(); s != "a.go:3: k" {
		t.Errorf("String() = %q", s)
	}
	if s := (Usage{Key: "k", File: "a.html"}).String(); s != "a.html: k" {
		t.Errorf("String() = %q", s)
	}
}
