// Package render fills translation markers in HTML documents.
//
// Elements carrying data-i18n="key" get their text replaced with the
// translation for key; data-i18n-attrs="title=key1,placeholder=key2" fills
// attributes. A full document also gets lang and dir on its <html> element.
package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ZaguanLabs/golokal"
)

// Marker attributes.
const (
	TextAttr        = "data-i18n"
	AttrsAttr       = "data-i18n-attrs"
	NoTranslateAttr = "data-no-translate"
)

// DefaultIgnoredTags are never localized, nor is anything inside them.
var DefaultIgnoredTags = []string{"script", "style", "code", "pre", "textarea", "noscript"}

// Translator resolves keys for one locale. *binding.Translation implements it.
type Translator interface {
	T(key string, vars map[string]any) string
	Locale() string
}

// Localizer applies a Translator to HTML content.
type Localizer struct {
	tr          Translator
	ignoredTags map[string]bool
}

// NewLocalizer creates a localizer with the default ignored tags.
func NewLocalizer(tr Translator) *Localizer {
	return NewLocalizerWithIgnoredTags(tr, DefaultIgnoredTags)
}

// NewLocalizerWithIgnoredTags creates a localizer with custom ignored tags.
func NewLocalizerWithIgnoredTags(tr Translator, tags []string) *Localizer {
	ignored := make(map[string]bool, len(tags))
	for _, tag := range tags {
		ignored[strings.ToLower(tag)] = true
	}
	return &Localizer{tr: tr, ignoredTags: ignored}
}

// Localize fills every marked element of content. Fragments come back as
// fragments; full documents also get lang and dir set on <html>.
func (l *Localizer) Localize(content string, vars map[string]any) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", &RenderError{Message: "failed to parse HTML", Cause: err}
	}

	var targets []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if l.ignoredTags[strings.ToLower(n.Data)] || hasAttr(n, NoTranslateAttr) {
				return
			}
			if hasAttr(n, TextAttr) || hasAttr(n, AttrsAttr) {
				targets = append(targets, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	for _, n := range targets {
		l.apply(doc.FindNodes(n), vars)
	}

	if isFullDocument(content) {
		locale := l.tr.Locale()
		doc.Find("html").
			SetAttr("lang", golokal.ToHTMLLang(locale)).
			SetAttr("dir", golokal.GetDirection(locale))

		out, err := doc.Html()
		if err != nil {
			return "", &RenderError{Message: "failed to serialize HTML", Cause: err}
		}
		return out, nil
	}

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", &RenderError{Message: "failed to serialize HTML", Cause: err}
	}
	return out, nil
}

func (l *Localizer) apply(sel *goquery.Selection, vars map[string]any) {
	if key, ok := sel.Attr(TextAttr); ok && strings.TrimSpace(key) != "" {
		sel.SetText(preserveWhitespace(sel.Text(), l.tr.T(strings.TrimSpace(key), vars)))
	}

	if spec, ok := sel.Attr(AttrsAttr); ok {
		for _, pair := range strings.Split(spec, ",") {
			name, key, found := strings.Cut(pair, "=")
			name, key = strings.TrimSpace(name), strings.TrimSpace(key)
			if !found || name == "" || key == "" {
				continue
			}
			sel.SetAttr(name, l.tr.T(key, vars))
		}
	}
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

func isFullDocument(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype")
}

// preserveWhitespace keeps the original leading/trailing whitespace around translated.
func preserveWhitespace(original, translated string) string {
	leadingLen := len(original) - len(strings.TrimLeft(original, " \t\n\r"))
	leading := original[:leadingLen]

	trimmed := strings.TrimLeft(original, " \t\n\r")
	trailingLen := len(trimmed) - len(strings.TrimRight(trimmed, " \t\n\r"))
	trailing := trimmed[len(trimmed)-trailingLen:]

	return leading + translated + trailing
}
