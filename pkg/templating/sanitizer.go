package templating

import (
	"slices"

	"github.com/microcosm-cc/bluemonday"
)

var allowedElements = []string{
	"h1", "h2", "h3", "h4", "h5", "h6", "p", "br", "hr", "ul", "ol", "li",
	"table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption", "colgroup", "col",
	"div", "span",
	"strong", "b", "em", "i", "u", "s", "small", "sub", "sup", "mark", "abbr", "time",
	"a", "img", "figure", "figcaption", "blockquote", "pre", "code",
	"dl", "dt", "dd",
	"header", "footer", "section", "article", "aside", "nav", "main",
	"style",
}

var allowedAttributes = []string{
	"href", "src", "alt", "title", "width", "height",
	"class", "id", "style", "colspan", "rowspan", "target", "rel",
}

// Sanitizer is the allow-list pass applied to every rendered template
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the display policy. Elements outside the allow
// list are dropped, and script-like elements lose their content too.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedElements...)
	p.AllowNoAttrs().OnElements(excluding(allowedElements, "a", "img")...)
	p.AllowAttrs(allowedAttributes...).Globally()

	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.AllowDataURIImages()

	// <style> bodies are only emitted verbatim in unsafe mode; <script>
	// stays off the element list so it is still stripped
	p.AllowUnsafe(true)

	return &Sanitizer{policy: p}
}

func excluding(elements []string, exclude ...string) []string {
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		if !slices.Contains(exclude, el) {
			out = append(out, el)
		}
	}
	return out
}

// Sanitize is safe for concurrent use
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
