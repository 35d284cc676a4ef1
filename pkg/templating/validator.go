package templating

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationResult is the outcome of a static template scan
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Elements that may never appear in a template
var ForbiddenTags = []string{
	"script",
	"object",
	"embed",
	"frame",
	"iframe",
	"form",
	"meta",
	"link",
	"base",
}

// Inline event handler attributes rejected by the validator
var ForbiddenAttributes = []string{
	"onclick",
	"ondblclick",
	"onmousedown",
	"onmouseup",
	"onmouseover",
	"onmousemove",
	"onmouseout",
	"onmouseenter",
	"onmouseleave",
	"onkeydown",
	"onkeypress",
	"onkeyup",
	"onload",
	"onerror",
	"onabort",
	"onfocus",
	"onblur",
	"onchange",
	"onsubmit",
	"onreset",
	"onselect",
	"oninput",
	"oncontextmenu",
	"ondrag",
	"ondragend",
	"ondragenter",
	"ondragleave",
	"ondragover",
	"ondragstart",
	"ondrop",
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

var (
	tagPatterns       = compilePatterns(ForbiddenTags, `(?i)<\s*%s[\s>/]`)
	attributePatterns = compilePatterns(ForbiddenAttributes, `(?i)\s%s\s*=`)

	// protocols match anywhere, a word prefix such as xjavascript: does not excuse them
	scriptProtocolPatterns = compilePatterns([]string{"javascript", "vbscript"}, `(?i)%s:`)
	dataProtocolPattern    = regexp.MustCompile(`(?i)data:`)

	tripleStachePattern = regexp.MustCompile(`\{\{\{[^}]*\}\}\}`)
)

func compilePatterns(names []string, format string) []pattern {
	out := make([]pattern, 0, len(names))
	for _, name := range names {
		out = append(out, pattern{
			name: name,
			re:   regexp.MustCompile(fmt.Sprintf(format, regexp.QuoteMeta(name))),
		})
	}
	return out
}

// Validate scans template source for markup that must never reach a
// display. Every failed check adds an entry, the scan does not stop early.
func Validate(source string) ValidationResult {
	errs := []string{}

	for _, p := range tagPatterns {
		if p.re.MatchString(source) {
			errs = append(errs, fmt.Sprintf("Forbidden tag found: <%s>", p.name))
		}
	}

	for _, p := range attributePatterns {
		if p.re.MatchString(source) {
			errs = append(errs, fmt.Sprintf("Forbidden attribute found: %s", p.name))
		}
	}

	for _, p := range scriptProtocolPatterns {
		if p.re.MatchString(source) {
			errs = append(errs, fmt.Sprintf("Forbidden protocol found: %s:", p.name))
		}
	}

	if hasNonImageDataURI(source) {
		errs = append(errs, "Forbidden protocol found: data:")
	}

	for _, expr := range tripleStachePattern.FindAllString(source, -1) {
		errs = append(errs, fmt.Sprintf(
			"Warning: Unescaped Handlebars expression found: %s. Use {{}} instead of {{{}}} for auto-escaping.", expr))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// data:image/ URIs are the one permitted use of the data scheme
func hasNonImageDataURI(source string) bool {
	for _, loc := range dataProtocolPattern.FindAllStringIndex(source, -1) {
		rest := source[loc[1]:]
		if len(rest) < len("image/") || !strings.EqualFold(rest[:len("image/")], "image/") {
			return true
		}
	}
	return false
}
