package templating

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aymerick/raymond"
)

const defaultDateLayout = "January 2, 2006"

// Named layouts accepted by formatDate's format= parameter. Anything else
// is used as a Go time layout.
var dateLayouts = map[string]string{
	"short":    "1/2/2006",
	"medium":   "Jan 2, 2006",
	"long":     defaultDateLayout,
	"full":     "Monday, January 2, 2006",
	"iso":      "2006-01-02",
	"time":     "3:04 PM",
	"datetime": "Jan 2, 2006 3:04 PM",
}

// Input layouts tried in order when a helper receives a date string
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

const (
	iconThunderstorm = "\u26C8\uFE0F"
	iconDrizzle      = "\U0001F326\uFE0F"
	iconRain         = "\U0001F327\uFE0F"
	iconSnow         = "\u2744\uFE0F"
	iconFog          = "\U0001F32B\uFE0F"
	iconClear        = "\u2600\uFE0F"
	iconFewClouds    = "\u26C5"
	iconClouds       = "\u2601\uFE0F"
	iconDefault      = "\U0001F324\uFE0F"
)

type currencyFormat struct {
	symbol   string
	decimals int
}

var currencies = map[string]currencyFormat{
	"USD": {"$", 2},
	"EUR": {"€", 2},
	"GBP": {"£", 2},
	"JPY": {"¥", 0},
	"CAD": {"CA$", 2},
	"AUD": {"A$", 2},
	"NZD": {"NZ$", 2},
	"MXN": {"MX$", 2},
	"BRL": {"R$", 2},
	"INR": {"₹", 2},
	"CNY": {"CN¥", 2},
	"KRW": {"₩", 0},
	"ILS": {"₪", 2},
	"VND": {"₫", 0},
}

// HelperOption customizes a HelperRegistry
type HelperOption func(*helperSettings)

type helperSettings struct {
	now      func() time.Time
	location *time.Location
}

// WithClock replaces the clock used by relativeTime
func WithClock(now func() time.Time) HelperOption {
	return func(s *helperSettings) {
		s.now = now
	}
}

// WithLocation sets the zone dates are formatted in
func WithLocation(loc *time.Location) HelperOption {
	return func(s *helperSettings) {
		if loc != nil {
			s.location = loc
		}
	}
}

// HelperRegistry is the fixed helper set handed to every template. It is
// built once and never changes, so renderers can share it.
type HelperRegistry struct {
	helpers map[string]interface{}
}

// NewHelperRegistry builds the display helpers
func NewHelperRegistry(opts ...HelperOption) *HelperRegistry {
	s := &helperSettings{
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}

	return &HelperRegistry{
		helpers: map[string]interface{}{
			"formatDate":     s.formatDate,
			"formatNumber":   formatNumber,
			"formatCurrency": formatCurrency,
			"eq":             helperEq,
			"ne":             helperNe,
			"gt":             helperGt,
			"lt":             helperLt,
			"json":           helperJSON,
			"weatherIcon":    WeatherIcon,
			"relativeTime":   s.relativeTime,
		},
	}
}

// Names returns the registered helper names, sorted
func (r *HelperRegistry) Names() []string {
	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *HelperRegistry) register(tpl *raymond.Template) {
	for name, fn := range r.helpers {
		tpl.RegisterHelper(name, fn)
	}
}

func (s *helperSettings) formatDate(value interface{}, options *raymond.Options) string {
	t, ok := toTime(value)
	if !ok {
		return ""
	}
	layout := defaultDateLayout
	if f := options.HashStr("format"); f != "" {
		if named, found := dateLayouts[f]; found {
			layout = named
		} else {
			layout = f
		}
	}
	return t.In(s.location).Format(layout)
}

func formatNumber(value interface{}, options *raymond.Options) string {
	f, ok := toFloat(value)
	if !ok {
		return ""
	}
	decimals := 2
	if d, found := toFloat(options.HashProp("decimals")); found && d >= 0 && d <= 20 {
		decimals = int(d)
	}
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

func formatCurrency(value interface{}, options *raymond.Options) string {
	f, ok := toFloat(value)
	if !ok {
		return ""
	}

	code := strings.ToUpper(options.HashStr("currency"))
	if code == "" {
		code = "USD"
	}
	format, known := currencies[code]
	if !known {
		if !isCurrencyCode(code) {
			return ""
		}
		// no-break space between code and amount
		format = currencyFormat{symbol: code + "\u00a0", decimals: 2}
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	return sign + format.symbol + groupThousands(strconv.FormatFloat(f, 'f', format.decimals, 64))
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// groupThousands inserts commas into the integer part of a formatted number
func groupThousands(s string) string {
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return s
	}

	var b strings.Builder
	head := len(intPart) % 3
	if head > 0 {
		b.WriteString(intPart[:head])
	}
	for i := head; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	b.WriteString(frac)
	return b.String()
}

func helperEq(a, b interface{}) bool {
	return valuesEqual(a, b)
}

func helperNe(a, b interface{}) bool {
	return !valuesEqual(a, b)
}

func helperGt(a, b interface{}) bool {
	c, ok := compareValues(a, b)
	return ok && c > 0
}

func helperLt(a, b interface{}) bool {
	c, ok := compareValues(a, b)
	return ok && c < 0
}

// valuesEqual treats numbers of different Go types as equal when their
// values are, since decoded JSON is float64 and template literals are int
func valuesEqual(a, b interface{}) bool {
	if fa, ok := numericValue(a); ok {
		if fb, ok := numericValue(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func compareValues(a, b interface{}) (int, bool) {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func helperJSON(value interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// WeatherIcon maps an OpenWeatherMap condition code to an emoji
func WeatherIcon(code interface{}) string {
	if code == nil {
		return ""
	}
	c, ok := toFloat(code)
	if !ok {
		return iconDefault
	}
	switch {
	case c >= 200 && c < 300:
		return iconThunderstorm
	case c >= 300 && c < 400:
		return iconDrizzle
	case c == 511:
		return iconSnow
	case c >= 500 && c < 600:
		return iconRain
	case c >= 600 && c < 700:
		return iconSnow
	case c >= 700 && c < 800:
		return iconFog
	case c == 800:
		return iconClear
	case c == 801:
		return iconFewClouds
	case c >= 802 && c <= 804:
		return iconClouds
	default:
		return iconDefault
	}
}

func (s *helperSettings) relativeTime(value interface{}) string {
	t, ok := toTime(value)
	if !ok {
		return ""
	}
	return RelativeTime(t, s.now())
}

// RelativeTime renders the distance between t and now as "N units ago".
// Times in the future read as "just now".
func RelativeTime(t, now time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	if seconds < 60 {
		return "just now"
	}
	minutes := seconds / 60
	if minutes < 60 {
		return ago(minutes, "minute")
	}
	hours := minutes / 60
	if hours < 24 {
		return ago(hours, "hour")
	}
	days := hours / 24
	if days < 30 {
		return ago(days, "day")
	}
	months := days / 30
	if months < 12 {
		return ago(months, "month")
	}
	return ago(months/12, "year")
}

func ago(n int64, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// numericValue accepts Go number types only, strings are not coerced
func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// toFloat is numericValue plus numeric strings
func toFloat(v interface{}) (float64, bool) {
	if f, ok := numericValue(v); ok {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toTime accepts time values, date strings and epoch milliseconds
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range parseLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	}
	if ms, ok := numericValue(v); ok && !math.IsNaN(ms) && !math.IsInf(ms, 0) {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}
