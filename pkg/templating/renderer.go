package templating

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aymerick/raymond"
)

// Security limits for template rendering
const (
	DefaultRenderTimeout   = 5 * time.Second
	DefaultMaxTemplateSize = 100 * 1024 // 100KB
)

// RenderError wraps a compile or execution failure of a template
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("Template rendering failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// TemplateValidationError carries every validator message of a rejected template
type TemplateValidationError struct {
	Errors []string
}

func (e *TemplateValidationError) Error() string {
	return "Template validation failed: " + strings.Join(e.Errors, "; ")
}

type RendererOption func(*Renderer)

// WithRenderTimeout bounds a single template execution
func WithRenderTimeout(timeout time.Duration) RendererOption {
	return func(r *Renderer) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithMaxTemplateSize bounds the template source in bytes
func WithMaxTemplateSize(size int) RendererOption {
	return func(r *Renderer) {
		if size > 0 {
			r.maxSize = size
		}
	}
}

// Renderer compiles handlebars templates with a fixed helper set and
// sanitizes what they produce. It holds no per-render state.
type Renderer struct {
	helpers   *HelperRegistry
	sanitizer *Sanitizer
	timeout   time.Duration
	maxSize   int
}

func NewRenderer(helpers *HelperRegistry, opts ...RendererOption) *Renderer {
	if helpers == nil {
		helpers = NewHelperRegistry()
	}
	r := &Renderer{
		helpers:   helpers,
		sanitizer: NewSanitizer(),
		timeout:   DefaultRenderTimeout,
		maxSize:   DefaultMaxTemplateSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate runs the static template scan
func (r *Renderer) Validate(source string) ValidationResult {
	return Validate(source)
}

// Sanitize applies the output allow list
func (r *Renderer) Sanitize(html string) string {
	return r.sanitizer.Sanitize(html)
}

// Render interpolates data into source. Values are HTML escaped and
// missing keys render empty. The output is not sanitized.
func (r *Renderer) Render(source string, data map[string]interface{}) (string, error) {
	if len(source) > r.maxSize {
		return "", &RenderError{Err: fmt.Errorf("template size (%d bytes) exceeds maximum allowed size (%d bytes)", len(source), r.maxSize)}
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	resultChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				errorChan <- &RenderError{Err: fmt.Errorf("panic during rendering: %v", rec)}
			}
		}()

		tpl, err := raymond.Parse(source)
		if err != nil {
			errorChan <- &RenderError{Err: err}
			return
		}
		r.helpers.register(tpl)

		rendered, err := tpl.Exec(data)
		if err != nil {
			errorChan <- &RenderError{Err: err}
			return
		}
		resultChan <- rendered
	}()

	select {
	case result := <-resultChan:
		return result, nil
	case err := <-errorChan:
		return "", err
	case <-ctx.Done():
		return "", &RenderError{Err: fmt.Errorf("rendering timeout after %v", r.timeout)}
	}
}

// Process is the full pipeline: validate, render, sanitize. Nothing is
// returned for a template that fails validation.
func (r *Renderer) Process(source string, data map[string]interface{}) (string, error) {
	result := Validate(source)
	if !result.Valid {
		return "", &TemplateValidationError{Errors: result.Errors}
	}

	rendered, err := r.Render(source, data)
	if err != nil {
		return "", err
	}

	return r.sanitizer.Sanitize(rendered), nil
}
