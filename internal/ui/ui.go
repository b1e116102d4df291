// Package ui renders CLI output: organization tables, status lines and
// ingestion progress. Styling is only applied on interactive terminals.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Config configures a Printer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// NewConfig creates a Config for output. Color is off when NO_COLOR is set.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output:  output,
		NoColor: DetectNoColor(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Printer writes CLI output, styled on terminals and plain elsewhere.
type Printer struct {
	out     io.Writer
	plain   bool
	noColor bool
	styles  Styles
}

// NewPrinter creates a printer. Output that is not a terminal, CI runs and
// ForcePlain all select plain mode.
func NewPrinter(cfg Config) *Printer {
	plain := cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI()
	return &Printer{
		out:     cfg.Output,
		plain:   plain,
		noColor: plain || cfg.NoColor,
		styles:  GetStyles(plain || cfg.NoColor),
	}
}

// Plain reports whether the printer writes unstyled text.
func (p *Printer) Plain() bool {
	return p.plain
}

// Writer returns the underlying output.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	p.status("✓", p.styles.Success, format, args...)
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.status("!", p.styles.Warning, format, args...)
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	p.status("✗", p.styles.Error, format, args...)
}

func (p *Printer) status(icon string, style lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(p.out, "%s %s\n", style.Render(icon), msg)
}

// KeyValue prints an aligned label and value.
func (p *Printer) KeyValue(label string, value any) {
	_, _ = fmt.Fprintf(p.out, "%s %v\n", p.styles.Label.Render(fmt.Sprintf("%-16s", label+":")), value)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
