package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vault-cli/credman/internal/domain"
)

// MaxOutputSize is the maximum allowed size for output to prevent memory exhaustion
const MaxOutputSize = 10 * 1024 * 1024 // 10MB

// Printer writes command results. Quiet drops labels and status lines so
// only bare values are printed; JSON switches results to JSON documents.
type Printer struct {
	w     io.Writer
	Quiet bool
	JSON  bool
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, quiet, asJSON bool) *Printer {
	return &Printer{w: w, Quiet: quiet, JSON: asJSON}
}

// Status prints an informational line, suppressed in quiet and JSON mode.
func (p *Printer) Status(format string, args ...interface{}) error {
	if p.Quiet || p.JSON {
		return nil
	}
	return writeOutput(p.w, format+"\n", args...)
}

// Line prints a line unconditionally.
func (p *Printer) Line(format string, args ...interface{}) error {
	return writeOutput(p.w, format+"\n", args...)
}

// Field prints one field as "Label:   value", or the bare value when quiet.
func (p *Printer) Field(field domain.Field, value string) error {
	if p.Quiet {
		return writeOutput(p.w, "%s\n", value)
	}
	return writeOutput(p.w, "%-12s %s\n", fieldLabel(field)+":", value)
}

// Secret prints every field of a secret.
func (p *Printer) Secret(secret domain.Secret) error {
	if p.JSON {
		return p.Value(secretView(secret))
	}

	for _, field := range displayFields(secret.Kind()) {
		value, err := secret.Get(field)
		if err != nil {
			return err
		}
		if err := p.Field(field, value); err != nil {
			return err
		}
	}
	return nil
}

// Table prints rows aligned in columns. The header is dropped when quiet.
func (p *Printer) Table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	if !p.Quiet && len(header) > 0 {
		if err := writeRow(tw, header); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := writeRow(tw, row); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Value prints v as indented JSON.
func (p *Printer) Value(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return writeString(p.w, string(data)+"\n")
}

func writeRow(w io.Writer, cols []string) error {
	for i, col := range cols {
		sep := "\t"
		if i == len(cols)-1 {
			sep = "\n"
		}
		if err := writeString(w, col+sep); err != nil {
			return err
		}
	}
	return nil
}

// secretView is the JSON shape of a secret: its kind plus its fields.
func secretView(secret domain.Secret) map[string]string {
	view := map[string]string{"kind": string(secret.Kind())}
	for _, field := range displayFields(secret.Kind()) {
		value, _ := secret.Get(field)
		view[string(field)] = value
	}
	return view
}

func displayFields(kind domain.Kind) []domain.Field {
	switch kind {
	case domain.KindLogin:
		return []domain.Field{domain.FieldName, domain.FieldUsername, domain.FieldPassword}
	default:
		return []domain.Field{domain.FieldName, domain.FieldUsername, domain.FieldDescription, domain.FieldKey}
	}
}

func fieldLabel(field domain.Field) string {
	switch field {
	case domain.FieldName:
		return "Name"
	case domain.FieldUsername:
		return "Username"
	case domain.FieldPassword:
		return "Password"
	case domain.FieldDescription:
		return "Description"
	case domain.FieldKey:
		return "Key"
	default:
		return string(field)
	}
}

// writeString writes a string to the writer with error checking and size limits
func writeString(w io.Writer, s string) error {
	if len(s) > MaxOutputSize {
		return fmt.Errorf("output size %d exceeds maximum allowed size %d", len(s), MaxOutputSize)
	}

	n, err := fmt.Fprint(w, s)
	if err != nil {
		return fmt.Errorf("failed to write output (wrote %d bytes): %w", n, err)
	}
	return nil
}

// writeOutput is a helper function to write formatted output with error checking and size limits
func writeOutput(w io.Writer, format string, args ...interface{}) error {
	return writeString(w, fmt.Sprintf(format, args...))
}
