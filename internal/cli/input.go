package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/vault-cli/credman/internal/util"
)

// ErrMismatch is returned when a confirmation entry differs from the first one
var ErrMismatch = fmt.Errorf("%w: entries do not match", util.ErrInvalidInput)

// ErrNoSelection is returned when there is nothing to select from
var ErrNoSelection = errors.New("nothing to select")

// Prompter collects input from the user.
type Prompter interface {
	// Prompt asks for one value. With confirm the value is asked twice and
	// ErrMismatch returned when the entries differ; sensitive input is not echoed.
	Prompt(message string, confirm, sensitive bool) (string, error)
	// Confirm asks a yes/no question. The default answer is no.
	Confirm(message string) (bool, error)
	// Select picks one of options.
	Select(message string, options []string) (string, error)
	// SelectMany picks any number of options.
	SelectMany(message string, options []string) ([]string, error)
}

// TermPrompter prompts on a terminal, falling back to plain line input when
// stdin is not one.
type TermPrompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// NewTermPrompter creates a prompter reading in and writing prompts to out.
func NewTermPrompter(in io.Reader, out io.Writer) *TermPrompter {
	p := &TermPrompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
		p.isTerm = term.IsTerminal(p.fd)
	}
	return p
}

// Prompt implements Prompter
func (p *TermPrompter) Prompt(message string, confirm, sensitive bool) (string, error) {
	value, err := p.read(message, sensitive)
	if err != nil {
		return "", err
	}
	if !confirm {
		return value, nil
	}

	again, err := p.read("Confirm "+lowerFirst(message), sensitive)
	if err != nil {
		return "", err
	}
	if value != again {
		return "", ErrMismatch
	}
	return value, nil
}

// Confirm implements Prompter
func (p *TermPrompter) Confirm(message string) (bool, error) {
	input, err := p.read(message+" [y/N]: ", false)
	if err != nil {
		return false, err
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes", nil
}

// Select implements Prompter
func (p *TermPrompter) Select(message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoSelection
	}

	p.printOptions(message, options)
	input, err := p.read(fmt.Sprintf("Enter choice (1-%d): ", len(options)), false)
	if err != nil {
		return "", err
	}
	return matchChoice(strings.TrimSpace(input), options)
}

// SelectMany implements Prompter
func (p *TermPrompter) SelectMany(message string, options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, ErrNoSelection
	}

	p.printOptions(message, options)
	input, err := p.read("Enter choices separated by spaces or commas: ", false)
	if err != nil {
		return nil, err
	}

	fields := strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	selected := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		choice, err := matchChoice(f, options)
		if err != nil {
			return nil, err
		}
		if !seen[choice] {
			seen[choice] = true
			selected = append(selected, choice)
		}
	}
	return selected, nil
}

func (p *TermPrompter) printOptions(message string, options []string) {
	fmt.Fprintln(p.out, message)
	for i, option := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, option)
	}
}

func (p *TermPrompter) read(message string, sensitive bool) (string, error) {
	fmt.Fprint(p.out, message)

	if sensitive && p.isTerm {
		value, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(value), nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// matchChoice resolves a 1-based number or an exact option.
func matchChoice(input string, options []string) (string, error) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
	}
	for _, option := range options {
		if option == input {
			return option, nil
		}
	}
	return "", fmt.Errorf("%w: invalid choice %q", util.ErrInvalidInput, input)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
