// Package batch imports many secrets from a line-oriented text source.
//
// Each non-blank line is one record:
//
//	login,name,username,password
//	api,name,username,description,key
//
// A login password of "?" is replaced by a generated one. A failing line is
// recorded in the Summary and the import moves on to the next line.
package batch

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/vault-cli/credman/internal/domain"
)

// GeneratePlaceholder asks the importer to generate a login password.
const GeneratePlaceholder = "?"

const maxLineSize = 1024 * 1024

var (
	// ErrFieldCountMismatch is returned when a line has the wrong number of fields for its kind
	ErrFieldCountMismatch = errors.New("wrong number of fields")
	// ErrLineTooLong is returned for a line longer than 1 MiB
	ErrLineTooLong = errors.New("line too long")
)

var fieldCounts = map[domain.Kind]int{
	domain.KindLogin: 4,
	domain.KindAPI:   5,
}

// Recorder is the subset of record operations the importer drives.
type Recorder interface {
	Exists(kind domain.Kind, name string) (bool, error)
	Insert(secret domain.Secret) error
}

// PasswordFunc returns a freshly generated password.
type PasswordFunc func() (string, error)

// Failure is one rejected line.
type Failure struct {
	Line int
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("Line %d: %v", f.Line, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Summary is the outcome of one import run. Both lists are in line order.
type Summary struct {
	Added    []string
	Failures []Failure
}

// HasFailures reports whether any line was rejected.
func (s *Summary) HasFailures() bool {
	return len(s.Failures) > 0
}

// Importer applies batch lines to a Recorder
type Importer struct {
	recorder Recorder
	password PasswordFunc
	logger   *zap.Logger
}

// Option configures an Importer
type Option func(*Importer)

// WithLogger sets the logger used to report rejected lines.
func WithLogger(logger *zap.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// NewImporter creates an importer writing to recorder. password is called
// once per "?" placeholder.
func NewImporter(recorder Recorder, password PasswordFunc, opts ...Option) *Importer {
	im := &Importer{
		recorder: recorder,
		password: password,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile imports the batch file at path. The file is closed before returning.
func (im *Importer) ImportFile(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	return im.Import(f)
}

// Import reads r line by line. Per-line failures are collected in the
// Summary. If r itself fails, the lines handled so far are returned in the
// Summary together with the error.
func (im *Importer) Import(r io.Reader) (*Summary, error) {
	summary := &Summary{Added: []string{}, Failures: []Failure{}}
	br := bufio.NewReader(r)

	lineNo := 0
	for {
		line, tooLong, err := readLine(br)
		if err != nil && err != io.EOF {
			return summary, fmt.Errorf("failed to read batch input at line %d: %w", lineNo+1, err)
		}
		if err == io.EOF && line == "" && !tooLong {
			break
		}
		lineNo++

		if tooLong {
			im.fail(summary, lineNo, fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, maxLineSize))
		} else if line = strings.TrimSpace(line); !isBlank(line) {
			if name, lineErr := im.importLine(line); lineErr != nil {
				im.fail(summary, lineNo, lineErr)
			} else {
				summary.Added = append(summary.Added, name)
			}
		}

		if err == io.EOF {
			break
		}
	}

	im.logger.Info("batch import finished",
		zap.Int("added", len(summary.Added)),
		zap.Int("failed", len(summary.Failures)))
	return summary, nil
}

func (im *Importer) fail(summary *Summary, lineNo int, err error) {
	summary.Failures = append(summary.Failures, Failure{Line: lineNo, Err: err})
	im.logger.Debug("batch line rejected", zap.Int("line", lineNo), zap.Error(err))
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed but not kept, and reported with tooLong.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		n := len(buf) + len(chunk)
		if bytes.HasSuffix(chunk, []byte{'\n'}) {
			n--
		}
		if n > maxLineSize {
			tooLong, buf = true, nil
		} else if !tooLong {
			buf = append(buf, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return strings.TrimSuffix(string(buf), "\n"), tooLong, err
	}
}

func (im *Importer) importLine(line string) (string, error) {
	secret, err := im.parseLine(line)
	if err != nil {
		return "", err
	}
	if err := im.recorder.Insert(secret); err != nil {
		return "", err
	}
	return secret.GetName(), nil
}

// parseLine validates a line in order: kind, field count, duplicate, reserved
// then empty name. The first failing check wins. Fields are taken verbatim.
func (im *Importer) parseLine(line string) (domain.Secret, error) {
	fields := strings.Split(line, ",")

	kind := domain.Kind(fields[0])
	want, ok := fieldCounts[kind]
	if !ok {
		return nil, fmt.Errorf("first field should be 'login' or 'api', got %q: %w", fields[0], domain.ErrUnrecognizedKind)
	}
	if len(fields) != want {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrFieldCountMismatch, kind, want, len(fields))
	}

	name := fields[1]
	exists, err := im.recorder.Exists(kind, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s %s already exists: %w", kind.Label(), name, domain.ErrDuplicateName)
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindLogin:
		password := fields[3]
		if password == GeneratePlaceholder {
			if im.password == nil {
				return nil, errors.New("no password generator configured")
			}
			if password, err = im.password(); err != nil {
				return nil, fmt.Errorf("failed to generate password: %w", err)
			}
		}
		return domain.LoginCredential{Name: name, Username: fields[2], Password: password}, nil
	default:
		return domain.APIKey{Name: name, Username: fields[2], Description: fields[3], Key: fields[4]}, nil
	}
}

// isBlank reports whether a trimmed line holds nothing but whitespace and separators.
func isBlank(line string) bool {
	return strings.TrimSpace(strings.ReplaceAll(line, ",", "")) == ""
}
