package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vault-cli/credman/internal/config"
	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
	"github.com/vault-cli/credman/internal/vault"
)

const masterPassword = "correct horse battery staple"

var fastParams = vault.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}

// scriptedPrompter answers prompts from a fixed script. Confirmed prompts
// consume two answers; Confirm takes "y" or "n"; SelectMany takes a
// comma separated answer.
type scriptedPrompter struct {
	t       *testing.T
	answers []string
	asked   []string
}

func (s *scriptedPrompter) next(message string) string {
	s.t.Helper()
	s.asked = append(s.asked, message)
	if len(s.answers) == 0 {
		s.t.Fatalf("unexpected prompt %q: script exhausted", message)
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer
}

func (s *scriptedPrompter) Prompt(message string, confirm, sensitive bool) (string, error) {
	value := s.next(message)
	if confirm && s.next("Confirm "+message) != value {
		return "", ErrMismatch
	}
	return value, nil
}

func (s *scriptedPrompter) Confirm(message string) (bool, error) {
	return s.next(message) == "y", nil
}

func (s *scriptedPrompter) Select(message string, options []string) (string, error) {
	answer := s.next(message)
	for _, o := range options {
		if o == answer {
			return answer, nil
		}
	}
	return "", fmt.Errorf("%q is not one of %v", answer, options)
}

func (s *scriptedPrompter) SelectMany(message string, options []string) ([]string, error) {
	return strings.Split(s.next(message), ","), nil
}

type fakeClipboard struct {
	content string
	cleared bool
	ttl     time.Duration
}

func (f *fakeClipboard) Available() bool { return true }

func (f *fakeClipboard) Copy(text string) error {
	f.content = text
	return nil
}

func (f *fakeClipboard) ClearAfter(_ context.Context, text string, timeout time.Duration) error {
	f.ttl = timeout
	if timeout > 0 && f.content == text {
		f.content = ""
		f.cleared = true
	}
	return nil
}

type testEnv struct {
	t         *testing.T
	path      string
	out       *bytes.Buffer
	prompter  *scriptedPrompter
	clipboard *fakeClipboard
	cfg       *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	cfg := config.DefaultConfig()
	cfg.KDF = config.KDFConfig{Memory: fastParams.Memory, Iterations: fastParams.Iterations, Parallelism: fastParams.Parallelism}
	cfg.ClipboardTTL = 0

	return &testEnv{
		t:         t,
		path:      filepath.Join(t.TempDir(), "creds.db"),
		out:       &bytes.Buffer{},
		prompter:  &scriptedPrompter{t: t},
		clipboard: &fakeClipboard{},
		cfg:       cfg,
	}
}

// run executes one command line against the env's store, answering prompts
// from answers.
func (e *testEnv) run(answers []string, args ...string) error {
	e.t.Helper()
	e.out.Reset()
	e.prompter.answers = answers
	e.prompter.asked = nil

	app := NewApp(
		WithIO(strings.NewReader(""), e.out, &bytes.Buffer{}),
		WithPrompter(e.prompter),
		WithClipboard(e.clipboard),
		WithConfig(e.cfg),
	)
	root := app.RootCommand()
	root.SetArgs(append([]string{"--db", e.path}, args...))
	err := root.Execute()

	if err == nil && len(e.prompter.answers) > 0 {
		e.t.Errorf("unused answers: %v", e.prompter.answers)
	}
	return err
}

// seed creates the store directly and inserts secrets.
func (e *testEnv) seed(secrets ...domain.Secret) {
	e.t.Helper()
	bs := store.NewBoltStore(store.WithKDFParams(fastParams))
	require.NoError(e.t, bs.CreateStore(e.path, masterPassword))
	for _, s := range secrets {
		require.NoError(e.t, bs.Insert(s))
	}
	require.NoError(e.t, bs.CloseStore())
}

// open opens the store with password for inspection and closes it at test end.
func (e *testEnv) open(password string) *store.BoltStore {
	e.t.Helper()
	bs := store.NewBoltStore()
	require.NoError(e.t, bs.OpenStore(e.path, password))
	e.t.Cleanup(func() { _ = bs.CloseStore() })
	return bs
}

func login(name, username, password string) domain.LoginCredential {
	return domain.LoginCredential{Name: name, Username: username, Password: password}
}

func apiKey(name, username, description, key string) domain.APIKey {
	return domain.APIKey{Name: name, Username: username, Description: description, Key: key}
}
