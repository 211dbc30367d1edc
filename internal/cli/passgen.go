package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-cli/credman/internal/config"
	internalcrypto "github.com/vault-cli/credman/internal/crypto"
	"github.com/vault-cli/credman/internal/util"
)

type passgenOptions struct {
	length  int
	charset string
	copy    bool
	ttl     int
}

func newPassgenCommand(a *App) *cobra.Command {
	opts := &passgenOptions{
		charset: string(internalcrypto.CharsetDefault),
		ttl:     -1,
	}

	cmd := &cobra.Command{
		Use:   "passgen",
		Short: "Generate a random password",
		Long: `Generate a cryptographically random password without touching the store.

The default charset is letters, digits and !@#$%^&*(). The length defaults to
password_length from the config and may not exceed 255.

Example:
  credman passgen
  credman passgen --length 32 --charset alnum
  credman passgen --copy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPassgen(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.length, "length", "l", 0, "length of the password (default from config)")
	cmd.Flags().StringVar(&opts.charset, "charset", opts.charset, "character set (default|alpha|alnum|alnumsym)")
	cmd.Flags().BoolVarP(&opts.copy, "copy", "c", false, "copy the password to the clipboard")
	cmd.Flags().IntVar(&opts.ttl, "ttl", opts.ttl, "clipboard clear timeout in seconds (-1 uses config default)")
	_ = cmd.RegisterFlagCompletionFunc("charset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(internalcrypto.Charsets()))
		for _, c := range internalcrypto.Charsets() {
			names = append(names, string(c))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (a *App) runPassgen(cmd *cobra.Command, opts *passgenOptions) error {
	charset := internalcrypto.Charset(strings.ToLower(opts.charset))
	valid := false
	for _, c := range internalcrypto.Charsets() {
		valid = valid || c == charset
	}
	if !valid {
		return fmt.Errorf("%w: unknown charset %q (valid: default, alpha, alnum, alnumsym)", util.ErrInvalidInput, opts.charset)
	}

	length := a.passwordLength(opts.length)
	if length < 0 {
		return fmt.Errorf("%w: --length must be positive", util.ErrInvalidInput)
	}
	if length > internalcrypto.MaxLength {
		return fmt.Errorf("%w: %w", util.ErrInvalidInput, internalcrypto.ErrLengthTooLarge)
	}

	password, err := internalcrypto.GeneratePassword(length, charset)
	if err != nil {
		return fmt.Errorf("failed to generate password: %w", err)
	}

	p := NewPrinter(cmd.OutOrStdout(), false, false)
	if !opts.copy {
		return p.Line("%s", password)
	}

	if !a.Clipboard.Available() {
		return fmt.Errorf("clipboard not available, remove --copy to print instead")
	}
	ttl, err := resolveClipboardTTL(opts.ttl, a.Config)
	if err != nil {
		return err
	}
	if err := a.Clipboard.Copy(password); err != nil {
		return err
	}
	if err := p.Status("Password copied to clipboard (clears in %s)", ttl.Round(time.Second)); err != nil {
		return err
	}
	return a.Clipboard.ClearAfter(cmd.Context(), password, ttl)
}

func resolveClipboardTTL(override int, conf *config.Config) (time.Duration, error) {
	if override < -1 {
		return 0, fmt.Errorf("%w: --ttl must be -1 (config default) or a non-negative number of seconds", util.ErrInvalidInput)
	}

	if override >= 0 {
		return time.Duration(override) * time.Second, nil
	}

	if conf != nil {
		return conf.ClipboardTTL, nil
	}
	return 30 * time.Second, nil
}
