// Package crypto generates random passwords for new secrets.
package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	// DefaultLength is used when no length is requested
	DefaultLength = 16
	// MaxLength is the longest password Generate produces
	MaxLength = 255
)

// Charset defines the character set to use for password generation
type Charset string

const (
	// CharsetDefault uses letters, digits and !@#$%^&*()
	CharsetDefault Charset = "default"
	// CharsetAlpha uses only alphabetic characters (a-z, A-Z)
	CharsetAlpha Charset = "alpha"
	// CharsetAlnum uses alphanumeric characters (a-z, A-Z, 0-9)
	CharsetAlnum Charset = "alnum"
	// CharsetAlnumSym uses alphanumeric and a wide set of punctuation
	CharsetAlnumSym Charset = "alnumsym"
)

var (
	// ErrLengthTooLarge is returned when a password longer than MaxLength is requested
	ErrLengthTooLarge = fmt.Errorf("password length cannot exceed %d", MaxLength)

	errInvalidLength  = errors.New("length must be positive")
	errUnknownCharset = errors.New("unknown charset")
)

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	digits  = "0123456789"
)

var (
	charsetLookup = map[Charset][]rune{
		CharsetDefault:  []rune(letters + digits + "!@#$%^&*()"),
		CharsetAlpha:    []rune(letters),
		CharsetAlnum:    []rune(letters + digits),
		CharsetAlnumSym: []rune(letters + digits + "!@#$%^&*()-_=+[]{}<>?,.:;/'\"|\\~"),
	}
	randSource io.Reader = rand.Reader
	randMux    sync.RWMutex
)

// Charsets lists the accepted charset names.
func Charsets() []Charset {
	return []Charset{CharsetDefault, CharsetAlpha, CharsetAlnum, CharsetAlnumSym}
}

// SetRandomSource sets the random number generator source.
// If r is nil, it resets to the default crypto/rand.Reader.
func SetRandomSource(r io.Reader) {
	randMux.Lock()
	if r == nil {
		randSource = rand.Reader
	} else {
		randSource = r
	}
	randMux.Unlock()
}

// Generate returns a password from the default charset. A length of 0
// selects DefaultLength.
func Generate(length int) (string, error) {
	if length == 0 {
		length = DefaultLength
	}
	if length > MaxLength {
		return "", ErrLengthTooLarge
	}
	return GeneratePassword(length, CharsetDefault)
}

// GeneratePassword generates a cryptographically secure random password with the specified length and character set.
func GeneratePassword(length int, charset Charset) (string, error) {
	if length <= 0 {
		return "", errInvalidLength
	}
	if length > MaxLength {
		return "", ErrLengthTooLarge
	}

	chars, ok := charsetLookup[charset]
	if !ok {
		return "", fmt.Errorf("%w: %q", errUnknownCharset, charset)
	}

	randMux.RLock()
	src := randSource
	randMux.RUnlock()

	var b strings.Builder
	b.Grow(length)

	for i := 0; i < length; i++ {
		idx, err := randomIndex(src, len(chars))
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b.WriteRune(chars[idx])
	}

	return b.String(), nil
}

// randomIndex returns a uniform value in [0, max) by rejection sampling.
func randomIndex(r io.Reader, max int) (int, error) {
	if max <= 0 {
		return 0, errInvalidLength
	}

	if max <= 256 {
		var buf [1]byte
		usable := 256 - (256 % max)
		for {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return 0, err
			}
			if int(buf[0]) < usable {
				return int(buf[0]) % max, nil
			}
		}
	}

	var buf [4]byte
	const maxUint32 = ^uint32(0)
	limit := maxUint32 - (maxUint32 % uint32(max))
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		val := binary.BigEndian.Uint32(buf[:])
		if val < limit {
			return int(val % uint32(max)), nil
		}
	}
}
