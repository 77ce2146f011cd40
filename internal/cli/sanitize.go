package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize caps a single REPL line; FRAMESYNC_MAX_INPUT_SIZE overrides it.
const DefaultMaxInputSize = 4096

const envMaxInputSize = "FRAMESYNC_MAX_INPUT_SIZE"

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeLine rejects oversized or malformed command lines and strips
// control characters (escape sequences, NUL, BEL) so link labels and hashes
// cannot corrupt the terminal or the logs.
func SanitizeLine(line string) (string, error) {
	if limit := maxInputSize(); len(line) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(line), limit)
	}
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(line, unsafeControl) < 0 {
		return line, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, line), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\t' && r != '\r' && r != '\n'
}

func maxInputSize() int {
	if v := os.Getenv(envMaxInputSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxInputSize
}
