package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxAnswerSize bounds a single answer in bytes.
const DefaultMaxAnswerSize = 1024

// EnvMaxAnswerSize overrides DefaultMaxAnswerSize.
const EnvMaxAnswerSize = "LANDER_MAX_ANSWER_SIZE"

var (
	ErrAnswerTooLarge = errors.New("answer exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("answer contains invalid UTF-8 sequences")
)

// SanitizeAnswer guards transport boundaries: it rejects oversized or non UTF-8 input
// and strips control characters that would corrupt terminals and logs.
// The funnel itself accepts any value, including an empty one.
func SanitizeAnswer(value string) (string, error) {
	if limit := maxAnswerSize(); len(value) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrAnswerTooLarge, len(value), limit)
	}
	if !utf8.ValidString(value) {
		return "", ErrInvalidUTF8
	}
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, value)
	return strings.TrimSpace(value), nil
}

// NormalizeChoice maps a console reply onto one of the offered options: either its
// 1-based number or a case-insensitive match. Anything else is returned unchanged.
func NormalizeChoice(value string, options []string) string {
	if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	for _, opt := range options {
		if strings.EqualFold(opt, value) {
			return opt
		}
	}
	return value
}

func maxAnswerSize() int {
	if val := os.Getenv(EnvMaxAnswerSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxAnswerSize
}
