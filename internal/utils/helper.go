package utils

import (
	"log/slog"
	"os"
	"regexp"
)

// MaskSensitiveData masks API keys and other credentials in strings so they
// do not end up in logs or error messages.
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}

	// API keys in URL query parameters (?key=xxx, &api_key=xxx, ...)
	keyPattern := regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key)=([^&\s"]+)`)
	s = keyPattern.ReplaceAllString(s, `${1}${2}=***MASKED***`)

	// Bearer tokens in Authorization headers (OpenRouter, Mistral)
	bearerPattern := regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`)
	s = bearerPattern.ReplaceAllString(s, `Bearer ***MASKED***`)

	// x-api-key headers (Anthropic)
	xApiKeyPattern := regexp.MustCompile(`x-api-key:\s*([^\s]+)`)
	s = xApiKeyPattern.ReplaceAllString(s, `x-api-key: ***MASKED***`)

	return s
}

// MaskSensitiveError wraps an error so sensitive data is masked when the
// error is converted to a string.
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
