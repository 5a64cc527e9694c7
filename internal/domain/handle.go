package domain

import (
	"errors"
	"regexp"
	"strings"
)

const (
	HandleMinLength = 3
	HandleMaxLength = 30
)

var (
	ErrHandleTooShort = errors.New("domain: handle must be at least 3 characters")
	ErrHandleTooLong  = errors.New("domain: handle must be at most 30 characters")
	ErrHandleFormat   = errors.New("domain: handle may only contain lowercase letters, numbers and hyphens")
	ErrHandleReserved = errors.New("domain: handle is reserved")
)

var (
	handleInvalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	handleDashRuns     = regexp.MustCompile(`-+`)
)

var reservedHandles = map[string]struct{}{
	"admin": {}, "test": {}, "demo": {}, "support": {}, "help": {}, "api": {},
	"www": {}, "mail": {}, "contact": {}, "onclick": {}, "app": {},
}

// SanitizeHandle normalises free text into handle form.
func SanitizeHandle(raw string) string {
	h := strings.ToLower(raw)
	h = handleInvalidChars.ReplaceAllString(h, "")
	h = handleDashRuns.ReplaceAllString(h, "-")
	h = strings.Trim(h, "-")
	if len(h) > HandleMaxLength {
		h = strings.TrimRight(h[:HandleMaxLength], "-")
	}
	return h
}

// IsReservedHandle reports whether the handle is on the denylist, ignoring case.
func IsReservedHandle(handle string) bool {
	_, ok := reservedHandles[strings.ToLower(strings.TrimSpace(handle))]
	return ok
}

// ReservedHandles returns the denylist.
func ReservedHandles() []string {
	out := make([]string, 0, len(reservedHandles))
	for h := range reservedHandles {
		out = append(out, h)
	}
	return out
}

// ValidateHandle checks the handle's shape and the denylist. It does not consult any store.
func ValidateHandle(handle string) error {
	switch {
	case len(handle) < HandleMinLength:
		return ErrHandleTooShort
	case len(handle) > HandleMaxLength:
		return ErrHandleTooLong
	case SanitizeHandle(handle) != handle:
		return ErrHandleFormat
	case IsReservedHandle(handle):
		return ErrHandleReserved
	}
	return nil
}
