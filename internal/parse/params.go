// Package parse converts path and query strings into validated values.
package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid parameter")

// MaxPageLimit caps the page size a client may request.
const MaxPageLimit = 500

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination reads page and limit query values. Empty values fall back to
// page 1 and defaultLimit; limits above MaxPageLimit are clamped.
func Pagination(page, limit string, defaultLimit int) (Page, error) {
	p := Page{Page: 1, Limit: defaultLimit}
	if s := strings.TrimSpace(page); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: page %q", ErrInvalid, page)
		}
		p.Page = n
	}
	if s := strings.TrimSpace(limit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: limit %q", ErrInvalid, limit)
		}
		p.Limit = n
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p, nil
}

// ID parses a positive record identifier.
func ID(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: id %q", ErrInvalid, raw)
	}
	return n, nil
}

// Slot parses a slot number between 1 and max.
func Slot(raw string, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("%w: slot %q", ErrInvalid, raw)
	}
	return n, nil
}

// TotalPages is the number of pages needed for total rows.
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
