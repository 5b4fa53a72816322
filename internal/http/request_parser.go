package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"emitrack/internal/auth"
	"emitrack/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests, as opposed to well-formed ones that
// fail domain validation.
var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// currentUser returns the user set by the auth middleware. Routes are only
// reachable through it, so a missing user is a wiring bug.
func currentUser(r *http.Request) core.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// MonthParams is an optional year/month filter. Zero means unset.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads ?year=&month=. A month without a year is rejected.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	var p MonthParams
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
		}
		p.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: invalid month %q", errBadRequest, v)
		}
		if p.Year == 0 {
			return MonthParams{}, fmt.Errorf("%w: month requires year", errBadRequest)
		}
		p.Month = m
	}
	return p, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
