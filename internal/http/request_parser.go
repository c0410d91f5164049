package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"finboard/internal/analytics"
	"finboard/internal/session"
)

const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("Invalid request body")

// amountBody carries a single amount that may be a JSON number or string.
type amountBody struct {
	Amount session.FormValue `json:"amount"`
}

type withdrawalBody struct {
	Reason string            `json:"reason"`
	Amount session.FormValue `json:"amount"`
}

// ParseCriteria reads range, category and q from the query string.
func ParseCriteria(q url.Values) analytics.Criteria {
	return analytics.Criteria{
		Range:    analytics.ParseDateRange(q.Get("range")),
		Category: q.Get("category"),
		Query:    q.Get("q"),
	}
}

// readBody returns the trimmed request body, bounded by maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errBadJSON
	}
	return bytes.TrimSpace(b), nil
}

// decodeJSON decodes the body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	b, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return errBadJSON
	}
	return nil
}
