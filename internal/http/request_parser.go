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
	"time"

	"settlements/internal/core"
	"settlements/internal/month"
)

const maxBodyBytes = 64 << 10

var (
	errInvalidAmount = errors.New("amount must be a positive number like 12.50")
	errInvalidDate   = errors.New("date must be YYYY-MM-DD")
)

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields by name. HTMX posts forms; API clients post JSON.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like a JSON object and as
// form data otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	switch {
	case trimmed == "":
		p.formData = url.Values{}
	case strings.HasPrefix(trimmed, "{"):
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal([]byte(trimmed), &p.jsonData)
	default:
		p.formData, p.err = url.ParseQuery(trimmed)
	}
	return p.err
}

// Get returns the sanitized value of key, or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseSettlementInput builds an unsaved settlement from a request body.
// A missing date means today.
func parseSettlementInput(p *RequestBodyParser, today time.Time) (core.Settlement, error) {
	pence, err := core.ParseDecimalToPence(p.Get("amount"))
	if err != nil {
		return core.Settlement{}, errInvalidAmount
	}

	date := core.NewDate(today.Year(), int(today.Month()), today.Day())
	if raw := p.Get("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return core.Settlement{}, fmt.Errorf("%w: %q", errInvalidDate, raw)
		}
		date = core.Date{Time: d}
	}

	return core.Settlement{
		Description: p.Get("description"),
		Amount:      core.Money{Pence: pence},
		PaidBy:      p.Get("paid_by"),
		OwedBy:      p.Get("owed_by"),
		Date:        date,
	}, nil
}

// monthParam reads the "month" query parameter. An absent value yields
// the current month; ok is false only for a present but malformed value.
func monthParam(query url.Values, clock month.Clock) (k month.Key, ok bool) {
	raw := strings.TrimSpace(query.Get("month"))
	if raw == "" {
		return month.Current(clock), true
	}
	k, err := month.Parse(raw)
	if err != nil {
		return "", false
	}
	return k, true
}
