package feed

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toString(v any) (*string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil, false
	}
	return &s, true
}

func toFloat(v any) (*float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		return parseNumber(t.String())
	case string:
		return parseNumber(t)
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return &f, true
}

// parseNumber accepts feed numerics like "1,250,000" or "$499000". Anything
// that does not parse to a finite number is absent.
func parseNumber(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return &f, true
}

func toInt(v any) (*int, bool) {
	f, ok := toFloat(v)
	if !ok || math.Abs(*f) > math.MaxInt32 {
		return nil, false
	}
	i := int(math.Trunc(*f))
	return &i, true
}

func toInt64(v any) (*int64, bool) {
	// Parse integers directly first: float64 cannot hold every int64 key.
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	case int64:
		return &t, true
	case int:
		i := int64(t)
		return &i, true
	}
	if s != "" {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &i, true
		}
	}

	f, ok := toFloat(v)
	if !ok || math.Abs(*f) >= math.MaxInt64 {
		return nil, false
	}
	i := int64(math.Trunc(*f))
	return &i, true
}

func toTime(v any) (*time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}

// cleanRemarks reduces HTML-bearing remarks to their text and collapses whitespace.
func cleanRemarks(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
