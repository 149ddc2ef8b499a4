package api

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/mmcdole/recon/internal/domain"
)

// listResponse is the body of every paginated GET
type listResponse struct {
	Data       []map[string]any `json:"data"`
	Pagination *pagination      `json:"pagination,omitempty"`
}

type pagination struct {
	CurrentPage flexInt `json:"current_page"`
	TotalPages  flexInt `json:"total_pages"`
	Total       flexInt `json:"total"`
	PerPage     flexInt `json:"per_page"`
}

// mutationResponse is the body of create/update/delete calls. Every field
// is optional on the wire.
type mutationResponse struct {
	Success  *bool           `json:"success"`
	Data     json.RawMessage `json:"data"`
	Error    string          `json:"error"`
	Message  string          `json:"message"`
	ID       any             `json:"id"`
	InsertID any             `json:"insertId"`
}

// flexInt decodes numbers, numeric strings and null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable values fall back to the default.
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

// mapPage converts a list response into a normalized page.
func mapPage(resp listResponse, requestedPage int) domain.PageResult[domain.Record] {
	page := domain.PageResult[domain.Record]{
		Rows: make([]domain.Record, 0, len(resp.Data)),
	}
	for _, row := range resp.Data {
		page.Rows = append(page.Rows, domain.Record(row))
	}
	if p := resp.Pagination; p != nil {
		page.CurrentPage = int(p.CurrentPage)
		page.TotalPages = int(p.TotalPages)
		page.TotalItems = int(p.Total)
	}
	return page.Normalize(requestedPage)
}

// mapEnvelope converts a mutation response. ok is the HTTP status class.
func mapEnvelope(resp mutationResponse, ok bool, status string) domain.Envelope[domain.Record] {
	env := domain.Envelope[domain.Record]{
		Success: ok,
		Error:   resp.Error,
		Message: resp.Message,
	}
	if resp.Success != nil {
		env.Success = ok && *resp.Success
	}
	if !env.Success && env.Error == "" {
		env.Error = resp.Message
	}
	if !env.Success && env.Error == "" && !ok {
		env.Error = status
	}

	if len(resp.Data) > 0 {
		var data map[string]any
		if err := decode(resp.Data, &data); err == nil && data != nil {
			rec := domain.Record(data)
			env.Data = &rec
		}
	}

	switch {
	case resp.ID != nil:
		env.ID = domain.FormatValue(resp.ID)
	case resp.InsertID != nil:
		env.ID = domain.FormatValue(resp.InsertID)
	}
	return env
}

// createdID finds ids reported under resource-specific keys such as
// "program_id". Foreign keys are ignored.
func createdID(raw map[string]any) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if strings.HasSuffix(k, "_id") && !strings.HasPrefix(k, "fk_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := domain.FormatValue(raw[k]); v != "" {
			return v
		}
	}
	return ""
}
