package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"contact-sync/internal/common/errors"
	commonhttp "contact-sync/internal/common/http"

	"github.com/xeipuuv/gojsonschema"
)

// Field names of the contacts table.
const (
	FieldName          = "Name"
	FieldEmail         = "Email"
	FieldDebtorName    = "Debitor name"
	FieldClientRefID   = "Client REF ID"
	FieldOverdueAmount = "Overdue amount"
	FieldProcess       = "PROCESS"
	FieldPaylink       = "paylink"
	FieldPortalLogin   = "Stripe Log in"
	FieldStripeRefID   = "Stripe REF ID"
)

// listSchema describes the envelope of a list response. Field contents are not constrained.
const listSchema = `{
  "type": "object",
  "required": ["records"],
  "properties": {
    "records": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "fields"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "fields": {"type": "object"}
        }
      }
    },
    "offset": {"type": "string"}
  }
}`

// Record is one row of the records service.
type Record struct {
	ID          string                 `json:"id"`
	Fields      map[string]interface{} `json:"fields"`
	CreatedTime string                 `json:"createdTime,omitempty"`
}

// Text returns the field as a string. Numbers keep their source representation; absent fields are "".
func (r Record) Text(field string) string {
	switch v := r.Fields[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ListResult is one page of records.
type ListResult struct {
	Records []Record `json:"records"`
	// Offset is set by the service when more pages exist.
	Offset string `json:"offset,omitempty"`
}

type Config struct {
	BaseURL string
	APIKey  string
	BaseID  string
	TableID string
	Timeout time.Duration
}

// Client talks to a single table of the records service.
type Client struct {
	http    *commonhttp.Client
	baseID  string
	tableID string
	schema  gojsonschema.JSONLoader
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    commonhttp.NewClient(cfg.BaseURL, cfg.APIKey, timeout),
		baseID:  cfg.BaseID,
		tableID: cfg.TableID,
		schema:  gojsonschema.NewStringLoader(listSchema),
	}
}

// ListRecords issues a single read of the table.
func (c *Client) ListRecords(ctx context.Context) (*ListResult, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodGet, c.http.URL(c.baseID, c.tableID), nil)
	if err != nil {
		return nil, errors.NewTransportError(errors.ServiceRecords, err)
	}

	if !resp.OK() {
		return nil, errors.NewUpstreamRejection(errors.ServiceRecords, resp.StatusCode,
			fmt.Sprintf("failed to list records (status %d): %s", resp.StatusCode, truncate(resp.Body)))
	}

	if err := c.validateEnvelope(resp.Body); err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(resp.Body))
	decoder.UseNumber()

	var result ListResult
	if err := decoder.Decode(&result); err != nil {
		return nil, errors.NewUpstreamRejection(errors.ServiceRecords, resp.StatusCode,
			fmt.Sprintf("failed to decode response: %v", err))
	}

	return &result, nil
}

// UpdateRecord patches only the supplied fields of one record.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, fields map[string]interface{}) error {
	payload := map[string]interface{}{
		"fields": fields,
	}

	resp, err := c.http.DoJSON(ctx, http.MethodPatch, c.http.URL(c.baseID, c.tableID, recordID), payload)
	if err != nil {
		return errors.NewTransportError(errors.ServiceRecords, err)
	}

	if !resp.OK() {
		return errors.NewUpstreamRejection(errors.ServiceRecords, resp.StatusCode,
			fmt.Sprintf("failed to update record %s (status %d): %s", recordID, resp.StatusCode, truncate(resp.Body)))
	}

	return nil
}

func (c *Client) validateEnvelope(body []byte) error {
	result, err := gojsonschema.Validate(c.schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.NewUpstreamRejection(errors.ServiceRecords, http.StatusOK,
			fmt.Sprintf("unreadable list response: %v", err))
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return errors.NewUpstreamRejection(errors.ServiceRecords, http.StatusOK,
			fmt.Sprintf("unexpected list response: %s", strings.Join(errs, "; ")))
	}

	return nil
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
