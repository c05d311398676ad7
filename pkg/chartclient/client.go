// Package chartclient is an HTTP client for the dental chart API. It
// implements dentalchart.ChartSource so the viewer can run against a
// remote server.
package chartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dentix/dentix/internal/domain/dentalchart"
)

const apiPrefix = "/api/v1"

type Client struct {
	BaseURL    string
	Token      string
	TenantID   string
	HTTPClient *http.Client
}

func New(baseURL, token, tenantID string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		TenantID: tenantID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var _ dentalchart.ChartSource = (*Client)(nil)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// ListByPatient returns the adult and child charts that exist for a patient.
func (c *Client) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*dentalchart.ChartDocument, error) {
	var out struct {
		Adult *dentalchart.ChartDocument `json:"adult"`
		Child *dentalchart.ChartDocument `json:"child"`
	}
	if err := c.do(ctx, http.MethodGet, "/patients/"+patientID.String()+"/dental-charts", nil, &out); err != nil {
		return nil, err
	}
	var docs []*dentalchart.ChartDocument
	if out.Adult != nil {
		docs = append(docs, out.Adult)
	}
	if out.Child != nil {
		docs = append(docs, out.Child)
	}
	return docs, nil
}

func (c *Client) Get(ctx context.Context, id uuid.UUID) (*dentalchart.ChartDocument, error) {
	var doc dentalchart.ChartDocument
	if err := c.do(ctx, http.MethodGet, "/dental-charts/"+id.String(), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/dental-charts/"+id.String(), nil, nil)
}

// Save submits a whole chart document for the patient's dentition.
func (c *Client) Save(ctx context.Context, patientID uuid.UUID, doc *dentalchart.ChartDocument) (*dentalchart.ChartDocument, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode chart: %v", dentalchart.ErrValidation, err)
	}
	var saved dentalchart.ChartDocument
	if err := c.do(ctx, http.MethodPost, "/patients/"+patientID.String()+"/dental-chart", body, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Catalogs fetches the three condition catalogs.
func (c *Client) Catalogs(ctx context.Context) (map[string][]dentalchart.ConditionInfo, error) {
	var out map[string][]dentalchart.ConditionInfo
	if err := c.do(ctx, http.MethodGet, "/dental-charts/catalogs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	u, err := url.JoinPath(c.BaseURL, apiPrefix, path)
	if err != nil {
		return fmt.Errorf("%w: invalid base url: %v", dentalchart.ErrValidation, err)
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", dentalchart.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.TenantID != "" {
		req.Header.Set("X-Tenant-ID", c.TenantID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", dentalchart.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", dentalchart.ErrTransport, err)
	}

	var env envelope
	if jerr := json.Unmarshal(raw, &env); jerr != nil && resp.StatusCode < 300 {
		return fmt.Errorf("%w: decode response: %v", dentalchart.ErrTransport, jerr)
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("%w: %s", statusError(resp.StatusCode), msg)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", dentalchart.ErrTransport, err)
	}
	return nil
}

// statusError maps a response status back to the chart error it was
// produced from.
func statusError(code int) error {
	switch code {
	case http.StatusNotFound:
		return dentalchart.ErrNotFound
	case http.StatusConflict:
		return dentalchart.ErrConflict
	case http.StatusUnprocessableEntity:
		return dentalchart.ErrConditionNotFound
	case http.StatusBadRequest:
		return dentalchart.ErrValidation
	}
	return errors.Join(dentalchart.ErrTransport, fmt.Errorf("unexpected status %d", code))
}
