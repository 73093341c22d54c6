package cloudflare

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

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/metrics"
	"github.com/imamik/launchpad/internal/retry"
)

const baseURL = "https://api.cloudflare.com/client/v4"

var defaultRetry = retry.Policy{MaxAttempts: 4, Backoff: retry.Exponential(time.Second, 30*time.Second)}

// codeZoneExists is returned by POST /zones for a zone already on the account.
const codeZoneExists = 1061

// Client is a minimal Cloudflare API client for zones, DNS records and
// registrar domains.
type Client struct {
	apiToken   string
	accountID  string
	httpClient *http.Client
	retry      retry.Policy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the policy used for rate-limited and 5xx responses.
func WithRetry(p retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// Record represents a Cloudflare DNS record.
type Record struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
	Proxied bool   `json:"proxied"`
}

// Zone represents a Cloudflare zone.
type Zone struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	NameServers []string `json:"name_servers"`
}

type apiResponse struct {
	Success    bool            `json:"success"`
	Errors     []apiError      `json:"errors"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *resultInfo     `json:"result_info,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultInfo struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

// APIError is a non-2xx response or a response with success=false.
type APIError struct {
	StatusCode int
	Errors     []apiError
}

func (e *APIError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ae := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%d: %s", ae.Code, ae.Message))
	}
	if len(msgs) == 0 {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, strings.Join(msgs, "; "))
}

// Is matches deployment.ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == deployment.ErrNotFound && e.StatusCode == http.StatusNotFound
}

func (e *APIError) hasCode(code int) bool {
	for _, ae := range e.Errors {
		if ae.Code == code {
			return true
		}
	}
	return false
}

// NewClient creates a new Cloudflare API client. accountID is required for
// zone creation and the registrar.
func NewClient(apiToken, accountID string, opts ...Option) *Client {
	c := &Client{
		apiToken:   apiToken,
		accountID:  accountID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      defaultRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ZoneID returns the id of the zone holding domain. Subdomains are resolved
// by walking up to the registrable apex.
func (c *Client) ZoneID(ctx context.Context, domain string) (string, error) {
	z, err := c.findZone(ctx, domain)
	if err != nil {
		return "", err
	}
	return z.ID, nil
}

func (c *Client) findZone(ctx context.Context, domain string) (*Zone, error) {
	labels := strings.Split(strings.TrimSuffix(domain, "."), ".")
	for i := 0; i+2 <= len(labels); i++ {
		name := strings.Join(labels[i:], ".")
		z, err := c.getZone(ctx, name)
		if err != nil {
			return nil, err
		}
		if z != nil {
			return z, nil
		}
	}
	return nil, fmt.Errorf("no zone found for domain %s: %w", domain, deployment.ErrNotFound)
}

// getZone returns nil when the account has no zone with exactly this name.
func (c *Client) getZone(ctx context.Context, name string) (*Zone, error) {
	var zones []Zone
	if _, err := c.call(ctx, "get_zone", http.MethodGet, "/zones?name="+url.QueryEscape(name), nil, &zones); err != nil {
		return nil, fmt.Errorf("get zone %s: %w", name, err)
	}
	if len(zones) == 0 {
		return nil, nil
	}
	return &zones[0], nil
}

// CreateZone implements deployment.DNSProvider. A zone that already exists
// on the account is returned as is.
func (c *Client) CreateZone(ctx context.Context, domain string) (*deployment.Zone, error) {
	if c.accountID == "" {
		return nil, errors.New("cloudflare account id is required to create a zone")
	}
	body := map[string]any{
		"name":    domain,
		"account": map[string]string{"id": c.accountID},
		"type":    "full",
	}
	var z Zone
	_, err := c.call(ctx, "create_zone", http.MethodPost, "/zones", body, &z)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.hasCode(codeZoneExists) {
			return nil, fmt.Errorf("create zone %s: %w", domain, err)
		}
		existing, err := c.getZone(ctx, domain)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("zone %s reported as existing but not found", domain)
		}
		z = *existing
	}
	return &deployment.Zone{ID: z.ID, Nameservers: z.NameServers}, nil
}

// GetZoneStatus implements deployment.DNSProvider. Typical values are
// "initializing", "pending" and "active".
func (c *Client) GetZoneStatus(ctx context.Context, domain string) (string, error) {
	z, err := c.getZone(ctx, domain)
	if err != nil {
		return "", err
	}
	if z == nil {
		return "", fmt.Errorf("zone %s: %w", domain, deployment.ErrNotFound)
	}
	return z.Status, nil
}

// UpsertRecord implements deployment.DNSProvider. name is relative to domain;
// "@" is the apex. An existing record of the same type and name is updated
// and reported with created=false.
func (c *Client) UpsertRecord(ctx context.Context, domain, recordType, name, content string) (string, bool, error) {
	zoneID, err := c.ZoneID(ctx, domain)
	if err != nil {
		return "", false, err
	}
	rec := Record{
		Type:    strings.ToUpper(recordType),
		Name:    FQDN(domain, name),
		Content: content,
		TTL:     1,
	}

	existing, err := c.ListDNSRecords(ctx, zoneID, rec.Type, rec.Name)
	if err != nil {
		return "", false, err
	}

	var out Record
	if len(existing) > 0 {
		path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, existing[0].ID)
		if _, err := c.call(ctx, "update_record", http.MethodPut, path, rec, &out); err != nil {
			return "", false, fmt.Errorf("update %s %s: %w", rec.Type, rec.Name, err)
		}
		return out.ID, false, nil
	}

	path := fmt.Sprintf("/zones/%s/dns_records", zoneID)
	if _, err := c.call(ctx, "create_record", http.MethodPost, path, rec, &out); err != nil {
		return "", false, fmt.Errorf("create %s %s: %w", rec.Type, rec.Name, err)
	}
	return out.ID, true, nil
}

// ListDNSRecords returns the records in the zone, filtered by type and name
// when they are non-empty.
func (c *Client) ListDNSRecords(ctx context.Context, zoneID, recordType, name string) ([]Record, error) {
	var all []Record
	page := 1

	for {
		q := url.Values{}
		q.Set("per_page", "100")
		q.Set("page", fmt.Sprint(page))
		if recordType != "" {
			q.Set("type", recordType)
		}
		if name != "" {
			q.Set("name", name)
		}

		var records []Record
		info, err := c.call(ctx, "list_records", http.MethodGet,
			fmt.Sprintf("/zones/%s/dns_records?%s", zoneID, q.Encode()), nil, &records)
		if err != nil {
			return nil, fmt.Errorf("list DNS records page %d: %w", page, err)
		}
		all = append(all, records...)

		if info == nil || page >= info.TotalPages {
			break
		}
		page++
	}

	return all, nil
}

// DeleteRecord implements deployment.DNSProvider. A missing record matches
// deployment.ErrNotFound.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID)
	if _, err := c.call(ctx, "delete_record", http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete DNS record %s: %w", recordID, err)
	}
	return nil
}

// FQDN expands a record name relative to domain.
func FQDN(domain, name string) string {
	switch {
	case name == "" || name == "@":
		return domain
	case name == domain || strings.HasSuffix(name, "."+domain):
		return name
	}
	return name + "." + domain
}

// call performs one API request with retries for 429 and 5xx responses,
// decoding the result into out when it is non-nil.
func (c *Client) call(ctx context.Context, op, method, path string, body, out any) (*resultInfo, error) {
	start := time.Now()
	var info *resultInfo

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.do(ctx, method, path, body)
		if err != nil {
			return err
		}
		info = resp.ResultInfo
		if out != nil && len(resp.Result) > 0 && string(resp.Result) != "null" {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return retry.Fatal(fmt.Errorf("parse result: %w", err))
			}
		}
		return nil
	})

	metrics.RecordAPICall("cloudflare", op, err, time.Since(start).Seconds())
	return info, err
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, retry.Fatal(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return nil, retry.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out apiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		perr := fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
		if resp.StatusCode >= 500 {
			return nil, perr
		}
		return nil, retry.Fatal(perr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Errors: out.Errors}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, apiErr
		}
		return nil, retry.Fatal(apiErr)
	}
	return &out, nil
}
