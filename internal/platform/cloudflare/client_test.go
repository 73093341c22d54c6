package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/retry"
)

// fakeAPI is an in-memory subset of the Cloudflare v4 API.
type fakeAPI struct {
	mu        sync.Mutex
	zones     map[string]*Zone // by name
	records   map[string][]Record
	domains   map[string]registrarDomain
	nextID    int
	failNext  int
	calls     []string
	lastBody  map[string]any
	zoneState string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		zones:     map[string]*Zone{},
		records:   map[string][]Record{},
		domains:   map[string]registrarDomain{},
		zoneState: "pending",
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func writeResult(w http.ResponseWriter, status int, result any, info *resultInfo) {
	raw, _ := json.Marshal(result)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: status < 300, Result: raw, ResultInfo: info})
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Errors: []apiError{{Code: code, Message: msg}}})
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/client/v4")
	f.calls = append(f.calls, r.Method+" "+path)
	if r.Header.Get("Authorization") != "Bearer test-token" {
		writeError(w, http.StatusUnauthorized, 10000, "Authentication error")
		return
	}
	if f.failNext > 0 {
		f.failNext--
		writeError(w, http.StatusServiceUnavailable, 10001, "service unavailable")
		return
	}
	f.lastBody = nil
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case path == "/zones" && r.Method == http.MethodGet:
		var out []Zone
		if z, ok := f.zones[r.URL.Query().Get("name")]; ok {
			out = append(out, *z)
		}
		writeResult(w, http.StatusOK, out, nil)

	case path == "/zones" && r.Method == http.MethodPost:
		name, _ := f.lastBody["name"].(string)
		if _, ok := f.zones[name]; ok {
			writeError(w, http.StatusBadRequest, codeZoneExists, "zone already exists")
			return
		}
		z := &Zone{ID: f.id("zone"), Name: name, Status: f.zoneState, NameServers: []string{"ada.ns.cloudflare.com", "bob.ns.cloudflare.com"}}
		f.zones[name] = z
		writeResult(w, http.StatusOK, z, nil)

	case len(parts) == 3 && parts[0] == "zones" && parts[2] == "dns_records" && r.Method == http.MethodGet:
		var out []Record
		for _, rec := range f.records[parts[1]] {
			if t := r.URL.Query().Get("type"); t != "" && rec.Type != t {
				continue
			}
			if n := r.URL.Query().Get("name"); n != "" && rec.Name != n {
				continue
			}
			out = append(out, rec)
		}
		writeResult(w, http.StatusOK, out, &resultInfo{Page: 1, TotalPages: 1})

	case len(parts) == 3 && parts[0] == "zones" && parts[2] == "dns_records" && r.Method == http.MethodPost:
		rec := Record{ID: f.id("rec"), Type: f.lastBody["type"].(string), Name: f.lastBody["name"].(string), Content: f.lastBody["content"].(string)}
		f.records[parts[1]] = append(f.records[parts[1]], rec)
		writeResult(w, http.StatusOK, rec, nil)

	case len(parts) == 4 && parts[0] == "zones" && parts[2] == "dns_records":
		recs := f.records[parts[1]]
		for i, rec := range recs {
			if rec.ID != parts[3] {
				continue
			}
			if r.Method == http.MethodDelete {
				f.records[parts[1]] = append(recs[:i], recs[i+1:]...)
				writeResult(w, http.StatusOK, map[string]string{"id": rec.ID}, nil)
				return
			}
			recs[i].Content = f.lastBody["content"].(string)
			writeResult(w, http.StatusOK, recs[i], nil)
			return
		}
		writeError(w, http.StatusNotFound, 81044, "Record does not exist.")

	case len(parts) == 4 && parts[2] == "registrar" && r.Method == http.MethodPost:
		name, _ := f.lastBody["name"].(string)
		d := registrarDomain{ID: f.id("dom"), Name: name, OrderID: f.id("order"), Status: "pending"}
		f.domains[name] = d
		writeResult(w, http.StatusOK, d, nil)

	case len(parts) == 5 && parts[2] == "registrar" && r.Method == http.MethodGet:
		d, ok := f.domains[parts[4]]
		if !ok {
			writeError(w, http.StatusNotFound, 1000, "domain not found")
			return
		}
		writeResult(w, http.StatusOK, d, nil)

	default:
		writeError(w, http.StatusNotFound, 7003, "no route for "+r.Method+" "+path)
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient("test-token", "acct-1",
		WithHTTPClient(&http.Client{Transport: &rewriteTransport{base: srv.URL, wrapped: http.DefaultTransport}}),
		WithRetry(retry.Policy{MaxAttempts: 3, Backoff: retry.Constant(time.Millisecond)}),
	)
}

func TestCreateZone(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)

	z, err := c.CreateZone(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if z.ID != "zone-1" {
		t.Errorf("expected zone-1, got %s", z.ID)
	}
	if len(z.Nameservers) != 2 {
		t.Errorf("expected 2 nameservers, got %v", z.Nameservers)
	}
	account, _ := api.lastBody["account"].(map[string]any)
	if account["id"] != "acct-1" {
		t.Errorf("expected account id in body, got %v", api.lastBody)
	}
}

func TestCreateZone_ExistingZoneIsReturned(t *testing.T) {
	api := newFakeAPI()
	api.zones["example.com"] = &Zone{ID: "zone-old", Name: "example.com", Status: "active", NameServers: []string{"x.ns"}}
	c := newTestClient(t, api)

	z, err := c.CreateZone(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if z.ID != "zone-old" {
		t.Errorf("expected existing zone, got %s", z.ID)
	}
}

func TestCreateZone_RequiresAccount(t *testing.T) {
	c := NewClient("test-token", "")
	if _, err := c.CreateZone(context.Background(), "example.com"); err == nil {
		t.Fatal("expected error without account id")
	}
}

func TestZoneID_WalksToApex(t *testing.T) {
	api := newFakeAPI()
	api.zones["example.com"] = &Zone{ID: "zone-123", Name: "example.com"}
	c := newTestClient(t, api)

	id, err := c.ZoneID(context.Background(), "api.shop.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "zone-123" {
		t.Errorf("expected zone-123, got %s", id)
	}
	if got := len(api.calls); got != 3 {
		t.Errorf("expected 3 lookups, got %d: %v", got, api.calls)
	}
}

func TestZoneID_NotFound(t *testing.T) {
	c := newTestClient(t, newFakeAPI())

	_, err := c.ZoneID(context.Background(), "notfound.com")
	if !errors.Is(err, deployment.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetZoneStatus(t *testing.T) {
	api := newFakeAPI()
	api.zones["example.com"] = &Zone{ID: "zone-1", Name: "example.com", Status: "active"}
	c := newTestClient(t, api)

	status, err := c.GetZoneStatus(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "active" {
		t.Errorf("expected active, got %s", status)
	}

	if _, err := c.GetZoneStatus(context.Background(), "other.com"); !errors.Is(err, deployment.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertRecord_CreatesThenUpdates(t *testing.T) {
	api := newFakeAPI()
	api.zones["example.com"] = &Zone{ID: "zone-1", Name: "example.com"}
	c := newTestClient(t, api)
	ctx := context.Background()

	id, created, err := c.UpsertRecord(ctx, "example.com", "a", "www", "203.0.113.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected first upsert to report a created record")
	}
	again, created, err := c.UpsertRecord(ctx, "example.com", "A", "www", "203.0.113.2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != again {
		t.Errorf("expected update of %s, got new record %s", id, again)
	}
	if created {
		t.Error("expected second upsert to report an update")
	}

	recs := api.records["zone-1"]
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Name != "www.example.com" || recs[0].Content != "203.0.113.2" {
		t.Errorf("unexpected record %+v", recs[0])
	}
}

func TestDeleteRecord(t *testing.T) {
	api := newFakeAPI()
	api.records["zone-1"] = []Record{{ID: "rec-9", Type: "A", Name: "example.com", Content: "203.0.113.1"}}
	c := newTestClient(t, api)

	if err := c.DeleteRecord(context.Background(), "zone-1", "rec-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.records["zone-1"]) != 0 {
		t.Errorf("record was not deleted")
	}

	err := c.DeleteRecord(context.Background(), "zone-1", "rec-9")
	if !errors.Is(err, deployment.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing record, got %v", err)
	}
}

func TestCall_RetriesServerErrors(t *testing.T) {
	api := newFakeAPI()
	api.zones["example.com"] = &Zone{ID: "zone-1", Name: "example.com", Status: "active"}
	api.failNext = 2
	c := newTestClient(t, api)

	status, err := c.GetZoneStatus(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "active" {
		t.Errorf("expected active, got %s", status)
	}
	if len(api.calls) != 3 {
		t.Errorf("expected 3 calls, got %d", len(api.calls))
	}
}

func TestCall_ClientErrorsAreNotRetried(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	c.apiToken = "wrong"

	_, err := c.GetZoneStatus(context.Background(), "example.com")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.StatusCode)
	}
	if len(api.calls) != 1 {
		t.Errorf("expected a single call, got %d", len(api.calls))
	}
}

func TestRegistrar_RegisterAndGetOrder(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	ctx := context.Background()

	_, err := c.GetOrder(ctx, "example.com", "")
	if !errors.Is(err, deployment.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before registration, got %v", err)
	}

	reg, err := c.RegisterDomain(ctx, "example.com", []string{"ada.ns"}, deployment.Contact{FirstName: "Ada", PostalCode: "N1"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Status != StatusPending {
		t.Errorf("expected pending, got %s", reg.Status)
	}
	if api.lastBody["years"] != float64(2) {
		t.Errorf("expected years=2 in body, got %v", api.lastBody["years"])
	}

	d := api.domains["example.com"]
	d.Status = "active"
	api.domains["example.com"] = d

	got, err := c.GetOrder(ctx, "example.com", reg.OrderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusRegistered || got.DomainID != reg.DomainID {
		t.Errorf("unexpected registration %+v", got)
	}
}

func TestFQDN(t *testing.T) {
	tests := []struct{ domain, name, want string }{
		{"example.com", "@", "example.com"},
		{"example.com", "", "example.com"},
		{"example.com", "www", "www.example.com"},
		{"example.com", "www.example.com", "www.example.com"},
	}
	for _, tt := range tests {
		if got := FQDN(tt.domain, tt.name); got != tt.want {
			t.Errorf("FQDN(%q, %q) = %q, want %q", tt.domain, tt.name, got, tt.want)
		}
	}
}

// rewriteTransport rewrites request URLs to point at the test server.
type rewriteTransport struct {
	base    string
	wrapped http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	req.URL.Host = t.base[len("http://"):]
	return t.wrapped.RoundTrip(req)
}
