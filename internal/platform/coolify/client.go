package coolify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/metrics"
	"github.com/imamik/launchpad/internal/retry"
)

// DefaultEnvironment is the Coolify environment applications are created in.
const DefaultEnvironment = "production"

var defaultRetry = retry.Policy{MaxAttempts: 4, Backoff: retry.Exponential(time.Second, 30*time.Second)}

// Client talks to one Coolify instance.
type Client struct {
	baseURL     string
	token       string
	serverUUID  string
	projectUUID string
	environment string
	image       string
	port        string
	httpClient  *http.Client
	retry       retry.Policy
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

// WithImage sets the container image new applications are created from.
func WithImage(image string) Option {
	return func(c *Client) { c.image = image }
}

// WithEnvironment sets the Coolify environment name.
func WithEnvironment(env string) Option {
	return func(c *Client) { c.environment = env }
}

// WithPort sets the exposed container port.
func WithPort(port string) Option {
	return func(c *Client) { c.port = port }
}

// Application is a Coolify application.
type Application struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	FQDN   string `json:"fqdn"`
	Status string `json:"status"`
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("coolify API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("coolify API error (status %d): %s", e.StatusCode, e.Message)
}

// Is matches deployment.ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == deployment.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// NewClient creates a client for the instance at baseURL, e.g.
// https://coolify.example.com.
func NewClient(baseURL, token, serverUUID, projectUUID string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/") + "/api/v1",
		token:       token,
		serverUUID:  serverUUID,
		projectUUID: projectUUID,
		environment: DefaultEnvironment,
		image:       "nginx:alpine",
		port:        "80",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retry:       defaultRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindByName implements deployment.Platform. It returns nil, nil when no
// application has that name.
func (c *Client) FindByName(ctx context.Context, name string) (*deployment.App, error) {
	var apps []Application
	if err := c.call(ctx, "list_applications", http.MethodGet, "/applications", nil, &apps); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	for _, a := range apps {
		if a.Name == name {
			return toApp(a), nil
		}
	}
	return nil, nil
}

// Get returns one application.
func (c *Client) Get(ctx context.Context, id string) (*deployment.App, error) {
	var a Application
	if err := c.call(ctx, "get_application", http.MethodGet, "/applications/"+url.PathEscape(id), nil, &a); err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return toApp(a), nil
}

// Create implements deployment.Platform. The application is created without
// being deployed; env is applied before the id is returned.
func (c *Client) Create(ctx context.Context, name, fqdn string, env map[string]string) (string, error) {
	if c.serverUUID == "" || c.projectUUID == "" {
		return "", errors.New("coolify server and project uuids are required to create an application")
	}
	image, tag := splitImage(c.image)
	body := map[string]any{
		"project_uuid":               c.projectUUID,
		"server_uuid":                c.serverUUID,
		"environment_name":           c.environment,
		"name":                       name,
		"domains":                    fqdn,
		"docker_registry_image_name": image,
		"docker_registry_image_tag":  tag,
		"ports_exposes":              c.port,
		"instant_deploy":             false,
	}
	var created struct {
		UUID string `json:"uuid"`
	}
	if err := c.call(ctx, "create_application", http.MethodPost, "/applications/dockerimage", body, &created); err != nil {
		return "", fmt.Errorf("create application %s: %w", name, err)
	}
	if err := c.setEnv(ctx, created.UUID, env); err != nil {
		return created.UUID, err
	}
	return created.UUID, nil
}

// Update implements deployment.Platform.
func (c *Client) Update(ctx context.Context, id, fqdn string, env map[string]string) error {
	body := map[string]any{"domains": fqdn}
	if err := c.call(ctx, "update_application", http.MethodPatch, "/applications/"+url.PathEscape(id), body, nil); err != nil {
		return fmt.Errorf("update application %s: %w", id, err)
	}
	return c.setEnv(ctx, id, env)
}

func (c *Client) setEnv(ctx context.Context, id string, env map[string]string) error {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		data = append(data, map[string]any{"key": k, "value": env[k], "is_preview": false})
	}
	path := "/applications/" + url.PathEscape(id) + "/envs/bulk"
	if err := c.call(ctx, "set_env", http.MethodPatch, path, map[string]any{"data": data}, nil); err != nil {
		return fmt.Errorf("set environment for %s: %w", id, err)
	}
	return nil
}

// Delete implements deployment.Platform. A missing application matches
// deployment.ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := "/applications/" + url.PathEscape(id) + "?delete_volumes=true&delete_configurations=true"
	if err := c.call(ctx, "delete_application", http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete application %s: %w", id, err)
	}
	return nil
}

// GetStatus implements deployment.Platform. Coolify reports values such as
// "running:healthy" or "exited:unhealthy".
func (c *Client) GetStatus(ctx context.Context, id string) (string, error) {
	app, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return app.Status, nil
}

// Start implements deployment.Platform and returns the deployment uuid.
func (c *Client) Start(ctx context.Context, id string) (string, error) {
	var out struct {
		Message        string `json:"message"`
		DeploymentUUID string `json:"deployment_uuid"`
	}
	path := "/applications/" + url.PathEscape(id) + "/start"
	if err := c.call(ctx, "start_application", http.MethodPost, path, nil, &out); err != nil {
		return "", fmt.Errorf("start application %s: %w", id, err)
	}
	return out.DeploymentUUID, nil
}

// Logs implements deployment.LogSource.
func (c *Client) Logs(ctx context.Context, id string, lines int) ([]string, error) {
	if lines <= 0 {
		lines = 100
	}
	var out struct {
		Logs string `json:"logs"`
	}
	path := fmt.Sprintf("/applications/%s/logs?lines=%d", url.PathEscape(id), lines)
	if err := c.call(ctx, "logs", http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("logs for %s: %w", id, err)
	}
	text := strings.TrimRight(out.Logs, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func toApp(a Application) *deployment.App {
	return &deployment.App{ID: a.UUID, Name: a.Name, FQDN: a.FQDN, Status: a.Status}
}

func splitImage(ref string) (string, string) {
	if i := strings.LastIndex(ref, ":"); i > strings.LastIndex(ref, "/") {
		return ref[:i], ref[i+1:]
	}
	return ref, "latest"
}

func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, method, path, body, out)
	})
	metrics.RecordAPICall("coolify", op, err, time.Since(start).Seconds())
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return retry.Fatal(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return retry.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &msg)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return apiErr
		}
		return retry.Fatal(apiErr)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return retry.Fatal(fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode))
	}
	return nil
}
