package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a kubecrud server.
type Client struct {
	baseURL string
	http    *http.Client
}

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kubecrud: %d: %s", e.StatusCode, e.Message)
}

func New(addr string) *Client {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL: strings.TrimSuffix(addr, "/"),
		http:    createHTTPClient(),
	}
}

// WithHTTPClient replaces the transport, tests pass httptest clients here.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) ListResources(ctx context.Context, namespace, kind string) ([]string, error) {
	var list ResourceList
	err := c.do(ctx, http.MethodGet, path("list_resources", namespace, kind), nil, &list)
	return list.Resources, err
}

func (c *Client) GetNamespace(ctx context.Context, name string) (*Namespace, error) {
	var ns Namespace
	if err := c.do(ctx, http.MethodGet, path("namespace", name)+"/", nil, &ns); err != nil {
		return nil, err
	}
	return &ns, nil
}

func (c *Client) CreateNamespace(ctx context.Context, name string) (string, error) {
	return c.message(ctx, http.MethodPost, path("namespace", name)+"/", nil)
}

func (c *Client) DeleteNamespace(ctx context.Context, name string) (string, error) {
	return c.message(ctx, http.MethodDelete, path("namespace", name)+"/", nil)
}

func (c *Client) GetPod(ctx context.Context, name, namespace string) (*Pod, error) {
	var pod Pod
	if err := c.do(ctx, http.MethodGet, path("pod", name, namespace)+"/", nil, &pod); err != nil {
		return nil, err
	}
	return &pod, nil
}

func (c *Client) CreatePod(ctx context.Context, name, namespace string, manifest map[string]any) (string, error) {
	return c.message(ctx, http.MethodPost, path("pod", name, namespace)+"/", manifest)
}

func (c *Client) UpdatePod(ctx context.Context, name, namespace string, patch map[string]any) (string, error) {
	return c.message(ctx, http.MethodPut, path("pod", name, namespace)+"/", patch)
}

func (c *Client) DeletePod(ctx context.Context, name, namespace string) (string, error) {
	return c.message(ctx, http.MethodDelete, path("pod", name, namespace)+"/", nil)
}

func (c *Client) GetService(ctx context.Context, name, namespace string) (*Service, error) {
	var svc Service
	if err := c.do(ctx, http.MethodGet, path("service", name, namespace)+"/", nil, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (c *Client) CreateService(ctx context.Context, name, namespace string, manifest map[string]any) (string, error) {
	return c.message(ctx, http.MethodPost, path("service", name, namespace)+"/", manifest)
}

func (c *Client) UpdateService(ctx context.Context, name, namespace string, patch map[string]any) (string, error) {
	return c.message(ctx, http.MethodPut, path("service", name, namespace)+"/", patch)
}

func (c *Client) DeleteService(ctx context.Context, name, namespace string) (string, error) {
	return c.message(ctx, http.MethodDelete, path("service", name, namespace)+"/", nil)
}

func (c *Client) message(ctx context.Context, method, p string, body any) (string, error) {
	var resp MessageResponse
	err := c.do(ctx, method, p, body, &resp)
	return resp.Message, err
}

func (c *Client) do(ctx context.Context, method, p string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var msg MessageResponse
		if json.Unmarshal(data, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(data))
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg.Message}
	}
	return json.Unmarshal(data, out)
}

func path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func createHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}
