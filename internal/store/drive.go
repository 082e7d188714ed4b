package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Drive talks to a cloud drive exposing a key/value HTTP API:
// PUT/GET/DELETE /kv/{folder}/{name} and GET /kv/{folder}/* for listings.
type Drive struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewDrive(baseURL, apiKey string) *Drive {
	return &Drive{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// nodeRequest is the body for PUT /kv/{key}.
type nodeRequest struct {
	Value any `json:"value"`
}

// nodeResponse is one node from GET /kv/{key} or a listing.
type nodeResponse struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

func (d *Drive) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	return req, nil
}

func statusError(op, key string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s %s: status %d: %s", op, key, resp.StatusCode, string(respBody))
}

func (d *Drive) Put(ctx context.Context, folder, name string, value any) error {
	k, err := key(folder, name)
	if err != nil {
		return err
	}
	body, err := json.Marshal(nodeRequest{Value: value})
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	req, err := d.newRequest(ctx, http.MethodPut, d.baseURL+"/kv/"+k, bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("put node", k, resp)
	}
	return nil
}

func (d *Drive) Get(ctx context.Context, folder, name string, out any) (bool, error) {
	k, err := key(folder, name)
	if err != nil {
		return false, err
	}
	req, err := d.newRequest(ctx, http.MethodGet, d.baseURL+"/kv/"+k, nil)
	if err != nil {
		return false, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("get node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, statusError("get node", k, resp)
	}

	var node nodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return false, fmt.Errorf("decode node: %w", err)
	}
	if len(node.Value) == 0 || string(node.Value) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(node.Value, out); err != nil {
		return false, fmt.Errorf("decode value %s: %w", k, err)
	}
	return true, nil
}

func (d *Drive) List(ctx context.Context, folder string) ([]string, error) {
	f, err := cleanFolder(folder)
	if err != nil {
		return nil, err
	}
	req, err := d.newRequest(ctx, http.MethodGet, d.baseURL+"/kv/"+f+"/*", nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list children", f, resp)
	}

	var result struct {
		Nodes []nodeResponse `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}

	// The scan is recursive; keep direct children only.
	prefix := f + "/"
	names := make([]string, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		rest, ok := strings.CutPrefix(n.Key, prefix)
		if !ok || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		names = append(names, rest)
	}
	sort.Strings(names)
	return names, nil
}

func (d *Drive) Delete(ctx context.Context, folder, name string) error {
	var u string
	if name == "" {
		f, err := cleanFolder(folder)
		if err != nil {
			return err
		}
		u = d.baseURL + "/kv/" + f + "?children=true"
	} else {
		k, err := key(folder, name)
		if err != nil {
			return err
		}
		u = d.baseURL + "/kv/" + k
	}
	req, err := d.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete node", folder+"/"+name, resp)
}

// Close releases idle connections.
func (d *Drive) Close() {
	d.httpClient.CloseIdleConnections()
}
