// Package client provides a Go client for the KektorNav HTTP API.
//
// It covers waypoint graphs (create, nodes, links, import, pathfinding),
// tile grids (create, cells, pathfinding) and system tasks. Errors returned
// by the server surface as *APIError.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Custom Errors ---

// APIError represents an error returned by the KektorNav API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// --- JSON Structs ---

// GraphInfo summarizes a waypoint graph.
type GraphInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
}

// Edge is an outgoing edge of a node.
type Edge struct {
	To   string  `json:"to"`
	Cost float32 `json:"cost"`
}

// Node is a waypoint.
type Node struct {
	ID    string    `json:"id"`
	Pos   []float64 `json:"pos,omitempty"`
	Area  uint8     `json:"area,omitempty"`
	Edges []Edge    `json:"edges,omitempty"`
}

// PathQuery describes a search on a waypoint graph.
type PathQuery struct {
	Start          string            `json:"start"`
	End            string            `json:"end"`
	Heuristic      string            `json:"heuristic,omitempty"`
	HeuristicScale float64           `json:"heuristic_scale,omitempty"`
	ExcludedAreas  []int             `json:"excluded_areas,omitempty"`
	AreaCosts      map[uint8]float64 `json:"area_costs,omitempty"`
	MaxEdgeCost    float64           `json:"max_edge_cost,omitempty"`
	Partial        bool              `json:"partial,omitempty"`
}

// PathResult is the outcome of a graph search. Status is one of
// "search_success", "search_fail", "goal_unreachable", "infinite_loop" or
// "search_limit_reached".
type PathResult struct {
	Status   string   `json:"status"`
	Path     []string `json:"path"`
	Cost     float64  `json:"cost"`
	Expanded int      `json:"expanded"`
}

// GridInfo summarizes a tile grid.
type GridInfo struct {
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Diagonal bool   `json:"diagonal"`
	Blocked  int    `json:"blocked"`
}

// CellUpdate sets the state of one grid cell. A zero Cost means 1.
type CellUpdate struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Blocked bool    `json:"blocked,omitempty"`
	Cost    float64 `json:"cost,omitempty"`
}

// Cell addresses a grid cell as [x, y].
type Cell [2]int

// GridQuery describes a search on a grid.
type GridQuery struct {
	Start          Cell    `json:"start"`
	End            Cell    `json:"end"`
	Heuristic      string  `json:"heuristic,omitempty"`
	HeuristicScale float64 `json:"heuristic_scale,omitempty"`
	Partial        bool    `json:"partial,omitempty"`
}

// GridPathResult is the outcome of a grid search.
type GridPathResult struct {
	Status   string  `json:"status"`
	Path     []Cell  `json:"path"`
	Cost     float64 `json:"cost"`
	Expanded int     `json:"expanded"`
}

// Task represents an asynchronous operation on the KektorNav server.
type Task struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	Error           string          `json:"error,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`

	client *Client // Reference to the client for polling.
}

// --- Client ---

// Client is the Go client for interacting with KektorNav.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new KektorNav client for host:port. An empty apiKey sends
// no Authorization header.
func New(host string, port int, apiKey string) *Client {
	return NewWithBaseURL(fmt.Sprintf("http://%s:%d", host, port), apiKey)
}

// NewWithBaseURL creates a client for a full base URL such as
// "https://nav.example.com".
func NewWithBaseURL(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// jsonRequest is a helper method to execute all requests to the API.
// It handles JSON serialization, HTTP calls, and error management.
func (c *Client) jsonRequest(method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil // For 204 responses (e.g., DELETE).
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(respBody, &errResp) == nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

// call runs a request and decodes the response into out.
func (c *Client) call(method, endpoint string, payload, out any) error {
	respBody, err := c.jsonRequest(method, endpoint, payload)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("invalid JSON response for %s %s: %w", method, endpoint, err)
	}
	return nil
}

// Refresh updates the task's status by querying the server.
func (t *Task) Refresh() error {
	if t.client == nil {
		return fmt.Errorf("client is not associated with the task")
	}
	updatedTask, err := t.client.GetTaskStatus(t.ID)
	if err != nil {
		return err
	}
	t.Status = updatedTask.Status
	t.ProgressMessage = updatedTask.ProgressMessage
	t.Error = updatedTask.Error
	t.Result = updatedTask.Result
	return nil
}

// Wait blocks until the task is completed, checking its status at regular intervals.
func (t *Task) Wait(interval, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf("timeout exceeded while waiting for task %s", t.ID)
		case <-ticker.C:
			if err := t.Refresh(); err != nil {
				return err
			}
			switch t.Status {
			case "completed":
				return nil
			case "failed":
				return fmt.Errorf("task %s failed with error: %s", t.ID, t.Error)
			case "running", "started":
				// Continue waiting.
			default:
				return fmt.Errorf("unknown task status: %s", t.Status)
			}
		}
	}
}

// --- Graph Methods ---

// CreateGraph creates an empty waypoint graph.
func (c *Client) CreateGraph(name string, dimension int) (*GraphInfo, error) {
	payload := map[string]any{"name": name, "dimension": dimension}
	var info GraphInfo
	if err := c.call(http.MethodPost, "/graphs", payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListGraphs returns every waypoint graph.
func (c *Client) ListGraphs() ([]GraphInfo, error) {
	var graphs []GraphInfo
	err := c.call(http.MethodGet, "/graphs", nil, &graphs)
	return graphs, err
}

// GetGraph returns the summary of one graph.
func (c *Client) GetGraph(name string) (*GraphInfo, error) {
	var info GraphInfo
	if err := c.call(http.MethodGet, "/graphs/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DropGraph deletes a graph.
func (c *Client) DropGraph(name string) error {
	return c.call(http.MethodDelete, "/graphs/"+url.PathEscape(name), nil, nil)
}

// AddNode adds a waypoint, or moves it when the ID already exists.
func (c *Client) AddNode(graph, id string, pos []float64, area uint8) (*Node, error) {
	payload := map[string]any{"id": id, "pos": pos, "area": area}
	var node Node
	if err := c.call(http.MethodPost, "/graphs/"+url.PathEscape(graph)+"/nodes", payload, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// GetNode returns a waypoint with its outgoing edges.
func (c *Client) GetNode(graph, id string) (*Node, error) {
	var node Node
	endpoint := "/graphs/" + url.PathEscape(graph) + "/nodes/" + url.PathEscape(id)
	if err := c.call(http.MethodGet, endpoint, nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// ListNodes returns waypoints whose ID starts with prefix, in ID order.
// A zero limit returns all of them.
func (c *Client) ListNodes(graph, prefix string, limit int) ([]Node, error) {
	query := url.Values{}
	if prefix != "" {
		query.Set("prefix", prefix)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	endpoint := "/graphs/" + url.PathEscape(graph) + "/nodes"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var resp struct {
		Nodes []Node `json:"nodes"`
	}
	if err := c.call(http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// RemoveNode deletes a waypoint and its edges.
func (c *Client) RemoveNode(graph, id string) error {
	endpoint := "/graphs/" + url.PathEscape(graph) + "/nodes/" + url.PathEscape(id)
	return c.call(http.MethodDelete, endpoint, nil, nil)
}

// Link connects src to dst. A zero cost means the straight-line distance.
func (c *Client) Link(graph, src, dst string, cost float32, bidirectional bool) error {
	payload := map[string]any{"src": src, "dst": dst, "cost": cost, "bidirectional": bidirectional}
	return c.call(http.MethodPost, "/graphs/"+url.PathEscape(graph)+"/links", payload, nil)
}

// Unlink removes the edge from src to dst.
func (c *Client) Unlink(graph, src, dst string, bidirectional bool) error {
	payload := map[string]any{"src": src, "dst": dst, "bidirectional": bidirectional}
	return c.call(http.MethodDelete, "/graphs/"+url.PathEscape(graph)+"/links", payload, nil)
}

// FindPath searches a waypoint graph.
func (c *Client) FindPath(graph string, q PathQuery) (*PathResult, error) {
	var res PathResult
	if err := c.call(http.MethodPost, "/graphs/"+url.PathEscape(graph)+"/path", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ImportGraph starts an asynchronous import of a YAML graph document and
// returns the Task to wait on.
func (c *Client) ImportGraph(document string, replace bool) (*Task, error) {
	return c.startImport(map[string]any{"document": document, "replace": replace})
}

// ImportGraphFile imports a document from a path readable by the server.
func (c *Client) ImportGraphFile(path string, replace bool) (*Task, error) {
	return c.startImport(map[string]any{"path": path, "replace": replace})
}

func (c *Client) startImport(payload map[string]any) (*Task, error) {
	var task Task
	if err := c.call(http.MethodPost, "/graphs/actions/import", payload, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}

// --- Grid Methods ---

// CreateGrid creates a width x height grid with every cell open.
func (c *Client) CreateGrid(name string, width, height int, diagonal bool) (*GridInfo, error) {
	payload := map[string]any{"name": name, "width": width, "height": height, "diagonal": diagonal}
	var info GridInfo
	if err := c.call(http.MethodPost, "/grids", payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListGrids returns every grid.
func (c *Client) ListGrids() ([]GridInfo, error) {
	var grids []GridInfo
	err := c.call(http.MethodGet, "/grids", nil, &grids)
	return grids, err
}

// GetGrid returns the summary of one grid.
func (c *Client) GetGrid(name string) (*GridInfo, error) {
	var info GridInfo
	if err := c.call(http.MethodGet, "/grids/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DropGrid deletes a grid.
func (c *Client) DropGrid(name string) error {
	return c.call(http.MethodDelete, "/grids/"+url.PathEscape(name), nil, nil)
}

// SetCells applies cell updates in order. The server stops at the first
// invalid update.
func (c *Client) SetCells(grid string, cells []CellUpdate) (*GridInfo, error) {
	payload := map[string]any{"cells": cells}
	var info GridInfo
	if err := c.call(http.MethodPost, "/grids/"+url.PathEscape(grid)+"/cells", payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// FindGridPath searches a grid.
func (c *Client) FindGridPath(grid string, q GridQuery) (*GridPathResult, error) {
	var res GridPathResult
	if err := c.call(http.MethodPost, "/grids/"+url.PathEscape(grid)+"/path", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Administration Methods ---

// AOFRewrite compacts the server's append-only file.
func (c *Client) AOFRewrite() error {
	return c.call(http.MethodPost, "/system/aof-rewrite", nil, nil)
}

// GetTaskStatus retrieves the status of a long-running task.
func (c *Client) GetTaskStatus(taskID string) (*Task, error) {
	var task Task
	if err := c.call(http.MethodGet, "/system/tasks/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}
