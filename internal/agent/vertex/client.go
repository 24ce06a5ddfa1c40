// Package vertex talks to a deployed Vertex AI reasoning engine over its
// REST surface.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"salesagent/internal/agent"
	"salesagent/internal/logger"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Options configures a Client
type Options struct {
	Project      string
	Location     string
	ResourceName string // projects/*/locations/*/reasoningEngines/*
	Endpoint     string // defaults to the regional aiplatform endpoint

	// HTTPClient replaces the authenticated transport (tests, proxies)
	HTTPClient *http.Client
}

// Client is an agent.Runtime backed by a remote reasoning engine
type Client struct {
	http         *http.Client
	endpoint     string
	resourceName string
	log          *logger.Logger
}

var _ agent.Runtime = (*Client)(nil)

// NewClient builds an authenticated client using Application Default
// Credentials unless opts.HTTPClient is set.
func NewClient(ctx context.Context, opts Options, log *logger.Logger, clientOpts ...option.ClientOption) (*Client, error) {
	if opts.ResourceName == "" {
		return nil, fmt.Errorf("resource name is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	hc := opts.HTTPClient
	if hc == nil {
		all := append([]option.ClientOption{option.WithScopes(cloudPlatformScope)}, clientOpts...)
		var err error
		hc, _, err = htransport.NewClient(ctx, all...)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticated transport: %w", err)
		}
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		location := locationOf(opts.ResourceName)
		if location == "" {
			location = opts.Location
		}
		endpoint = fmt.Sprintf("https://%s-aiplatform.googleapis.com", location)
	}

	return &Client{
		http:         hc,
		endpoint:     strings.TrimRight(endpoint, "/"),
		resourceName: opts.ResourceName,
		log:          log.With("engine", opts.ResourceName),
	}, nil
}

// locationOf extracts the location segment of a resource name
func locationOf(name string) string {
	parts := strings.Split(name, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "locations" {
			return parts[i+1]
		}
	}
	return ""
}

type queryRequest struct {
	ClassMethod string         `json:"class_method"`
	Input       map[string]any `json:"input"`
}

type queryResponse struct {
	Output json.RawMessage `json:"output"`
}

type sessionOutput struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// CreateSession calls the engine's create_session method
func (c *Client) CreateSession(ctx context.Context, userID string) (agent.SessionHandle, error) {
	body := queryRequest{
		ClassMethod: "create_session",
		Input:       map[string]any{"user_id": userID},
	}

	resp, err := c.post(ctx, c.methodURL("query"), body)
	if err != nil {
		return agent.SessionHandle{}, agent.ConnectionFailure("create session", err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return agent.SessionHandle{}, agent.ConnectionFailure("create session", err)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return agent.SessionHandle{}, agent.ConnectionFailure("create session", fmt.Errorf("decode response: %w", err))
	}

	var out sessionOutput
	if err := json.Unmarshal(qr.Output, &out); err != nil || out.ID == "" {
		return agent.SessionHandle{}, agent.ConnectionFailure("create session", fmt.Errorf("response has no session id: %s", string(qr.Output)))
	}

	c.log.SessionStart(userID, out.ID)
	return agent.SessionHandle{UserID: userID, SessionID: out.ID}, nil
}

// StreamQuery calls the engine's stream_query method
func (c *Client) StreamQuery(ctx context.Context, handle agent.SessionHandle, message string) (agent.Stream, error) {
	body := queryRequest{
		ClassMethod: "stream_query",
		Input: map[string]any{
			"user_id":    handle.UserID,
			"session_id": handle.SessionID,
			"message":    message,
		},
	}

	resp, err := c.post(ctx, c.methodURL("streamQuery")+"?alt=sse", body)
	if err != nil {
		return nil, agent.QueryFailure("stream query", err)
	}

	if err := googleapi.CheckResponse(resp); err != nil {
		resp.Body.Close()
		return nil, agent.QueryFailure("stream query", err)
	}

	c.log.Debug("stream opened for session %s", handle.SessionID)
	return newEventStream(resp.Body), nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/v1/%s:%s", c.endpoint, c.resourceName, method)
}

func (c *Client) post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.http.Do(req)
}
