// Package vertexai provides a dense embedding strategy backed by the Vertex AI
// prediction API, authenticating through Google application default
// credentials.
package vertexai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultLocation     = "us-central1"
	defaultModel        = "text-embedding-004"
	defaultHTTPClientTO = 30 * time.Second
	cloudPlatformScope  = "https://www.googleapis.com/auth/cloud-platform"
)

type predictRequest struct {
	Instances []predictInstance `json:"instances"`
}

type predictInstance struct {
	Content string `json:"content"`
}

type predictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

type Client struct {
	ProjectID  string
	Location   string
	Model      string
	HTTPClient *http.Client

	mu          sync.Mutex
	tokenSource oauth2.TokenSource
	dimension   int
}

// NewClient builds a client for projectID. The token source is resolved
// lazily on the first call so construction never touches the network.
func NewClient(projectID, model, location string) *Client {
	c := &Client{
		ProjectID:  projectID,
		Location:   location,
		Model:      model,
		HTTPClient: &http.Client{Timeout: defaultHTTPClientTO},
	}
	if c.Location == "" {
		c.Location = defaultLocation
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	return c
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		c.Location, c.ProjectID, c.Location, c.Model)
}

func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	ts := c.tokenSource
	c.mu.Unlock()
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("token source: %w", err)
		}
		c.mu.Lock()
		c.tokenSource = ts
		c.mu.Unlock()
	}
	return ts.Token()
}

// Embed computes embeddings for texts through the predict endpoint.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if c.ProjectID == "" {
		return nil, 0, fmt.Errorf("project id is required")
	}
	if len(texts) == 0 {
		return nil, 0, fmt.Errorf("no input texts provided")
	}
	instances := make([]predictInstance, len(texts))
	for i, t := range texts {
		instances[i] = predictInstance{Content: t}
	}
	reqBody, err := json.Marshal(predictRequest{Instances: instances})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	token, err := c.token(ctx)
	if err != nil {
		return nil, 0, err
	}
	token.SetAuthHeader(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("API error: %s", strings.TrimSpace(string(body)))
	}
	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}
	vectors := make([][]float32, len(out.Predictions))
	for i := range out.Predictions {
		vectors[i] = out.Predictions[i].Embeddings.Values
	}
	c.recordDimension(vectors)
	return vectors, 0, nil
}

func (c *Client) recordDimension(vectors [][]float32) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return
	}
	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(vectors[0])
	}
	c.mu.Unlock()
}

// Dimension reports the vector dimension observed on the first successful
// call, or zero before any call completed.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embedder bridges the client to the embeddings.Embedder interface.
type Embedder struct{ C *Client }

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	v, _, err := e.C.Embed(ctx, docs)
	return v, err
}

func (e *Embedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	v, _, err := e.C.Embed(ctx, []string{q})
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return []float32{}, nil
	}
	return v[0], nil
}

// Dimension implements embeddings.Dimensioner.
func (e *Embedder) Dimension() int { return e.C.Dimension() }
