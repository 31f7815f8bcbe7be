package walrus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/suilocker/suilocker/internal/common"
)

// HTTPNodeClient talks to storage nodes over their HTTP API. All nodes
// are reached through a single aggregator base URL; the target node is
// named in the request path.
type HTTPNodeClient struct {
	baseURL string
	nodes   []string
	httpc   *http.Client
}

// NodeOption customizes an HTTPNodeClient.
type NodeOption func(*HTTPNodeClient)

func WithNodeHTTPClient(c *http.Client) NodeOption {
	return func(n *HTTPNodeClient) { n.httpc = c }
}

func NewHTTPNodeClient(baseURL string, nodes []string, opts ...NodeOption) *HTTPNodeClient {
	c := &HTTPNodeClient{
		baseURL: baseURL,
		nodes:   nodes,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPNodeClient) Nodes() []string { return c.nodes }

type shardResponse struct {
	Confirmation string `json:"confirmation"`
}

// WriteShards uploads each shard to its assigned node and collects the
// signed confirmations. The first failing node aborts the batch: a
// partial write cannot be certified anyway.
func (c *HTTPNodeClient) WriteShards(ctx context.Context, blobObjectID string, shards []Shard) ([]string, error) {
	confirmations := make([]string, 0, len(shards))
	for _, shard := range shards {
		conf, err := c.writeShard(ctx, blobObjectID, shard)
		if err != nil {
			return nil, fmt.Errorf("node %s shard %d: %w", shard.Node, shard.Index, err)
		}
		confirmations = append(confirmations, conf)
	}
	return confirmations, nil
}

func (c *HTTPNodeClient) writeShard(ctx context.Context, blobObjectID string, shard Shard) (string, error) {
	u := fmt.Sprintf("%s/v1/nodes/%s/blobs/%s/shards/%d",
		c.baseURL, url.PathEscape(shard.Node), url.PathEscape(blobObjectID), shard.Index)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(shard.Data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var sr shardResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decoding confirmation: %w", err)
	}
	if sr.Confirmation == "" {
		return "", fmt.Errorf("node returned empty confirmation")
	}
	return sr.Confirmation, nil
}

// ReadBlob fetches a certified blob's bytes by id.
func (c *HTTPNodeClient) ReadBlob(ctx context.Context, blobID string) ([]byte, error) {
	u := fmt.Sprintf("%s/v1/blobs/%s", c.baseURL, url.PathEscape(blobID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, common.ErrBlobUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
