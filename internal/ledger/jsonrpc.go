package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/suilocker/suilocker/internal/logging"
	"github.com/suilocker/suilocker/internal/txb"
)

const (
	methodDevInspect     = "sui_devInspectTransactionBlock"
	methodGetTransaction = "sui_getTransactionBlock"

	// rpcCodeNotFound is returned while a digest has not reached
	// finality yet; WaitForTransaction keeps polling on it.
	rpcCodeNotFound = -32602
)

// RPCClient is the JSON-RPC implementation of Client.
type RPCClient struct {
	endpoint     string
	httpc        *http.Client
	log          logging.Logger
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// RPCOption customizes an RPCClient.
type RPCOption func(*RPCClient)

func WithHTTPClient(c *http.Client) RPCOption {
	return func(r *RPCClient) { r.httpc = c }
}

func WithWaitTimeout(d time.Duration) RPCOption {
	return func(r *RPCClient) { r.waitTimeout = d }
}

func WithPollInterval(d time.Duration) RPCOption {
	return func(r *RPCClient) { r.pollInterval = d }
}

func NewRPCClient(endpoint string, log logging.Logger, opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		endpoint:     endpoint,
		httpc:        &http.Client{Timeout: 30 * time.Second},
		log:          log,
		waitTimeout:  60 * time.Second,
		pollInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("ledger call %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ledger call %s: reading response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger call %s: unexpected status %d", method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return fmt.Errorf("ledger call %s: decoding response: %w", method, err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	return json.Unmarshal(rr.Result, result)
}

type devInspectResult struct {
	ReturnValues []string `json:"returnValues"`
}

// DevInspect executes the move call without committing and returns its
// binary return values, base64-decoded in declaration order.
func (c *RPCClient) DevInspect(ctx context.Context, sender string, tx *txb.Transaction) (*InspectResult, error) {
	var res devInspectResult
	if err := c.call(ctx, methodDevInspect, []any{sender, EncodeCall(tx)}, &res); err != nil {
		return nil, err
	}

	out := &InspectResult{ReturnValues: make([][]byte, len(res.ReturnValues))}
	for i, v := range res.ReturnValues {
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("return value %d is not valid base64: %w", i, err)
		}
		out.ReturnValues[i] = raw
	}
	return out, nil
}

type txBlockResult struct {
	Digest  string `json:"digest"`
	Effects struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	ObjectChanges []struct {
		Type       string `json:"type"`
		ObjectType string `json:"objectType"`
		ObjectID   string `json:"objectId"`
	} `json:"objectChanges"`
}

// WaitForTransaction polls the ledger until the digest is visible, then
// returns its effects. Polling uses a constant backoff bounded by the
// configured wait timeout; a digest that never appears surfaces as an
// error, not a hang.
func (c *RPCClient) WaitForTransaction(ctx context.Context, digest string) (*Effects, error) {
	var res txBlockResult

	backoff := retry.WithMaxDuration(c.waitTimeout, retry.NewConstant(c.pollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		params := []any{digest, map[string]bool{"showEffects": true, "showObjectChanges": true}}
		err := c.call(ctx, methodGetTransaction, params, &res)
		if err == nil {
			return nil
		}
		var re *rpcError
		if errors.As(err, &re) && re.Code == rpcCodeNotFound {
			c.log.Debug(ctx, "transaction not yet final", "digest", digest)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for transaction %s: %w", digest, err)
	}

	effects := &Effects{
		Digest: res.Digest,
		Status: res.Effects.Status.Status,
		Error:  res.Effects.Status.Error,
	}
	for _, oc := range res.ObjectChanges {
		if oc.Type != "created" {
			continue
		}
		effects.Created = append(effects.Created, ObjectChange{
			ObjectID:   oc.ObjectID,
			ObjectType: oc.ObjectType,
		})
	}
	if effects.Digest == "" {
		effects.Digest = digest
	}
	return effects, nil
}
