// Package staking is the Go client for the hvstaking JSON-RPC API.
package staking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client wraps the staking node's JSON-RPC endpoint.
type Client struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
}

// Option mutates the client configuration during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithAuthToken sets the bearer token sent with every request. Transaction
// methods need the RPC token; admin methods need the operator token.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// New constructs a client pointed at the supplied endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	client := &Client{
		endpoint:   trimmed,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	return client, nil
}

// RPCError is a JSON-RPC error returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		body["params"] = []interface{}{params}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var envelope rpcEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

// Position is a staker's ledger entry.
type Position struct {
	Owner           string `json:"owner"`
	Quantity        string `json:"quantity"`
	UnclaimedTokens string `json:"unclaimedTokens"`
	LastClaimTime   int64  `json:"lastClaimTime"`
	LastCalcDay     uint64 `json:"lastCalcDay"`
}

// PendingRefund is a staker's delayed withdrawal.
type PendingRefund struct {
	Owner     string `json:"owner"`
	Quantity  string `json:"quantity"`
	RequestAt int64  `json:"requestAt"`
	DueAt     int64  `json:"dueAt"`
}

// Settings is the global ledger state.
type Settings struct {
	TotalStaked string `json:"totalStaked"`
	ActiveDay   uint64 `json:"activeDay"`
	Frozen      bool   `json:"frozen"`
}

// Profile is a staker's claim-eligibility record.
type Profile struct {
	Owner  string `json:"owner"`
	Active bool   `json:"active"`
	Note   string `json:"note"`
}

type ownerArg struct {
	Owner string `json:"owner"`
}

// Transfer moves tokens between accounts. Sending to the custody account
// stakes the amount.
func (c *Client) Transfer(ctx context.Context, from, to, quantity, memo string) error {
	return c.call(ctx, "token_transfer", struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Quantity string `json:"quantity"`
		Memo     string `json:"memo"`
	}{from, to, quantity, memo}, nil)
}

// Balance returns the custody balance for an account as an asset string.
func (c *Client) Balance(ctx context.Context, account string) (string, error) {
	var result struct {
		Balance string `json:"balance"`
	}
	err := c.call(ctx, "token_balance", struct {
		Account string `json:"account"`
	}{account}, &result)
	return result.Balance, err
}

// PowerDown unbonds quantity from the owner's stake.
func (c *Client) PowerDown(ctx context.Context, owner, quantity string) error {
	return c.call(ctx, "staking_powerDown", struct {
		Owner    string `json:"owner"`
		Quantity string `json:"quantity"`
	}{owner, quantity}, nil)
}

// Refund executes the owner's pending withdrawal if the delay has elapsed.
func (c *Client) Refund(ctx context.Context, owner string) error {
	return c.call(ctx, "staking_refund", ownerArg{owner}, nil)
}

// Claim pays out the owner's accrued rewards.
func (c *Client) Claim(ctx context.Context, owner string) error {
	return c.call(ctx, "staking_claim", ownerArg{owner}, nil)
}

// CheckReward reports the claimable reward without mutating anything.
func (c *Client) CheckReward(ctx context.Context, owner string) (string, error) {
	var result struct {
		Reward string `json:"reward"`
	}
	err := c.call(ctx, "staking_checkReward", ownerArg{owner}, &result)
	return result.Reward, err
}

// Position returns the owner's ledger entry, nil if none exists.
func (c *Client) Position(ctx context.Context, owner string) (*Position, error) {
	var result *Position
	if err := c.call(ctx, "staking_position", ownerArg{owner}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// PendingRefund returns the owner's pending withdrawal, nil if none exists.
func (c *Client) PendingRefund(ctx context.Context, owner string) (*PendingRefund, error) {
	var result *PendingRefund
	if err := c.call(ctx, "staking_pendingRefund", ownerArg{owner}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Settings returns the global ledger settings.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var result Settings
	if err := c.call(ctx, "staking_settings", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RewardRatio returns the ratio recorded for a day, zero if absent.
func (c *Client) RewardRatio(ctx context.Context, day uint64) (int32, error) {
	var result struct {
		Ratio int32 `json:"ratio"`
	}
	err := c.call(ctx, "staking_rewardRatio", struct {
		Day uint64 `json:"day"`
	}{day}, &result)
	return result.Ratio, err
}

// Profile returns the owner's claim-eligibility record, nil if none exists.
func (c *Client) Profile(ctx context.Context, owner string) (*Profile, error) {
	var result *Profile
	if err := c.call(ctx, "staking_profile", ownerArg{owner}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SetDay moves the active accrual day. Operator only.
func (c *Client) SetDay(ctx context.Context, day uint64) error {
	return c.call(ctx, "staking_setDay", struct {
		Day uint64 `json:"day"`
	}{day}, nil)
}

// CalcRatio recomputes the reward ratio for a day. Operator only.
func (c *Client) CalcRatio(ctx context.Context, day uint64) error {
	return c.call(ctx, "staking_calcRatio", struct {
		Day uint64 `json:"day"`
	}{day}, nil)
}

// Freeze blocks user operations. Operator only.
func (c *Client) Freeze(ctx context.Context) error {
	return c.call(ctx, "staking_freeze", nil, nil)
}

// Unfreeze lifts the freeze flag. Operator only.
func (c *Client) Unfreeze(ctx context.Context) error {
	return c.call(ctx, "staking_unfreeze", nil, nil)
}

// SetProfile upserts claim eligibility for an owner. Operator only.
func (c *Client) SetProfile(ctx context.Context, owner string, active bool, note string) error {
	return c.call(ctx, "staking_setProfile", struct {
		Owner  string `json:"owner"`
		Active bool   `json:"active"`
		Note   string `json:"note"`
	}{owner, active, note}, nil)
}
