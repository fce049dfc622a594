package chainsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/observability"
)

// ClientConfig configures WebSocket client behavior.
type ClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds request/response calls.
	RequestTimeout time.Duration
}

// DefaultClientConfig returns default WebSocket configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		RequestTimeout:    30 * time.Second,
	}
}

// Client speaks the node gateway's JSON-RPC protocol over a single
// WebSocket: a block subscription plus request/response UTxO queries.
// It reconnects with exponential backoff and resubscribes from the
// last delivered slot, so the stream never goes backwards.
type Client struct {
	endpoint string
	config   ClientConfig
	logger   *zap.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to the channel awaiting its response
	pending   map[uint64]chan wsResponse
	pendingMu sync.Mutex

	// blocks is the single block subscription channel
	blocks   chan chain.Block
	blocksMu sync.Mutex

	// lastSlot is the highest slot delivered, for resubscription
	lastSlot atomic.Int64

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewClient creates a client and connects to the endpoint.
func NewClient(ctx context.Context, endpoint string, config *ClientConfig, logger *zap.Logger) (*Client, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		pending:  make(map[uint64]chan wsResponse),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

var _ BlockSource = (*Client)(nil)

// connect establishes the WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Blocks subscribes to the block stream starting at fromSlot. Only one
// subscription per client.
func (c *Client) Blocks(ctx context.Context, fromSlot int64) (<-chan chain.Block, error) {
	c.blocksMu.Lock()
	defer c.blocksMu.Unlock()

	if c.blocks != nil {
		return nil, fmt.Errorf("already subscribed")
	}

	if _, err := c.call(ctx, "subscribeBlocks", map[string]int64{"from": fromSlot}); err != nil {
		return nil, fmt.Errorf("subscribe blocks: %w", err)
	}

	c.lastSlot.Store(fromSlot - 1)
	// Large buffer so a slow consumer absorbs bursts without stalling
	// the read loop; sends block rather than drop.
	c.blocks = make(chan chain.Block, 1000)
	return c.blocks, nil
}

// Resolve queries the gateway's UTxO index for the outputs the given
// inputs consumed. Unknown inputs are absent from the result.
func (c *Client) Resolve(ctx context.Context, inputs []chain.TxInput) ([]chain.ResolvedInput, error) {
	refs := make([]wireInput, 0, len(inputs))
	for _, in := range inputs {
		refs = append(refs, wireInput{TxHash: in.TxHash, Index: in.Index})
	}

	raw, err := c.call(ctx, "resolveUtxo", map[string]interface{}{"inputs": refs})
	if err != nil {
		return nil, fmt.Errorf("resolve utxo: %w", err)
	}

	var result struct {
		Utxos []wireUtxo `json:"utxos"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode utxo response: %w", err)
	}

	resolved := make([]chain.ResolvedInput, 0, len(result.Utxos))
	for _, u := range result.Utxos {
		out, err := u.Output.decode()
		if err != nil {
			return nil, fmt.Errorf("decode utxo %s#%d: %w", u.TxHash, u.Index, err)
		}
		resolved = append(resolved, chain.ResolvedInput{
			TxInput: chain.TxInput{TxHash: u.TxHash, Index: u.Index},
			Output:  out,
		})
	}
	return resolved, nil
}

// call sends one request and waits for its response.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	respCh := make(chan wsResponse, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = respCh
	c.pendingMu.Unlock()

	drop := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		drop()
		return nil, fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		drop()
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	case <-time.After(c.config.RequestTimeout):
		drop()
		return nil, fmt.Errorf("%s: timeout after %s", method, c.config.RequestTimeout)
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case <-ctx.Done():
		drop()
		return nil, ctx.Err()
	}
}

// Close closes the WebSocket connection and the block channel.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()

	c.blocksMu.Lock()
	if c.blocks != nil {
		close(c.blocks)
		c.blocks = nil
	}
	c.blocksMu.Unlock()

	return nil
}

// readLoop reads messages and dispatches responses and notifications.
func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect re-establishes the connection and resumes the block
// subscription from the slot after the last delivered one.
func (c *Client) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	observability.RecordReconnect()

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Warn("reconnect failed, will retry", zap.Error(err))
		return
	}

	c.blocksMu.Lock()
	subscribed := c.blocks != nil
	c.blocksMu.Unlock()

	if subscribed {
		from := c.lastSlot.Load() + 1
		if _, err := c.call(ctx, "subscribeBlocks", map[string]int64{"from": from}); err != nil {
			c.logger.Warn("resubscribe failed, will retry on next reconnect",
				zap.Int64("from_slot", from),
				zap.Error(err))
			return
		}
		c.logger.Info("resubscribed to block stream", zap.Int64("from_slot", from))
	}
}

// handleMessage routes one incoming message.
func (c *Client) handleMessage(message []byte) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "blockNotification" {
		c.handleBlockNotification(&notif)
		return
	}

	var resp wsResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID > 0 {
		c.handleResponse(&resp)
		return
	}

	c.logger.Debug("unrecognized message", zap.ByteString("payload", message))
}

// handleResponse delivers a response to the waiting caller.
func (c *Client) handleResponse(resp *wsResponse) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- *resp:
		default:
		}
	}
}

// handleBlockNotification decodes and delivers one block. Blocks at or
// below the last delivered slot are duplicates from resubscription
// overlap and are dropped.
func (c *Client) handleBlockNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	var wb wireBlock
	if err := json.Unmarshal(notif.Params.Result, &wb); err != nil {
		c.logger.Warn("malformed block notification", zap.Error(err))
		return
	}

	block, err := wb.decode()
	if err != nil {
		c.logger.Warn("undecodable block, skipping",
			zap.Int64("slot", wb.Slot),
			zap.String("hash", wb.Hash),
			zap.Error(err))
		return
	}

	if block.Slot <= c.lastSlot.Load() {
		return
	}

	c.blocksMu.Lock()
	ch := c.blocks
	c.blocksMu.Unlock()
	if ch == nil {
		return
	}

	// Block until the consumer takes it; blocks are never dropped.
	select {
	case ch <- block:
		c.lastSlot.Store(block.Slot)
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Reader notices the dead connection and reconnects.
					c.logger.Debug("ping failed", zap.Error(err))
				}
			}
			c.connMu.Unlock()
		}
	}
}
