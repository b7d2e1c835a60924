package substrate

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"

	"github.com/hyperledger-labs/beefy-relayer/log"
)

const (
	dialTimeout      = 10 * time.Second
	writeTimeout     = 10 * time.Second
	subscriptionSize = 64
)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return e.Message
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`

	// notification fields
	Method string `json:"method"`
	Params struct {
		Subscription json.RawMessage `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type subscription struct {
	id     string
	unsub  string
	ch     chan json.RawMessage
	client *rpcClient
}

func (s *subscription) Notifications() <-chan json.RawMessage {
	return s.ch
}

// Unsubscribe tells the node to stop the subscription. The notification
// channel is closed by the read loop once the node confirms, or when the
// connection goes away.
func (s *subscription) Unsubscribe(ctx context.Context) error {
	var ok bool
	return s.client.Call(ctx, s.unsub, []interface{}{s.id}, &ok)
}

// rpcClient is a JSON-RPC 2.0 client over a single websocket connection.
// Requests are multiplexed by id and subscription notifications are routed by
// subscription id, so one client can be shared by any number of goroutines.
type rpcClient struct {
	endpoint string

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan *rpcResponse
	subs    map[string]*subscription
	// notifications that arrived before Subscribe registered their id
	stash  map[string][]json.RawMessage
	closed bool
	done   chan struct{}
}

func newRPCClient(endpoint string) *rpcClient {
	return &rpcClient{endpoint: endpoint}
}

func (c *rpcClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.endpoint, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to dial %s", c.endpoint)
	}

	c.conn = conn
	c.pending = make(map[uint64]chan *rpcResponse)
	c.subs = make(map[string]*subscription)
	c.stash = make(map[string][]json.RawMessage)
	c.closed = false
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)

	return nil
}

func (c *rpcClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Call performs a unary request and unmarshals the result into out.
func (c *rpcClient) Call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if params == nil {
		params = []interface{}{}
	}

	id, ch, err := c.register()
	if err != nil {
		return err
	}
	defer c.unregister(id)

	if err := c.write(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return errors.New("the connection was closed")
		}
		if resp.Error != nil {
			return errors.Wrapf(resp.Error, "rpc method %s failed", method)
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	}
}

// Subscribe starts a node-side subscription and returns a handle carrying the
// notification channel.
func (c *rpcClient) Subscribe(ctx context.Context, method, unsubMethod string, params []interface{}) (*subscription, error) {
	var subID json.RawMessage
	if err := c.Call(ctx, method, params, &subID); err != nil {
		return nil, err
	}

	sub := &subscription{
		id:     normalizeSubID(subID),
		unsub:  unsubMethod,
		ch:     make(chan json.RawMessage, subscriptionSize),
		client: c,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("the connection was closed")
	}
	c.subs[sub.id] = sub
	// flush notifications that raced the registration
	for _, raw := range c.stash[sub.id] {
		sub.ch <- raw
	}
	delete(c.stash, sub.id)
	return sub, nil
}

func (c *rpcClient) register() (uint64, chan *rpcResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return 0, nil, errors.New("not connected")
	}
	c.nextID++
	id := c.nextID
	ch := make(chan *rpcResponse, 1)
	c.pending[id] = ch
	return id, ch, nil
}

func (c *rpcClient) unregister(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *rpcClient) write(req rpcRequest) error {
	bz, err := json.Marshal(req)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, bz)
}

func (c *rpcClient) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	logger := log.GetLogger().WithModule("substrate.rpc")

	for {
		_, bz, err := conn.ReadMessage()
		if err != nil {
			c.teardown()
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(bz, &resp); err != nil {
			logger.Error("discarding an unparsable rpc message", err)
			continue
		}

		switch {
		case resp.ID != nil:
			c.mu.Lock()
			ch, ok := c.pending[*resp.ID]
			c.mu.Unlock()
			if ok {
				ch <- &resp
			}
		case resp.Params.Subscription != nil:
			id := normalizeSubID(resp.Params.Subscription)
			c.mu.Lock()
			sub, ok := c.subs[id]
			if !ok {
				if len(c.stash[id]) < subscriptionSize {
					c.stash[id] = append(c.stash[id], resp.Params.Result)
				}
				c.mu.Unlock()
				continue
			}
			c.mu.Unlock()
			select {
			case sub.ch <- resp.Params.Result:
			default:
				// the consumer fell too far behind; drop the connection so
				// the monitor's reconnect path takes over
				logger.Error("dropping the connection", errors.New("subscription buffer overflow"), "subscription", id)
				conn.Close()
			}
		}
	}
}

// teardown fails all pending calls and closes all subscription channels.
func (c *rpcClient) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.conn = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.stash = nil
}

// normalizeSubID renders a subscription id, which nodes send either as a JSON
// string or as a number, in its canonical text form.
func normalizeSubID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
