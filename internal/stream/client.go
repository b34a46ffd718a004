// Package stream consumes the live channel of a running sysmon server.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kazuninishiki/SysMonServer/internal/config"
	"github.com/kazuninishiki/SysMonServer/internal/model"
)

// ErrNotConnected is returned by SetInterval while no connection is up.
var ErrNotConnected = errors.New("stream: not connected")

// Client dials the live channel, reconnecting after a fixed delay.
type Client struct {
	url    string
	delay  time.Duration
	logger *slog.Logger
	dialer *websocket.Dialer

	requested atomic.Int64
	acked     atomic.Int64

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(cfg config.TopConfig, logger *slog.Logger) *Client {
	c := &Client{
		url:    cfg.URL,
		delay:  cfg.ReconnectDelay,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
	if c.delay <= 0 {
		c.delay = config.DefaultTop().ReconnectDelay
	}
	c.requested.Store(int64(cfg.IntervalMs))
	return c
}

// Interval is the last interval the server acknowledged, or 0.
func (c *Client) Interval() int { return int(c.acked.Load()) }

// SetInterval asks the server to change its cadence. The request is replayed
// after a reconnect.
func (c *Client) SetInterval(ms int) error {
	c.requested.Store(int64(ms))
	return c.send(model.Message{Type: model.MessageUpdateInterval, IntervalMs: ms})
}

func (c *Client) send(msg model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// Stream returns a channel that receives snapshots until ctx is done.
func (c *Client) Stream(ctx context.Context) <-chan model.Snapshot {
	ch := make(chan model.Snapshot)
	go func() {
		defer close(ch)
		for {
			err := c.session(ctx, ch)
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("live channel lost, reconnecting", "url", c.url, "error", err, "delay", c.delay)
			t := time.NewTimer(c.delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}()
	return ch
}

// session runs one connection until it fails or ctx ends.
func (c *Client) session(ctx context.Context, ch chan<- model.Snapshot) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.logger.Info("live channel connected", "url", c.url)
	if ms := int(c.requested.Load()); ms > 0 {
		if err := c.send(model.Message{Type: model.MessageUpdateInterval, IntervalMs: ms}); err != nil {
			return err
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var msg model.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("ignoring malformed frame", "error", err)
			continue
		}
		switch msg.Type {
		case model.MessageSystemStats:
			if msg.Data == nil {
				continue
			}
			select {
			case ch <- *msg.Data:
			case <-ctx.Done():
				return ctx.Err()
			}
		case model.MessageIntervalUpdated:
			c.acked.Store(int64(msg.IntervalMs))
		}
	}
}
