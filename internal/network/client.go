// Package network provides a client for a remote vkeyboard server.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vkeyboard/internal/protocol"
)

// ErrRejected is returned when the server rejects a press
var ErrRejected = errors.New("press rejected")

// RejectedError carries the category reported by the server
type RejectedError struct {
	Category string
	Message  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Client sends key presses to a server over WebSocket
type Client struct {
	hostAddr string
	token    string
	conn     *websocket.Conn
}

// NewClient creates a client for the server at hostAddr (host:port)
func NewClient(hostAddr, token string) *Client {
	return &Client{
		hostAddr: hostAddr,
		token:    token,
	}
}

// Connect dials the server's WebSocket endpoint
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}
	log.Printf("WS Client: Connecting to %s", u.String())

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connect to %s: %w (status %d)", u.String(), err, resp.StatusCode)
		}
		return fmt.Errorf("connect to %s: %w", u.String(), err)
	}
	c.conn = conn
	return nil
}

// Press sends one press request and waits for its result. Key events
// broadcast by the server while waiting are skipped.
func (c *Client) Press(ctx context.Context, key, modifier, action string) error {
	if c.conn == nil {
		return errors.New("not connected")
	}

	id := uuid.NewString()
	msg, err := protocol.NewMessage(protocol.TypePress, id, protocol.PressPayload{
		Key:      key,
		Modifier: modifier,
		Action:   action,
	})
	if err != nil {
		return err
	}

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send press: %w", err)
	}

	c.conn.SetReadDeadline(deadline)
	for {
		var reply protocol.Message
		if err := c.conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("read result: %w", err)
		}
		if reply.Type != protocol.TypeResult || reply.ID != id {
			continue
		}

		var result protocol.ResultPayload
		if err := json.Unmarshal(reply.Payload, &result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		if result.Status != "ok" {
			return &RejectedError{Category: result.Category, Message: result.Error}
		}
		return nil
	}
}

// Close closes the connection
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
