package bridgeclient

import (
	"context"
	"errors"
	"strings"

	"github.com/coder/websocket"

	"sumobridge/cli/internal/protocol"
)

// WatchLaunches streams launch events from the bridge until ctx is done.
func (c *Client) WatchLaunches(ctx context.Context, fn func(protocol.Message)) error {
	conn, _, err := websocket.Dial(ctx, wsURL(c.baseURL)+"/ws", nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		msg, err := protocol.DecodeEvent(raw)
		if err != nil {
			c.log.Debug("ignoring bridge frame", "err", err)
			continue
		}
		if fn != nil {
			fn(msg)
		}
	}
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
