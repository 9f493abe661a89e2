package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// SendAndRecv opens a short-lived connection to a command server, sends
// one request, and waits for the matching response. The request gains a
// "_send" timestamp and the response a "_received" one, mirroring what
// front-end clients expect.
func SendAndRecv(url string, req map[string]any) (map[string]any, error) {
	req["_send"] = epochSeconds(time.Now())

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	defer conn.Close()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	resp := map[string]any{}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	resp["_received"] = epochSeconds(time.Now())
	return resp, nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
