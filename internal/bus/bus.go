// Package bus connects the assistant to a websocket hub so remote front-ends
// can submit commands and receive replies.
package bus

import (
	"encoding/json"
	"net/url"
	"time"

	log "log/slog"

	ws "github.com/gorilla/websocket"
)

// Message is one bus frame.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Bus is a reconnecting websocket client.
type Bus struct {
	conn      *ws.Conn
	url       string
	reconnect time.Duration
}

// Dial connects to the hub at wsURL.
func Dial(wsURL string, reconnect time.Duration) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	if reconnect <= 0 {
		reconnect = 3 * time.Second
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", wsURL)
	return &Bus{conn: conn, url: u.String(), reconnect: reconnect}, nil
}

// Run reads messages forever, feeds each content line to handle, and writes
// the reply back to the sender. A lost connection is redialed with a fixed
// backoff; frames that fail to decode are skipped.
func (b *Bus) Run(handle func(string) string) {
	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			if isClosed(err) {
				log.Warn("Bus connection closed, reconnecting", "url", b.url)
			} else {
				log.Error("Bus read failed, reconnecting", "err", err)
			}
			b.redial()
			continue
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Error("Bad bus frame", "err", err)
			continue
		}

		reply := handle(msg.Content)
		if reply == "" {
			continue
		}

		out := &Message{
			From:    "lyra",
			To:      msg.From,
			Kind:    "reply",
			Content: reply,
		}
		if err := b.write(out); err != nil {
			log.Error("Bus write failed", "err", err)
		}
	}
}

func (b *Bus) write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.conn.WriteMessage(ws.TextMessage, data)
}

func (b *Bus) redial() {
	for {
		conn, _, err := ws.DefaultDialer.Dial(b.url, nil)
		if err == nil {
			b.conn = conn
			log.Info("Reconnected to bus", "url", b.url)
			return
		}
		time.Sleep(b.reconnect)
	}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure) || ws.IsUnexpectedCloseError(err)
}
