package broker

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Ticker maintains a streaming last-price cache over the Kite WebSocket
// feed. Packets are consumed in LTP mode (8 bytes per instrument: token and
// price in paise). The connection reconnects with backoff until the context
// is cancelled.
type Ticker struct {
	apiKey      string
	accessToken string
	log         zerolog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	subscribed map[uint32]struct{}
	prices     map[uint32]float64
	updatedAt  map[uint32]time.Time
}

// NewTicker creates a ticker; call Run to start streaming.
func NewTicker(apiKey, accessToken string, log zerolog.Logger) *Ticker {
	return &Ticker{
		apiKey:      apiKey,
		accessToken: accessToken,
		log:         log,
		subscribed:  make(map[uint32]struct{}),
		prices:      make(map[uint32]float64),
		updatedAt:   make(map[uint32]time.Time),
	}
}

// Run connects and consumes the feed until ctx is cancelled, reconnecting
// with exponential backoff on failure.
func (t *Ticker) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := t.stream(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Warn().Err(err).Dur("backoff", backoff).Msg("ticker stream failed, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (t *Ticker) stream(ctx context.Context) error {
	u := fmt.Sprintf("wss://ws.kite.trade?api_key=%s&access_token=%s", t.apiKey, t.accessToken)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("ticker dial: %w", err)
	}
	defer conn.Close()

	t.mu.Lock()
	t.conn = conn
	tokens := make([]uint32, 0, len(t.subscribed))
	for tok := range t.subscribed {
		tokens = append(tokens, tok)
	}
	t.mu.Unlock()

	if len(tokens) > 0 {
		if err := sendSubscribe(conn, tokens); err != nil {
			return err
		}
	}
	t.log.Info().Int("tokens", len(tokens)).Msg("ticker connected")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			t.conn = nil
			t.mu.Unlock()
			return fmt.Errorf("ticker read: %w", err)
		}
		if msgType != websocket.BinaryMessage || len(data) < 2 {
			continue // text frames carry order postbacks, not quotes
		}
		t.parseBinary(data)
	}
}

// parseBinary unpacks a Kite binary frame: a 2-byte packet count, then for
// each packet a 2-byte length and the payload. In LTP mode the payload is a
// 4-byte token and a 4-byte price in paise, both big endian.
func (t *Ticker) parseBinary(data []byte) {
	count := int(binary.BigEndian.Uint16(data[0:2]))
	offset := 2
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < count; i++ {
		if offset+2 > len(data) {
			return
		}
		length := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if offset+length > len(data) || length < 8 {
			return
		}
		token := binary.BigEndian.Uint32(data[offset : offset+4])
		paise := binary.BigEndian.Uint32(data[offset+4 : offset+8])
		t.prices[token] = float64(paise) / 100
		t.updatedAt[token] = time.Now()
		offset += length
	}
}

func sendSubscribe(conn *websocket.Conn, tokens []uint32) error {
	sub := map[string]interface{}{"a": "subscribe", "v": tokens}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("ticker subscribe: %w", err)
	}
	mode := map[string]interface{}{"a": "mode", "v": []interface{}{"ltp", tokens}}
	if err := conn.WriteJSON(mode); err != nil {
		return fmt.Errorf("ticker set mode: %w", err)
	}
	return nil
}

// Subscribe adds an instrument to the stream. Safe to call before Run; the
// token set is replayed after every reconnect.
func (t *Ticker) Subscribe(token uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subscribed[token]; ok {
		return
	}
	t.subscribed[token] = struct{}{}
	if t.conn != nil {
		if err := sendSubscribe(t.conn, []uint32{token}); err != nil {
			t.log.Warn().Uint32("token", token).Err(err).Msg("ticker subscribe failed")
		}
	}
}

// LastPrice returns the cached streaming price. Quotes older than a minute
// are treated as stale and rejected so the caller falls back to REST.
func (t *Ticker) LastPrice(token uint32) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	price, ok := t.prices[token]
	if !ok || time.Since(t.updatedAt[token]) > time.Minute {
		return 0, false
	}
	return price, true
}
