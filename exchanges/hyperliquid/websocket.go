package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/perpdesk/perpdesk/types"
)

const (
	websocketChannelAllMids              = "allMids"
	websocketChannelSubscriptionResponse = "subscriptionResponse"
	websocketChannelError                = "error"

	websocketHandshakeTimeout = 10 * time.Second
	websocketReconnectDelay   = 5 * time.Second
)

type wsSubscriptionRequest struct {
	Method       string                `json:"method"`
	Subscription wsSubscriptionPayload `json:"subscription"`
}

type wsSubscriptionPayload struct {
	Type string `json:"type"`
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wsAllMidsData struct {
	Mids map[string]types.Number `json:"mids"`
}

// MidsStream maintains a websocket subscription to the allMids channel and
// caches the latest mid price per coin. It reconnects on failure until the
// supplied context is cancelled.
type MidsStream struct {
	url    string
	logger zerolog.Logger

	mu   sync.RWMutex
	mids map[string]float64

	wg sync.WaitGroup
}

// NewMidsStream constructs a stream. An empty url selects the mainnet
// websocket endpoint.
func NewMidsStream(url string, logger zerolog.Logger) *MidsStream {
	if url == "" {
		url = MainnetWSURL
	}
	return &MidsStream{
		url:    url,
		logger: logger.With().Str("component", "hyperliquid_ws").Logger(),
		mids:   make(map[string]float64),
	}
}

// Start launches the read loop. It returns immediately.
func (s *MidsStream) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			if err := s.runOnce(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("websocket session ended")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(websocketReconnectDelay):
			}
		}
	}()
}

// Wait blocks until the read loop has exited.
func (s *MidsStream) Wait() { s.wg.Wait() }

// Mid returns the last observed mid price for coin.
func (s *MidsStream) Mid(coin string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mid, ok := s.mids[strings.ToUpper(coin)]
	return mid, ok
}

func (s *MidsStream) runOnce(ctx context.Context) error {
	dialer := gws.Dialer{
		HandshakeTimeout: websocketHandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	conn, _, err := dialer.DialContext(ctx, s.url, http.Header{})
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := wsSubscriptionRequest{
		Method:       "subscribe",
		Subscription: wsSubscriptionPayload{Type: websocketChannelAllMids},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	closeOnCancel := make(chan struct{})
	defer close(closeOnCancel)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-closeOnCancel:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := s.handleMessage(raw); err != nil {
			s.logger.Warn().Err(err).Msg("drop websocket message")
		}
	}
}

func (s *MidsStream) handleMessage(raw []byte) error {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	switch msg.Channel {
	case websocketChannelAllMids:
		var data wsAllMidsData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return err
		}
		s.mu.Lock()
		for coin, mid := range data.Mids {
			s.mids[strings.ToUpper(coin)] = mid.Float64()
		}
		s.mu.Unlock()
	case websocketChannelSubscriptionResponse:
		s.logger.Debug().Msg("subscription acknowledged")
	case websocketChannelError:
		s.logger.Warn().RawJSON("data", msg.Data).Msg("websocket error message")
	}
	return nil
}
