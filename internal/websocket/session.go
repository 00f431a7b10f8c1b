// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/events"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
	"github.com/tomtom215/itdash/internal/validation"
)

// CloseReasonInvalidToken is sent with close code 1008 when authentication fails.
const CloseReasonInvalidToken = "Invalid token"

// TokenDecoder resolves an access token to its principal.
type TokenDecoder interface {
	DecodeToken(token string) (string, error)
}

// RequestHandler serves one client request. A returned
// *validation.RequestValidationError is reported as an invalid format.
type RequestHandler interface {
	HandleRequest(ctx context.Context, principal string, req *events.ClientRequest) ([]events.Envelope, error)
}

// SessionHandler upgrades HTTP requests to dashboard sessions.
type SessionHandler struct {
	hub            *Hub
	tokens         TokenDecoder
	requests       RequestHandler
	cfg            config.WebSocketConfig
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewSessionHandler wires a session endpoint. allowedOrigins may contain "*".
func NewSessionHandler(hub *Hub, tokens TokenDecoder, requests RequestHandler, cfg config.WebSocketConfig, allowedOrigins []string) *SessionHandler {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = maxMessageSize
	}
	s := &SessionHandler{
		hub:            hub,
		tokens:         tokens,
		requests:       requests,
		cfg:            cfg,
		allowedOrigins: allowedOrigins,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

// checkOrigin rejects requests without an Origin header; browsers always send one.
func (s *SessionHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	if slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin) {
		return true
	}
	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// ServeHTTP runs one session from upgrade to close.
func (s *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}

	principal, err := s.tokens.DecodeToken(r.URL.Query().Get("token"))
	if err != nil {
		metrics.WSErrors.WithLabelValues("auth").Inc()
		logging.Info().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket authentication failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, CloseReasonInvalidToken),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	client := NewClient(uuid.NewString(), principal, conn, s.cfg.SendBuffer)
	if err := s.hub.Register(client); err != nil {
		logging.Error().Err(err).Str("connection_id", client.id).Msg("failed to register websocket client")
		_ = conn.Close()
		return
	}
	defer s.hub.Unregister(client.id)

	go client.writePump()

	ctx := logging.ContextWithSession(r.Context(), client.ID(), client.Principal())
	s.readLoop(ctx, client)
}

// readLoop handles inbound frames until the transport fails or the client
// is unregistered.
func (s *SessionHandler) readLoop(ctx context.Context, c *Client) {
	log := logging.Ctx(ctx)

	c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var limiter *rate.Limiter
	if s.cfg.RequestRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RequestRate), max(s.cfg.RequestBurst, 1))
	}

	for {
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		if msgType != websocket.TextMessage {
			s.replyInvalidFormat(c, validation.NewFieldError("body", "type", "expected a text frame"))
			continue
		}
		if limiter != nil && !limiter.Allow() {
			metrics.WSErrors.WithLabelValues("rate_limited").Inc()
			s.replyError(c, events.ErrorReply{Error: events.ErrorRequestFailed, Detail: "too many requests"})
			continue
		}

		s.handleFrame(ctx, c, raw)
	}
}

// handleFrame decodes and dispatches one request, replying only to c.
func (s *SessionHandler) handleFrame(ctx context.Context, c *Client, raw []byte) {
	req, verr := events.DecodeClientRequest(raw)
	if verr != nil {
		s.replyInvalidFormat(c, verr)
		return
	}

	envelopes, err := s.requests.HandleRequest(ctx, c.Principal(), req)
	if err != nil {
		var reqErr *validation.RequestValidationError
		if errors.As(err, &reqErr) {
			s.replyInvalidFormat(c, reqErr)
			return
		}
		metrics.WSErrors.WithLabelValues("request_failed").Inc()
		logging.Ctx(ctx).Error().Err(err).Str("request", string(req.Event)).Msg("client request failed")
		s.replyError(c, events.ErrorReply{
			Error:  events.ErrorRequestFailed,
			Detail: fmt.Sprintf("%s could not be completed", req.Event),
		})
		return
	}

	for _, env := range envelopes {
		payload, err := env.Marshal()
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("failed to marshal reply")
			continue
		}
		if err := s.hub.SendTo(c.id, payload); err != nil {
			return
		}
	}
}

func (s *SessionHandler) replyInvalidFormat(c *Client, verr *validation.RequestValidationError) {
	metrics.WSErrors.WithLabelValues("invalid_format").Inc()
	s.replyError(c, events.ErrorReply{Error: events.ErrorInvalidFormat, Detail: verr.Details()})
}

func (s *SessionHandler) replyError(c *Client, reply events.ErrorReply) {
	payload, err := reply.Marshal()
	if err != nil {
		return
	}
	_ = s.hub.SendTo(c.id, payload)
}
