package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/gokatarajesh/trivia-quiz/internal/server"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
	httperrors "github.com/gokatarajesh/trivia-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/trivia-quiz/pkg/http/ws"
)

// messageActions maps client message types to actions.
var messageActions = map[string]string{
	ws.TypeStart:        ActionStart,
	ws.TypeSelectAnswer: ActionSelect,
	ws.TypeSubmitAnswer: ActionSubmit,
	ws.TypeNextQuestion: ActionNext,
	ws.TypePlayAgain:    ActionPlayAgain,
	ws.TypeRetry:        ActionRetry,
	ws.TypeRetryToken:   ActionRetryToken,
}

// WebSocket upgrades the connection and pushes a session_update on every
// change of the session.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.lookup(w, r, false)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "no active session")
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	logger := h.logger.With().Str("session_id", id.String()).Logger()
	wsConn := ws.NewConnection(conn, logger)
	h.hub.Register(id, wsConn)

	unsubscribe := ctrl.Subscribe(func(v session.View) {
		h.sendView(id, v)
	})
	h.sendView(id, ctrl.View())

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), id, ctrl, msg)
	})

	unsubscribe()
	h.hub.Unregister(id, wsConn)
}

func (h *Handlers) handleMessage(ctx context.Context, id uuid.UUID, ctrl *session.Controller, msg ws.Message) error {
	if msg.Type == ws.TypePing {
		return h.hub.Send(id, ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	}

	action, ok := messageActions[msg.Type]
	if !ok {
		return h.sendError(id, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type), "")
	}

	in, err := decodeInput(msg)
	if err != nil {
		return h.sendError(id, msg.RequestID, httperrors.ErrCodeInvalidPayload, fmt.Sprintf("Invalid %s payload", msg.Type), "")
	}

	if err := dispatch(ctx, ctrl, action, in); err != nil {
		_, code, field := classify(err)
		return h.sendError(id, msg.RequestID, code, err.Error(), field)
	}
	return nil
}

func decodeInput(msg ws.Message) (ActionInput, error) {
	if len(msg.Payload) == 0 {
		return ActionInput{}, nil
	}
	switch msg.Type {
	case ws.TypeStart:
		var p ws.StartPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return ActionInput{}, err
		}
		return ActionInput{FirstName: p.FirstName, Category: p.Category, Difficulty: p.Difficulty}, nil
	case ws.TypeSelectAnswer, ws.TypeSubmitAnswer:
		var p ws.AnswerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return ActionInput{}, err
		}
		return ActionInput{Answer: p.Answer}, nil
	default:
		return ActionInput{}, nil
	}
}

func (h *Handlers) sendView(id uuid.UUID, v session.View) {
	msg, err := ws.NewMessage(ws.TypeSessionUpdate, v)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode session update")
		return
	}
	if err := h.hub.Send(id, msg); err != nil {
		h.logger.Debug().Err(err).Str("session_id", id.String()).Msg("session update dropped")
	}
}

func (h *Handlers) sendError(id uuid.UUID, requestID, code, message, field string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message, Field: field})
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return h.hub.Send(id, msg)
}
