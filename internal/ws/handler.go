package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/apierr"
	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/lobby"
	"github.com/DoyleJ11/cs-match-backend/internal/service"
	"github.com/DoyleJ11/cs-match-backend/internal/types"
	apitypes "github.com/DoyleJ11/cs-match-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 3 * time.Second
)

func Handler(svc *service.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("match")
		if matchID == "" {
			http.Error(w, "missing match", http.StatusBadRequest)
			return
		}

		lb, err := svc.Lobby(r.Context(), matchID)
		if err != nil {
			status, _, ok := apierr.Classify(err)
			if !ok {
				log.Error("open match lobby", zap.String("match_id", matchID), zap.Error(err))
				http.Error(w, apierr.InternalMessage, status)
				return
			}
			http.Error(w, err.Error(), status)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := uuid.NewString()
		clog := log.With(zap.String("match_id", matchID), zap.String("client_id", clientID))

		select {
		case lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}:
		case <-lb.Done():
			conn.Close(websocket.StatusGoingAway, "match closed")
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
			case <-lb.Done():
			}
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case snap, ok := <-out:
					if !ok {
						// Lobby closed or dropped us as too slow.
						conn.Close(websocket.StatusGoingAway, "match closed")
						return
					}
					view := svc.View(writeCtx, snap.Match)
					send(writeCtx, conn, types.ServerMessage{Type: types.MsgSnapshot, Version: snap.Version, Match: &view})
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				send(r.Context(), conn, errorMessage(fmt.Errorf("%w: bad json: %v", engine.ErrValidation, err)))
				continue
			}
			reply := handleClient(r.Context(), svc, matchID, cm)
			if reply.Error != nil && reply.Error.Code == apierr.CodeInternal {
				clog.Error("websocket command failed", zap.String("type", cm.Type))
			}
			send(r.Context(), conn, reply)
		}
	}
}

func handleClient(ctx context.Context, svc *service.Service, matchID string, cm types.ClientMessage) types.ServerMessage {
	req := apitypes.VetoRequest{InteractionUserID: cm.DiscordUserID, MapTag: cm.MapTag}
	switch cm.Type {
	case types.MsgBanMap:
		res, err := svc.Ban(ctx, matchID, req)
		if err != nil {
			return errorMessage(err)
		}
		return types.ServerMessage{Type: types.MsgBanResult, Ban: &res}
	case types.MsgPickMap:
		res, err := svc.Pick(ctx, matchID, req)
		if err != nil {
			return errorMessage(err)
		}
		return types.ServerMessage{Type: types.MsgPickResult, Pick: &res}
	case types.MsgPing:
		return types.ServerMessage{Type: types.MsgPong}
	default:
		return errorMessage(fmt.Errorf("%w: unknown message type %q", engine.ErrValidation, cm.Type))
	}
}

func send(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

// errorMessage carries the same code the REST API would answer with.
func errorMessage(err error) types.ServerMessage {
	_, code, ok := apierr.Classify(err)
	msg := err.Error()
	if !ok {
		msg = apierr.InternalMessage
	}
	return types.ServerMessage{Type: types.MsgError, Error: &apitypes.ErrorResponse{Code: code, Message: msg}}
}
