package tracker

import (
	"fmt"

	"github.com/yegors/handoff-board/internal/websocket"
	"github.com/yegors/handoff-board/pkg/logger"
)

// WebSocketHandler handles viewer connections and incoming viewer messages
type WebSocketHandler struct {
	service *Service
	logger  *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(service *Service, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  log.Named("tracker-ws-handler"),
	}
}

// HandleConnect replays the current lists, the region boundaries and the annotations to a new
// viewer only
func (h *WebSocketHandler) HandleConnect(client *websocket.Client) {
	snap := h.service.Snapshot()

	messages := []*websocket.Message{
		inboundMessage(snap),
		outboundMessage(snap),
	}
	if b := h.service.Boundaries(); b != nil {
		messages = append(messages, &websocket.Message{
			Type: websocket.MessageTypeBoundaries,
			Data: map[string]any{"regions": b},
		})
	}
	messages = append(messages, h.service.annotationsMessage())

	for _, m := range messages {
		if !client.SendMessage(m) {
			h.logger.Warn("Failed to replay state to new client",
				logger.String("type", m.Type),
				logger.String("client", client.RemoteAddr()))
			return
		}
	}
}

// HandleMessage handles incoming WebSocket messages
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case websocket.MessageTypeUpdateField:
		return h.handleUpdateField(data)
	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return nil
	}
}

// handleUpdateField merges an {id, field, value} edit
func (h *WebSocketHandler) handleUpdateField(data map[string]any) error {
	id, err := stringField(data, "id")
	if err != nil {
		return err
	}
	field, err := stringField(data, "field")
	if err != nil {
		return err
	}
	return h.service.UpdateAnnotation(id, field, data["value"])
}

// stringField reads a string, accepting JSON numbers since some viewers send the aircraft id as
// a number
func stringField(data map[string]any, key string) (string, error) {
	switch v := data[key].(type) {
	case string:
		return v, nil
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	case nil:
		return "", fmt.Errorf("%w: missing %s", ErrInvalidAnnotation, key)
	default:
		return "", fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidAnnotation, key, v)
	}
}

func inboundMessage(snap *Snapshot) *websocket.Message {
	return listMessage(websocket.MessageTypeUpdateInbound, snap, snap.Inbound)
}

func outboundMessage(snap *Snapshot) *websocket.Message {
	return listMessage(websocket.MessageTypeUpdateOutbound, snap, snap.Outbound)
}

func listMessage(messageType string, snap *Snapshot, tracks any) *websocket.Message {
	return &websocket.Message{
		Type: messageType,
		Data: map[string]any{
			"cycle":        snap.Cycle,
			"generated_at": snap.GeneratedAt,
			"tracks":       tracks,
		},
	}
}

func (s *Service) annotationsMessage() *websocket.Message {
	return &websocket.Message{
		Type: websocket.MessageTypeUserInputs,
		Data: map[string]any{"annotations": s.annotations.Snapshot()},
	}
}
