package detectionHandler

import (
	"BoxDetector/internal/api/detection"
	contextPkg "BoxDetector/pkg/context"
	"BoxDetector/pkg/handlerUtil"
	"BoxDetector/pkg/log"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
)

const maxReadTimeout = 60 * time.Second

// handleStreamWebSocket answers every frame on the connection in order. Text
// messages carry a StreamRequest, binary messages carry raw image bytes.
func (h *DetectionHandler) handleStreamWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(contextPkg.RequestIDHeader).(string)
	baseCtx := contextPkg.WithRequestID(context.Background(), requestID)

	h.log.WithField("request_id", requestID).Info("Stream WebSocket client connected")
	defer h.log.WithField("request_id", requestID).Info("Stream WebSocket client disconnected")

	c.SetReadLimit(int64(h.utils.BodyLimit()))

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("Stream WebSocket error: %v", err)
			}
			break
		}

		var reply interface{}
		switch messageType {
		case websocket.TextMessage:
			reply = h.predictTextFrame(baseCtx, message)
		case websocket.BinaryMessage:
			reply = h.predictBinaryFrame(baseCtx, message)
		default:
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(reply); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}

		if err := c.SetWriteDeadline(time.Time{}); err != nil {
			h.log.Errorf("Error resetting write deadline: %v", err)
			break
		}
	}
}

func (h *DetectionHandler) predictTextFrame(ctx context.Context, message []byte) interface{} {
	var req detection.StreamRequest
	if err := jsoniter.Unmarshal(message, &req); err != nil {
		return validationReply(err)
	}
	if err := h.validator.Struct(req); err != nil {
		return validationReply(err)
	}

	c, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result, err := h.detectionService.PredictFrame(c, req.ImageBase64)
	return h.frameReply(ctx, result, err)
}

func (h *DetectionHandler) predictBinaryFrame(ctx context.Context, message []byte) interface{} {
	c, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result, err := h.detectionService.PredictFrameBytes(c, message)
	return h.frameReply(ctx, result, err)
}

func (h *DetectionHandler) frameReply(ctx context.Context, result *detection.PredictResponse, err error) interface{} {
	if err == nil {
		return result
	}

	if errors.Is(err, context.DeadlineExceeded) {
		_, body := handlerUtil.TimeoutBody()
		return body
	}

	status, body := handlerUtil.Body(err)
	if status >= fiber.StatusInternalServerError {
		body.TraceID = log.ErrorWithTraceID(log.Fields{
			log.RequestIDKey: contextPkg.GetRequestID(ctx),
			"error":          err.Error(),
			"code":           status,
		}, "Error processing stream frame")
	}
	return body
}

func validationReply(err error) handlerUtil.ErrorResponse {
	return handlerUtil.ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	}
}
