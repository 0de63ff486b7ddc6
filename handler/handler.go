package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"vehicle-bot/internal/domain"
	"vehicle-bot/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type MessageRouter interface {
	Handle(ctx context.Context, in domain.InboundMessage) (usecase.Reply, error)
}

type Handler struct {
	router MessageRouter
}

type messageRequest struct {
	ConversationID string `json:"conversationId"`
	ParticipantID  string `json:"participantId"`
	Text           string `json:"text"`
}

type messageResponse struct {
	Reply          string `json:"reply"`
	State          string `json:"state"`
	ConversationID string `json:"conversationId"`
	ParticipantID  string `json:"participantId"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(router MessageRouter) (*Handler, error) {
	if router == nil {
		return nil, errors.New("handler: router must not be nil")
	}
	return &Handler{router: router}, nil
}

// Handle serves POST /messages from API Gateway. Usecase failures are mapped
// to HTTP statuses; the returned error is always nil so Lambda does not retry.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := slog.With("correlation_id", correlationID)

	var req messageRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		logger.Warn("invalid request body", "err", err)
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{
			Error:  string(usecase.ErrorInvalidInput),
			Reason: "invalid_json",
		}), nil
	}

	in := domain.InboundMessage{
		ConversationID: req.ConversationID,
		ParticipantID:  req.ParticipantID,
		Text:           req.Text,
	}
	reply, err := h.router.Handle(ctx, in)
	if err != nil {
		status, body := mapError(err)
		logger.Error("message handling failed", "status", status, "reason", body.Reason, "err", err)
		return jsonResponse(status, correlationID, body), nil
	}

	key := in.Key()
	logger.Info("message handled", "participant", key.String(), "state", reply.State.StateName())
	return jsonResponse(http.StatusOK, correlationID, messageResponse{
		Reply:          reply.Text,
		State:          reply.State.StateName(),
		ConversationID: key.ConversationID,
		ParticipantID:  key.ParticipantID,
	}), nil
}

func mapError(err error) (int, errorResponse) {
	var usecaseErr *usecase.Error
	if !errors.As(err, &usecaseErr) {
		return http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}
	}
	status := http.StatusInternalServerError
	if usecaseErr.Code == usecase.ErrorInvalidInput {
		status = http.StatusBadRequest
	}
	return status, errorResponse{Error: string(usecaseErr.Code), Reason: usecaseErr.Reason}
}

func jsonResponse(status int, correlationID string, body any) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(payload),
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
