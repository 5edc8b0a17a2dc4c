package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Carlo1911/fbc-bot/internal/bot"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	deliveryIDContextKey = "fbc_delivery_id"

	verificationMismatchBody = "Verification token mismatch"
	acknowledgementBody      = "Message Processed"
)

var (
	errMissingVerifyToken  = errors.New("verify token dependency required")
	errMissingEventHandler = errors.New("event handler dependency required")
)

// EventHandler consumes one decoded inbound event. Implementations absorb
// their own failures; the endpoint only acknowledges.
type EventHandler interface {
	HandleEvent(ctx context.Context, event bot.Event)
}

// Dependencies collects everything the webhook endpoint needs.
type Dependencies struct {
	VerifyToken string
	AppSecret   string
	Events      EventHandler
	Logger      *zap.Logger
}

// NewHTTPHandler builds the webhook router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.VerifyToken == "" {
		return nil, errMissingVerifyToken
	}
	if deps.Events == nil {
		return nil, errMissingEventHandler
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	router.Use(deliveryLogger(logger))

	handler := &httpHandler{
		verifyToken: deps.VerifyToken,
		appSecret:   deps.AppSecret,
		events:      deps.Events,
		logger:      logger,
	}

	router.GET("/", handler.handleVerify)

	webhook := router.Group("/")
	if deps.AppSecret != "" {
		webhook.Use(requireSignature(deps.AppSecret, logger))
	}
	webhook.POST("/", handler.handleWebhook)

	return router, nil
}

type httpHandler struct {
	verifyToken string
	appSecret   string
	events      EventHandler
	logger      *zap.Logger
}

// deliveryLogger tags each request with a delivery id and logs the outcome.
func deliveryLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deliveryID := uuid.NewString()
		c.Set(deliveryIDContextKey, deliveryID)
		start := time.Now()
		c.Next()
		logger.Info("request handled",
			zap.String("delivery_id", deliveryID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (h *httpHandler) handleVerify(c *gin.Context) {
	if c.Query("hub.mode") == "subscribe" && c.Query("hub.challenge") != "" {
		if c.Query("hub.verify_token") != h.verifyToken {
			c.String(http.StatusForbidden, verificationMismatchBody)
			return
		}
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	c.String(http.StatusOK, "Ok")
}

type webhookPayload struct {
	Entry []entryPayload `json:"entry"`
}

type entryPayload struct {
	Messaging []eventPayload `json:"messaging"`
}

type eventPayload struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message  *messagePayload  `json:"message"`
	Postback *postbackPayload `json:"postback"`
}

type messagePayload struct {
	Text        string            `json:"text"`
	Attachments []json.RawMessage `json:"attachments"`
}

type postbackPayload struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

func (p eventPayload) toEvent() bot.Event {
	event := bot.Event{SenderID: p.Sender.ID}
	if p.Postback != nil {
		event.Postback = &bot.Postback{
			Title:   p.Postback.Title,
			Payload: p.Postback.Payload,
		}
	}
	if p.Message != nil {
		event.Message = &bot.Message{
			Text:           p.Message.Text,
			HasAttachments: len(p.Message.Attachments) > 0,
		}
	}
	return event
}

func (h *httpHandler) handleWebhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Entry == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	for _, entry := range payload.Entry {
		for _, node := range entry.Messaging {
			h.dispatchEvent(c.Request.Context(), node.toEvent())
		}
	}

	c.String(http.StatusOK, acknowledgementBody)
}

// dispatchEvent isolates one event so a failure cannot abort its siblings.
func (h *httpHandler) dispatchEvent(ctx context.Context, event bot.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			h.logger.Error("event processing panicked",
				zap.String("sender_id", event.SenderID),
				zap.Any("panic", recovered))
		}
	}()
	h.events.HandleEvent(ctx, event)
}
