package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	defaultGraphURL = "https://graph.facebook.com/v2.6"
	defaultTimeout  = 10 * time.Second

	notificationRegular = "REGULAR"
	aspectRatioDefault  = "horizontal"

	// ButtonTypePostback marks a button whose press comes back as a
	// postback event carrying the payload string.
	ButtonTypePostback = "postback"
)

var errMissingAccessToken = errors.New("messenger: access token is required")

// Profile is the platform user profile subset fetched on first contact.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Button is one pressable action on a card or button template.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// PostbackButton builds a postback button with the given label and payload.
func PostbackButton(title, payload string) Button {
	return Button{Type: ButtonTypePostback, Title: title, Payload: payload}
}

// Card is one element of a generic-template carousel.
type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Buttons  []Button `json:"buttons"`
}

// ClientConfig bundles configuration required to instantiate a Client.
type ClientConfig struct {
	AccessToken string
	GraphURL    string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client maps reply descriptions onto the platform's Graph send API. Sends
// are best effort: failures are logged here and never surfaced to callers.
type Client struct {
	accessToken string
	graphURL    string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient constructs a messenger client with validated configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, errMissingAccessToken
	}
	graphURL := cfg.GraphURL
	if graphURL == "" {
		graphURL = defaultGraphURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		accessToken: cfg.AccessToken,
		graphURL:    graphURL,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// GetUserProfile fetches first and last name for the recipient, reporting
// absence when the platform call fails.
func (c *Client) GetUserProfile(ctx context.Context, recipientID string) (Profile, bool) {
	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("fields", "first_name,last_name")
	endpoint := fmt.Sprintf("%s/%s?%s", c.graphURL, recipientID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn("profile request build failed", zap.Error(err))
		return Profile{}, false
	}
	response, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("profile fetch failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return Profile{}, false
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		c.logger.Warn("profile fetch rejected",
			zap.String("recipient_id", recipientID),
			zap.Int("status", response.StatusCode))
		return Profile{}, false
	}

	var profile Profile
	if err := json.NewDecoder(response.Body).Decode(&profile); err != nil {
		c.logger.Warn("profile decode failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return Profile{}, false
	}
	return profile, true
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, recipientID, text string) {
	c.send(ctx, recipientID, map[string]any{"text": text})
}

// SendCards sends a generic-template carousel.
func (c *Client) SendCards(ctx context.Context, recipientID string, cards []Card) {
	if cards == nil {
		cards = []Card{}
	}
	c.send(ctx, recipientID, map[string]any{
		"attachment": map[string]any{
			"type": "template",
			"payload": map[string]any{
				"template_type":      "generic",
				"image_aspect_ratio": aspectRatioDefault,
				"elements":           cards,
			},
		},
	})
}

// SendButtons sends a button template under the given text.
func (c *Client) SendButtons(ctx context.Context, recipientID, text string, buttons []Button) {
	c.send(ctx, recipientID, map[string]any{
		"attachment": map[string]any{
			"type": "template",
			"payload": map[string]any{
				"template_type": "button",
				"text":          text,
				"buttons":       buttons,
			},
		},
	})
}

func (c *Client) send(ctx context.Context, recipientID string, message any) {
	payload := map[string]any{
		"recipient":         map[string]string{"id": recipientID},
		"message":           message,
		"notification_type": notificationRegular,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("send payload marshal failed", zap.Error(err))
		return
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.graphURL, url.QueryEscape(c.accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("send request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("send failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		c.logger.Warn("send rejected",
			zap.String("recipient_id", recipientID),
			zap.Int("status", response.StatusCode))
	}
}
