package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultGatewayURL = "https://fcm.googleapis.com"

// FailureReason classifies a delivery failure.
type FailureReason string

const (
	ReasonNoAuth            FailureReason = "no_auth"
	ReasonTransport         FailureReason = "transport"
	ReasonUnauthenticated   FailureReason = "unauthenticated"
	ReasonUnregistered      FailureReason = "unregistered"
	ReasonInvalidArgument   FailureReason = "invalid_argument"
	ReasonPermissionDenied  FailureReason = "permission_denied"
	ReasonMalformedResponse FailureReason = "malformed_response"
	ReasonUnknown           FailureReason = "unknown"
)

// DeliveryError is a classified push delivery failure.
type DeliveryError struct {
	Reason FailureReason
	Status int
	msg    string
}

func (e *DeliveryError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("push delivery failed (%s, http %d): %s", e.Reason, e.Status, e.msg)
	}
	return fmt.Sprintf("push delivery failed (%s): %s", e.Reason, e.msg)
}

func deliveryErr(reason FailureReason, status int, format string, args ...interface{}) *DeliveryError {
	return &DeliveryError{Reason: reason, Status: status, msg: fmt.Sprintf(format, args...)}
}

// TokenSource supplies bearer tokens for the gateway and lets the client
// force regeneration after an authentication rejection.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	ClearCache()
}

// Message is one composed push message bound for a single device token.
// Title and Body travel inside the data map: the envelope is data-only so
// the client-side background handler is the only layer that ever renders
// the visible notification.
type Message struct {
	Title       string
	Body        string
	Data        map[string]string
	TTL         time.Duration
	CollapseKey string
	Link        string
}

// Client speaks the push gateway's HTTP v1 send protocol.
type Client struct {
	projectID  string
	gatewayURL string
	httpClient *http.Client
	creds      TokenSource

	// invalidateToken removes the device registry row holding a push token
	// the gateway reported as unregistered. Best effort.
	invalidateToken func(pushToken string) error
}

// NewClient builds a gateway client. invalidateToken may be nil, in which
// case unregistered tokens are only logged.
func NewClient(projectID string, creds TokenSource, invalidateToken func(pushToken string) error) *Client {
	return &Client{
		projectID:  projectID,
		gatewayURL: defaultGatewayURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
		},
		creds:           creds,
		invalidateToken: invalidateToken,
	}
}

// envelope is the gateway's v1 send request body.
type envelope struct {
	Message gatewayMessage `json:"message"`
}

type gatewayMessage struct {
	Token   string            `json:"token"`
	Data    map[string]string `json:"data"`
	Android *androidConfig    `json:"android,omitempty"`
	APNS    *apnsConfig       `json:"apns,omitempty"`
	Webpush *webpushConfig    `json:"webpush,omitempty"`
}

type androidConfig struct {
	TTL         string `json:"ttl,omitempty"`
	CollapseKey string `json:"collapse_key,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

type apnsConfig struct {
	Headers map[string]string `json:"headers,omitempty"`
	Payload apnsPayload       `json:"payload"`
}

type apnsPayload struct {
	Aps apsBlock `json:"aps"`
}

type apsBlock struct {
	ContentAvailable int `json:"content-available"`
}

type webpushConfig struct {
	Headers    map[string]string  `json:"headers,omitempty"`
	FCMOptions *webpushFCMOptions `json:"fcm_options,omitempty"`
}

type webpushFCMOptions struct {
	Link string `json:"link,omitempty"`
}

// gatewayError is the machine-readable error block embedded in non-2xx
// (and occasionally 2xx) gateway responses.
type gatewayError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Send delivers one message to one device token. Authentication rejections
// trigger a cache flush and exactly one retry; an unregistered token is
// removed from the registry as a side effect.
func (c *Client) Send(ctx context.Context, pushToken string, msg Message) error {
	return c.send(ctx, pushToken, msg, false)
}

func (c *Client) send(ctx context.Context, pushToken string, msg Message, retried bool) error {
	bearer, err := c.creds.AccessToken(ctx)
	if err != nil {
		return deliveryErr(ReasonNoAuth, 0, "no gateway credentials: %v", err)
	}

	body, err := json.Marshal(c.buildEnvelope(pushToken, msg))
	if err != nil {
		return deliveryErr(ReasonInvalidArgument, 0, "encode envelope: %v", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.gatewayURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return deliveryErr(ReasonTransport, 0, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return deliveryErr(ReasonTransport, 0, "gateway unreachable for token %s: %v", Mask(pushToken), err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return c.classifySuccess(resp.StatusCode, respBody, pushToken)
	}
	return c.classifyFailure(ctx, resp.StatusCode, respBody, pushToken, msg, retried)
}

func (c *Client) buildEnvelope(pushToken string, msg Message) envelope {
	data := make(map[string]string, len(msg.Data)+2)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["title"] = msg.Title
	data["body"] = msg.Body

	ttlSeconds := int64(msg.TTL / time.Second)

	m := gatewayMessage{
		Token: pushToken,
		Data:  data,
		Android: &androidConfig{
			TTL:         strconv.FormatInt(ttlSeconds, 10) + "s",
			CollapseKey: msg.CollapseKey,
			Priority:    "high",
		},
		APNS: &apnsConfig{
			Headers: map[string]string{
				"apns-collapse-id": msg.CollapseKey,
			},
			Payload: apnsPayload{Aps: apsBlock{ContentAvailable: 1}},
		},
		Webpush: &webpushConfig{
			Headers: map[string]string{
				"TTL":     strconv.FormatInt(ttlSeconds, 10),
				"Urgency": "normal",
			},
		},
	}
	if msg.Link != "" {
		m.Webpush.FCMOptions = &webpushFCMOptions{Link: msg.Link}
	}
	return envelope{Message: m}
}

// classifySuccess validates a 2xx response: the v1 protocol names the
// created message in a "name" field; a 2xx without it, or one carrying an
// embedded error anyway, is treated as malformed.
func (c *Client) classifySuccess(status int, body []byte, pushToken string) error {
	var parsed struct {
		Name  string          `json:"name"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Name == "" || len(parsed.Error) > 0 {
		log.Printf("⚠️  Gateway returned %d without success marker for token %s: %s", status, Mask(pushToken), truncateBody(body))
		return deliveryErr(ReasonMalformedResponse, status, "missing success marker")
	}
	return nil
}

func (c *Client) classifyFailure(ctx context.Context, status int, body []byte, pushToken string, msg Message, retried bool) error {
	var parsed gatewayError
	_ = json.Unmarshal(body, &parsed)
	errStatus := parsed.Error.Status

	// Some gateway deployments answer a plain 404 with a textual marker
	// instead of the structured UNREGISTERED error.
	if errStatus == "" && status == http.StatusNotFound && strings.Contains(string(body), "NOT_FOUND") {
		errStatus = "NOT_FOUND"
	}

	switch errStatus {
	case "UNAUTHENTICATED":
		c.creds.ClearCache()
		if !retried {
			log.Printf("🔁 Gateway rejected credentials, retrying once with a fresh token (device %s)", Mask(pushToken))
			return c.send(ctx, pushToken, msg, true)
		}
		return deliveryErr(ReasonUnauthenticated, status, "authentication rejected after retry")
	case "UNREGISTERED", "NOT_FOUND":
		if c.invalidateToken != nil {
			if err := c.invalidateToken(pushToken); err != nil {
				log.Printf("⚠️  Failed to remove unregistered device %s: %v", Mask(pushToken), err)
			} else {
				log.Printf("🧹 Removed unregistered device %s", Mask(pushToken))
			}
		}
		return deliveryErr(ReasonUnregistered, status, "token no longer registered")
	case "INVALID_ARGUMENT":
		return deliveryErr(ReasonInvalidArgument, status, "gateway rejected message: %s", parsed.Error.Message)
	case "PERMISSION_DENIED":
		return deliveryErr(ReasonPermissionDenied, status, "sender not permitted: %s", parsed.Error.Message)
	default:
		return deliveryErr(ReasonUnknown, status, "unexpected gateway response: %s", truncateBody(body))
	}
}

// Mask hides all but a short prefix and suffix of a secret for logging.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func truncateBody(body []byte) string {
	const limit = 200
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
