package fcm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	token   string
	err     error
	cleared int
}

func (f *fakeCreds) AccessToken(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f *fakeCreds) ClearCache() {
	f.cleared++
	f.token = "fresh-" + f.token
}

func testMessage() Message {
	return Message{
		Title:       "Ticket #42 updated",
		Body:        "Alice updated the ticket",
		Data:        map[string]string{"ticket_id": "42", "tag": "ticket-42", "url": "https://desk.example.com/t/42"},
		TTL:         600 * time.Second,
		CollapseKey: "ticket-42",
		Link:        "https://desk.example.com/t/42",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, invalidate func(string) error) (*Client, *fakeCreds) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds := &fakeCreds{token: "bearer-1"}
	client := NewClient("demo-project", creds, invalidate)
	client.gatewayURL = server.URL
	return client, creds
}

func TestSend_Delivered(t *testing.T) {
	var got envelope
	var authHeader string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/projects/demo-project/messages:send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"name":"projects/demo-project/messages/123"}`)
	}, nil)

	err := client.Send(context.Background(), "push-token-1", testMessage())
	require.NoError(t, err)

	assert.Equal(t, "Bearer bearer-1", authHeader)
	assert.Equal(t, "push-token-1", got.Message.Token)

	// Data-only payload: title and body travel in the data map, there is
	// no provider-rendered notification block.
	assert.Equal(t, "Ticket #42 updated", got.Message.Data["title"])
	assert.Equal(t, "Alice updated the ticket", got.Message.Data["body"])
	assert.Equal(t, "ticket-42", got.Message.Data["tag"])

	require.NotNil(t, got.Message.Android)
	assert.Equal(t, "600s", got.Message.Android.TTL)
	assert.Equal(t, "ticket-42", got.Message.Android.CollapseKey)

	require.NotNil(t, got.Message.APNS)
	assert.Equal(t, "ticket-42", got.Message.APNS.Headers["apns-collapse-id"])

	require.NotNil(t, got.Message.Webpush)
	assert.Equal(t, "600", got.Message.Webpush.Headers["TTL"])
	require.NotNil(t, got.Message.Webpush.FCMOptions)
	assert.Equal(t, "https://desk.example.com/t/42", got.Message.Webpush.FCMOptions.Link)
}

func TestSend_UnregisteredDeletesDevice(t *testing.T) {
	var invalidated []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"status":"UNREGISTERED","message":"Requested entity was not found."}}`)
	}, func(token string) error {
		invalidated = append(invalidated, token)
		return nil
	})

	err := client.Send(context.Background(), "stale-token", testMessage())

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ReasonUnregistered, de.Reason)
	assert.Equal(t, []string{"stale-token"}, invalidated)
}

func TestSend_PlainNotFoundMarkerInvalidates(t *testing.T) {
	var invalidated []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "NOT_FOUND: requested entity was not found", http.StatusNotFound)
	}, func(token string) error {
		invalidated = append(invalidated, token)
		return nil
	})

	err := client.Send(context.Background(), "stale-token", testMessage())

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ReasonUnregistered, de.Reason)
	assert.Len(t, invalidated, 1)
}

func TestSend_UnauthenticatedRetriesOnceThenSucceeds(t *testing.T) {
	requests := 0
	var lastAuth string
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		lastAuth = r.Header.Get("Authorization")
		if requests == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"code":401,"status":"UNAUTHENTICATED","message":"auth error"}}`)
			return
		}
		fmt.Fprint(w, `{"name":"projects/demo-project/messages/456"}`)
	}, nil)

	err := client.Send(context.Background(), "push-token-1", testMessage())
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	assert.Equal(t, 1, creds.cleared)
	assert.Equal(t, "Bearer fresh-bearer-1", lastAuth)
}

func TestSend_UnauthenticatedTwiceIsTerminal(t *testing.T) {
	requests := 0
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"status":"UNAUTHENTICATED","message":"auth error"}}`)
	}, nil)

	err := client.Send(context.Background(), "push-token-1", testMessage())

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ReasonUnauthenticated, de.Reason)
	// Retry budget is exactly one.
	assert.Equal(t, 2, requests)
	assert.Equal(t, 2, creds.cleared)
}

func TestSend_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   FailureReason
	}{
		{"invalid argument", http.StatusBadRequest, `{"error":{"status":"INVALID_ARGUMENT","message":"bad token"}}`, ReasonInvalidArgument},
		{"permission denied", http.StatusForbidden, `{"error":{"status":"PERMISSION_DENIED","message":"nope"}}`, ReasonPermissionDenied},
		{"unclassified server error", http.StatusInternalServerError, `{"error":{"status":"INTERNAL"}}`, ReasonUnknown},
		{"non-json error body", http.StatusBadGateway, `upstream exploded`, ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}, nil)

			err := client.Send(context.Background(), "push-token-1", testMessage())

			var de *DeliveryError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.want, de.Reason)
			assert.Equal(t, tt.status, de.Status)
		})
	}
}

func TestSend_MalformedSuccessResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing success marker", `{"ok":true}`},
		{"embedded error despite 200", `{"name":"projects/x/messages/1","error":{"status":"INTERNAL"}}`},
		{"not json", `<html>hi</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}, nil)

			err := client.Send(context.Background(), "push-token-1", testMessage())

			var de *DeliveryError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, ReasonMalformedResponse, de.Reason)
		})
	}
}

func TestSend_NoCredentialsSkipsNetwork(t *testing.T) {
	requests := 0
	client, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	}, nil)
	creds.err = ErrNoServiceAccount

	err := client.Send(context.Background(), "push-token-1", testMessage())

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ReasonNoAuth, de.Reason)
	assert.Zero(t, requests)
}

func TestSend_TransportError(t *testing.T) {
	creds := &fakeCreds{token: "bearer-1"}
	client := NewClient("demo-project", creds, nil)
	// Nothing listens here.
	client.gatewayURL = "http://127.0.0.1:1"

	err := client.Send(context.Background(), "push-token-1", testMessage())

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ReasonTransport, de.Reason)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***", Mask("short"))
	assert.Equal(t, "abcd...wxyz", Mask("abcdefghijklmnopqrstuvwxyz"))
	assert.NotContains(t, Mask("c2VjcmV0LXRva2VuLXZhbHVl"), "secret")
}
