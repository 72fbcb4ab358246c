package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostMessageReturnsChannelAndTS(t *testing.T) {
	var gotAuth string
	var gotBody postMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(apiResponse{OK: true, Channel: "C123", TS: "1724.001"})
	}))
	defer server.Close()

	client := NewClientWithBaseURL("xoxb-test", server.URL)
	channel, ts, err := client.PostMessage(context.Background(), "C123", "fallback", []any{map[string]string{"type": "divider"}})

	assert.NoError(t, err)
	assert.Equal(t, "C123", channel)
	assert.Equal(t, "1724.001", ts)
	assert.Equal(t, "Bearer xoxb-test", gotAuth)
	assert.Equal(t, "fallback", gotBody.Text)
	assert.Len(t, gotBody.Blocks, 1)
}

func TestUpdateMessage(t *testing.T) {
	var gotBody updateMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.update", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(apiResponse{OK: true})
	}))
	defer server.Close()

	client := NewClientWithBaseURL("xoxb-test", server.URL)
	err := client.UpdateMessage(context.Background(), "C123", "1724.001", "fallback", nil)

	assert.NoError(t, err)
	assert.Equal(t, "1724.001", gotBody.TS)
}

func TestSlackAPIErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{OK: false, Error: "channel_not_found"})
	}))
	defer server.Close()

	client := NewClientWithBaseURL("xoxb-test", server.URL)
	_, _, err := client.PostMessage(context.Background(), "C999", "fallback", nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestMissingTokenFailsFast(t *testing.T) {
	client := NewClient("")

	_, _, err := client.PostMessage(context.Background(), "C123", "fallback", nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestOpenView(t *testing.T) {
	var gotBody openViewRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/views.open", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(apiResponse{OK: true})
	}))
	defer server.Close()

	client := NewClientWithBaseURL("xoxb-test", server.URL)
	err := client.OpenView(context.Background(), "trigger-1", map[string]string{"type": "modal"})

	assert.NoError(t, err)
	assert.Equal(t, "trigger-1", gotBody.TriggerID)
}
