package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFakeAPI(t *testing.T, handler func(method string, payload map[string]interface{}) (interface{}, bool)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var method string
		_, err := fmt.Sscanf(r.URL.Path, "/botTEST-TOKEN/%s", &method)
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		result, ok := handler(method, payload)
		if !ok {
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "description": "Bad Request: test"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "TEST-TOKEN"), srv
}

func TestSendMessagePayload(t *testing.T) {
	var got map[string]interface{}
	c, _ := newFakeAPI(t, func(method string, payload map[string]interface{}) (interface{}, bool) {
		require.Equal(t, "sendMessage", method)
		got = payload
		return map[string]interface{}{}, true
	})

	err := c.SendMessage(context.Background(), 42, "hello", &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{{Text: "Go", CallbackData: "go"}}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, got["chat_id"])
	require.Equal(t, "hello", got["text"])
	require.NotNil(t, got["reply_markup"])
}

func TestSendDocumentOmitsEmptyCaption(t *testing.T) {
	var got map[string]interface{}
	c, _ := newFakeAPI(t, func(method string, payload map[string]interface{}) (interface{}, bool) {
		require.Equal(t, "sendDocument", method)
		got = payload
		return map[string]interface{}{}, true
	})

	require.NoError(t, c.SendDocument(context.Background(), 42, "file-id", ""))
	require.Equal(t, "file-id", got["document"])
	_, present := got["caption"]
	require.False(t, present)
}

func TestIsChatMemberStatuses(t *testing.T) {
	status := "member"
	c, _ := newFakeAPI(t, func(method string, payload map[string]interface{}) (interface{}, bool) {
		require.Equal(t, "getChatMember", method)
		require.Equal(t, "@chan1", payload["chat_id"])
		return map[string]interface{}{"status": status}, true
	})

	for _, s := range []string{"member", "administrator", "creator"} {
		status = s
		ok, err := c.IsChatMember(context.Background(), "@chan1", 42)
		require.NoError(t, err)
		require.True(t, ok, s)
	}
	for _, s := range []string{"left", "kicked", "restricted"} {
		status = s
		ok, err := c.IsChatMember(context.Background(), "@chan1", 42)
		require.NoError(t, err)
		require.False(t, ok, s)
	}
}

func TestAPIErrorSurfaces(t *testing.T) {
	c, _ := newFakeAPI(t, func(method string, payload map[string]interface{}) (interface{}, bool) {
		return nil, false
	})

	err := c.SendMessage(context.Background(), 42, "hello", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Bad Request")

	_, err = c.IsChatMember(context.Background(), "@chan1", 42)
	require.Error(t, err)
}

func TestAttachmentSelection(t *testing.T) {
	m := &Message{Document: &Document{FileID: "d1", FileName: "report.pdf"}}
	id, name, ok := m.Attachment()
	require.True(t, ok)
	require.Equal(t, "d1", id)
	require.Equal(t, "report.pdf", name)

	m = &Message{Photo: []PhotoSize{{FileID: "small"}, {FileID: "large"}}}
	id, name, ok = m.Attachment()
	require.True(t, ok)
	require.Equal(t, "large", id)
	require.Equal(t, "photo.jpg", name)

	m = &Message{Text: "just text"}
	_, _, ok = m.Attachment()
	require.False(t, ok)
}
