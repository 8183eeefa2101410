package googlechat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tj/assert"
)

func dmEvent(text, sender string) Event {
	var event Event
	event.Type = "MESSAGE"
	event.Space.SingleUserBotDM = true
	event.Message.Text = text
	event.Message.Sender.Email = sender
	return event
}

func TestParseEvent(t *testing.T) {
	t.Run("link in a direct message", func(t *testing.T) {
		submission, err := ParseEvent(dmEvent("check this out https://example.com/a?x=1", "alice@x.com"))
		assert.Nil(t, err)
		assert.Equal(t, "https://example.com/a?x=1", submission.Link)
		assert.Equal(t, "alice@x.com", submission.Referrer)
	})

	t.Run("not a message", func(t *testing.T) {
		event := dmEvent("https://example.com", "alice@x.com")
		event.Type = "ADDED_TO_SPACE"
		_, err := ParseEvent(event)
		assert.True(t, errors.Is(err, ErrNotAMessage))
	})

	t.Run("group chat", func(t *testing.T) {
		event := dmEvent("https://example.com", "alice@x.com")
		event.Space.SingleUserBotDM = false
		_, err := ParseEvent(event)
		assert.True(t, errors.Is(err, ErrInGroup))
	})

	t.Run("no link", func(t *testing.T) {
		_, err := ParseEvent(dmEvent("hello there", "alice@x.com"))
		assert.True(t, errors.Is(err, ErrNoLink))
	})
}

func postEvent(t *testing.T, handler *Handler, event Event) (int, string) {
	raw, err := json.Marshal(event)
	assert.Nil(t, err)

	req := httptest.NewRequest("POST", "/chats/google", strings.NewReader(string(raw)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var body struct {
		Text string `json:"text"`
	}
	if w.Code == 200 {
		assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w.Code, body.Text
}

func TestHandler(t *testing.T) {
	t.Run("saves the link as the sender", func(t *testing.T) {
		var gotLink, gotReferrer string
		handler := &Handler{
			Create: func(ctx context.Context, link, referrer string) error {
				gotLink, gotReferrer = link, referrer
				return nil
			},
		}

		code, text := postEvent(t, handler, dmEvent("https://example.com/a", "alice@x.com"))
		assert.Equal(t, 200, code)
		assert.Contains(t, text, "Caricato")
		assert.Equal(t, "https://example.com/a", gotLink)
		assert.Equal(t, "alice@x.com", gotReferrer)
	})

	t.Run("reports save failures as a bot reply", func(t *testing.T) {
		handler := &Handler{
			Create: func(ctx context.Context, link, referrer string) error {
				return errors.New("store unavailable")
			},
		}

		code, text := postEvent(t, handler, dmEvent("https://example.com/a", "alice@x.com"))
		assert.Equal(t, 200, code)
		assert.Contains(t, text, "errore")
	})

	t.Run("asks for a link when there is none", func(t *testing.T) {
		handler := &Handler{Create: func(context.Context, string, string) error {
			t.Fatal("create should not be called")
			return nil
		}}

		code, text := postEvent(t, handler, dmEvent("just saying hi", "alice@x.com"))
		assert.Equal(t, 200, code)
		assert.Contains(t, text, "mandami pure il link")
	})

	t.Run("rejects the wrong verification token", func(t *testing.T) {
		handler := &Handler{
			Create:            func(context.Context, string, string) error { return nil },
			VerificationToken: "expected",
		}

		event := dmEvent("https://example.com/a", "alice@x.com")
		event.Token = "wrong"
		code, _ := postEvent(t, handler, event)
		assert.Equal(t, 403, code)
	})
}
