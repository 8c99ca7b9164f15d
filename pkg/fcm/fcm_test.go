package fcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMulticast(t *testing.T) {
	msg := buildMulticast([]string{"a", "b"}, NotificationData{
		Title:       "bob",
		Body:        "hi",
		Data:        map[string]string{"chatId": "alice_bob"},
		ClickAction: "/direct/bob",
	})

	assert.Equal(t, []string{"a", "b"}, msg.Tokens)
	assert.Equal(t, "hi", msg.Notification.Body)
	assert.Equal(t, "alice_bob", msg.Data["chatId"])
	assert.Equal(t, "/direct/bob", msg.Webpush.FCMOptions.Link)

	msg = buildMulticast([]string{"a"}, NotificationData{Title: "t"})
	assert.Nil(t, msg.Webpush.FCMOptions)
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short"))
	assert.Equal(t, "abcdefghijklmnopqrst...", shorten("abcdefghijklmnopqrstuvwxyz"))
}
