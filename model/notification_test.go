package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenNotification(t *testing.T) {
	raw := RawNotification{
		Timestamp: 1700000000123,
		Body: map[string]interface{}{
			"type":        NotificationFollow,
			"followed_by": "pubky-of-follower",
		},
	}

	n, err := raw.Flatten()
	require.Nil(t, err)
	assert.Equal(t, NotificationFollow, n.Type)
	assert.Equal(t, int64(1700000000123), n.Timestamp)

	var payload map[string]interface{}
	require.Nil(t, json.Unmarshal(n.Payload, &payload))
	assert.Equal(t, "pubky-of-follower", payload["followed_by"])
	// the discriminator must not leak into the payload
	_, hasType := payload["type"]
	assert.False(t, hasType)
}

func TestFlattenNotificationWithoutType(t *testing.T) {
	raw := RawNotification{Timestamp: 42, Body: map[string]interface{}{"x": 1.0}}
	n, err := raw.Flatten()
	require.Nil(t, err)
	assert.Equal(t, "", n.Type)
	assert.Equal(t, int64(42), n.Timestamp)
}
