package app

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	. "github.com/pubky-app/social-core/utils/log"
)

// TopicMuteChanged carries MuteEvent payloads whenever a mute relationship
// flips. The bus is owned by the Core and exposed only through Subscribe;
// there are no global listener sets.
const TopicMuteChanged = "relationship.mute_changed"

// MuteEvent is the payload published on TopicMuteChanged.
type MuteEvent struct {
	Muter string `json:"muter"`
	Mutee string `json:"mutee"`
	Muted bool   `json:"muted"`
}

// SubscribeMuteChanges returns a channel of mute/unmute events. The
// subscription ends when ctx is cancelled.
func (c *Core) SubscribeMuteChanges(ctx context.Context) (<-chan *message.Message, error) {
	return c.bus.Subscribe(ctx, TopicMuteChanged)
}

// publishMuteEvent is best-effort: a full or closed bus must not fail the
// mutation that triggered the event.
func (c *Core) publishMuteEvent(event MuteEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		Log.Error("marshal mute event: ", err)
		return
	}
	if err := c.bus.Publish(TopicMuteChanged, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		Log.Error("publish mute event: ", err)
	}
}
