package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Notification kinds as reported by the index.
const (
	NotificationFollow      = "follow"
	NotificationNewFriend   = "new_friend"
	NotificationLostFriend  = "lost_friend"
	NotificationReply       = "reply"
	NotificationRepost      = "repost"
	NotificationMention     = "mention"
	NotificationTagPost     = "tag_post"
	NotificationTagProfile  = "tag_profile"
	NotificationPostDeleted = "post_deleted"
	NotificationPostEdited  = "post_edited"
)

/*

Notification is one flattened event.

The wire shape is nested: {timestamp, body: {type, ...fields}}. Ingest
flattens it so the type and timestamp are queryable columns and the
remaining body fields ride along as JSON.

Timestamp: millisecond timestamp, the ordering and read-cursor dimension
Type: discriminator from the body
Payload: body fields minus the discriminator

The wire carries no event id, so (type, timestamp, payload) is the natural
key: re-ingesting an overlapping index window must not duplicate rows.

*/

type Notification struct {
	Id        uint           `gorm:"primaryKey;autoIncrement"`
	Type      string         `gorm:"index;uniqueIndex:idx_notification_event"`
	Timestamp int64          `gorm:"index;uniqueIndex:idx_notification_event"`
	Payload   datatypes.JSON `gorm:"uniqueIndex:idx_notification_event"`
	CreatedAt time.Time
}

func (Notification) TableName() string {
	return "notifications"
}

// RawNotification is the nested wire shape delivered by the index.
type RawNotification struct {
	Timestamp int64                  `json:"timestamp"`
	Body      map[string]interface{} `json:"body"`
}

// Flatten lifts the body discriminator and timestamp into columns and keeps
// the rest of the body as the payload.
func (r RawNotification) Flatten() (Notification, error) {
	notification := Notification{Timestamp: r.Timestamp}
	payload := map[string]interface{}{}
	for key, value := range r.Body {
		if key == "type" {
			if s, ok := value.(string); ok {
				notification.Type = s
			}
			continue
		}
		payload[key] = value
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Notification{}, err
	}
	notification.Payload = datatypes.JSON(b)
	return notification, nil
}
