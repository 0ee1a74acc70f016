package model

import "time"

/*

PostStream is the cached ordering of one post filter key.

Id: filter key "sortMode:source:kind[:tags]", primary key
Items: ordered, deduplicated composite post ids, display order

The stream stores ids only; detail records live in post_details and may lag
behind (cache miss).

*/

type PostStream struct {
	Id        string `gorm:"primaryKey"`
	Items     IDList
	UpdatedAt time.Time
}

func (PostStream) TableName() string {
	return "post_stream"
}

/*

PostStreamQueue buffers ids fetched ahead from the index but not yet
surfaced into the visible stream window.

Id: same filter key as the PostStream it feeds
Queue: buffered composite ids in index order
Tail: opaque pagination cursor to resume fetching from the index; timeline
      streams use last timestamp(+id), engagement streams use score+id

*/

type PostStreamQueue struct {
	Id        string `gorm:"primaryKey"`
	Queue     IDList
	Tail      string
	UpdatedAt time.Time
}

func (PostStreamQueue) TableName() string {
	return "post_stream_queue"
}

/*

UserStream is the cached ordering of one relationship stream
(following/followers/friends/muted), keyed by "viewer:type".

*/

type UserStream struct {
	Id        string `gorm:"primaryKey"`
	Items     IDList
	UpdatedAt time.Time
}

func (UserStream) TableName() string {
	return "user_stream"
}
