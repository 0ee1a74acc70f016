package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

/*

Tag is one label applied to a taggable entity (post or user) together with
the ordered set of accounts that applied it.

Label: the tag text, unique within a collection
Taggers: ordered set of tagger pubkys, insertion order preserved
TaggersCount: always equals len(Taggers) after every mutation
Relationship: whether the viewer is among the taggers

*/

type Tag struct {
	Label        string   `json:"label"`
	Taggers      []string `json:"taggers"`
	TaggersCount int      `json:"taggers_count"`
	Relationship bool     `json:"relationship"`
}

// TagList is a Tag slice persisted as a JSON column.
type TagList []Tag

func (l TagList) Value() (driver.Value, error) {
	if l == nil {
		l = TagList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *TagList) Scan(value interface{}) error {
	if value == nil {
		*l = TagList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into TagList", value)
	}
}

/*

TagCollection is every tag applied to one taggable entity. The same shape
backs both post tags and user tags; the store keeps them in separate tables.

Id: composite post id or owner pubky of the tagged entity, primary key

*/

type TagCollection struct {
	Id   string `gorm:"primaryKey"`
	Tags TagList
}

// AddTagger applies label by user. A missing tag is created first with an
// empty tagger set. Returns false without mutating anything if user already
// tagged with that label, true otherwise. TaggersCount stays equal to
// len(Taggers).
func (c *TagCollection) AddTagger(label string, user string) bool {
	tag := c.FindByLabel(label)
	if tag == nil {
		c.Tags = append(c.Tags, Tag{Label: label, Taggers: []string{}})
		tag = &c.Tags[len(c.Tags)-1]
	}
	for _, tagger := range tag.Taggers {
		if tagger == user {
			return false
		}
	}
	tag.Taggers = append(tag.Taggers, user)
	tag.TaggersCount = len(tag.Taggers)
	return true
}

// RemoveTagger removes user from label's tagger set. Returns false if either
// the label or the user is absent.
func (c *TagCollection) RemoveTagger(label string, user string) bool {
	tag := c.FindByLabel(label)
	if tag == nil {
		return false
	}
	for i, tagger := range tag.Taggers {
		if tagger == user {
			tag.Taggers = append(tag.Taggers[:i], tag.Taggers[i+1:]...)
			tag.TaggersCount = len(tag.Taggers)
			return true
		}
	}
	return false
}

// GetTaggers returns a pagination window over label's tagger set. An unknown
// label yields an empty slice.
func (c *TagCollection) GetTaggers(label string, skip int, limit int) []string {
	tag := c.FindByLabel(label)
	if tag == nil || skip >= len(tag.Taggers) {
		return []string{}
	}
	end := len(tag.Taggers)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return tag.Taggers[skip:end]
}

// FindByLabel returns the tag with the given label, or nil.
func (c *TagCollection) FindByLabel(label string) *Tag {
	for i := range c.Tags {
		if c.Tags[i].Label == label {
			return &c.Tags[i]
		}
	}
	return nil
}

// FindByTagger returns every tag the given user applied.
func (c *TagCollection) FindByTagger(user string) []Tag {
	result := []Tag{}
	for _, tag := range c.Tags {
		for _, tagger := range tag.Taggers {
			if tagger == user {
				result = append(result, tag)
				break
			}
		}
	}
	return result
}

// GetUniqueLabels returns every distinct label in collection order.
func (c *TagCollection) GetUniqueLabels() []string {
	labels := []string{}
	seen := map[string]bool{}
	for _, tag := range c.Tags {
		if !seen[tag.Label] {
			seen[tag.Label] = true
			labels = append(labels, tag.Label)
		}
	}
	return labels
}

// PostTags and UserTags give the shared collection shape its per-kind table.

type PostTags struct {
	TagCollection
}

func (PostTags) TableName() string {
	return "post_tags"
}

type UserTags struct {
	TagCollection
}

func (UserTags) TableName() string {
	return "user_tags"
}
