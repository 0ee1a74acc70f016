package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostTagStore and UserTagStore persist tag collections per taggable kind.
// Both expose the same surface over the shared model.TagCollection logic;
// they differ only in the table they write.

type PostTagStore struct {
	DB *gorm.DB
}

func NewPostTagStore(db *gorm.DB) *PostTagStore {
	return &PostTagStore{DB: db}
}

// Get returns the tag collection of one post, empty when nothing is cached.
func (s *PostTagStore) Get(ctx context.Context, id string) (*model.TagCollection, error) {
	var record model.PostTags
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.TagCollection{Id: id, Tags: model.TagList{}}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get post tags %s", id)
	}
	return &record.TagCollection, nil
}

func (s *PostTagStore) Save(ctx context.Context, collection *model.TagCollection) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&model.PostTags{TagCollection: *collection}).Error
	return errors.Wrapf(err, "save post tags %s", collection.Id)
}

// BulkSave upserts many collections in one pass, used when hydrating the
// tags of a whole backfilled page.
func (s *PostTagStore) BulkSave(ctx context.Context, collections []model.TagCollection) error {
	if len(collections) == 0 {
		return nil
	}
	records := make([]model.PostTags, 0, len(collections))
	for _, c := range collections {
		records = append(records, model.PostTags{TagCollection: c})
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&records).Error
	return errors.Wrapf(err, "bulk save %d post tag collections", len(records))
}

type UserTagStore struct {
	DB *gorm.DB
}

func NewUserTagStore(db *gorm.DB) *UserTagStore {
	return &UserTagStore{DB: db}
}

func (s *UserTagStore) Get(ctx context.Context, id string) (*model.TagCollection, error) {
	var record model.UserTags
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.TagCollection{Id: id, Tags: model.TagList{}}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user tags %s", id)
	}
	return &record.TagCollection, nil
}

func (s *UserTagStore) Save(ctx context.Context, collection *model.TagCollection) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&model.UserTags{TagCollection: *collection}).Error
	return errors.Wrapf(err, "save user tags %s", collection.Id)
}

func (s *UserTagStore) BulkSave(ctx context.Context, collections []model.TagCollection) error {
	if len(collections) == 0 {
		return nil
	}
	records := make([]model.UserTags, 0, len(collections))
	for _, c := range collections {
		records = append(records, model.UserTags{TagCollection: c})
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&records).Error
	return errors.Wrapf(err, "bulk save %d user tag collections", len(records))
}
