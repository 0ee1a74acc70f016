package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostStore is the per-kind cache over post detail, counts and relationship
// records.
type PostStore struct {
	DB *gorm.DB
}

func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{DB: db}
}

// GetDetails looks up one hydrated post record.
func (s *PostStore) GetDetails(ctx context.Context, id string) (*model.PostDetails, error) {
	var details model.PostDetails
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&details).Error
	if err != nil {
		return nil, errors.Wrapf(translateNotFound(err), "get post details %s", id)
	}
	return &details, nil
}

// SaveDetails upserts one post record in place. Records are written whole,
// never partially.
func (s *PostStore) SaveDetails(ctx context.Context, details *model.PostDetails) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(details).Error
	return errors.Wrapf(err, "save post details %s", details.Id)
}

// BulkSaveDetails upserts many post records in one pass, used by the
// backfill path after a Nexus batch fetch.
func (s *PostStore) BulkSaveDetails(ctx context.Context, details []model.PostDetails) error {
	if len(details) == 0 {
		return nil
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&details).Error
	return errors.Wrapf(err, "bulk save %d post details", len(details))
}

// DeleteDetails removes one post record together with its counts and
// relationships.
func (s *PostStore) DeleteDetails(ctx context.Context, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&model.PostDetails{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&model.PostCounts{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.PostRelationships{}).Error
	})
	return errors.Wrapf(err, "delete post %s", id)
}

// FreshDetailIDs returns, out of the requested ids, the set that has a
// hydrated record not past its sync TTL. Everything else is a cache miss.
func (s *PostStore) FreshDetailIDs(ctx context.Context, ids []string, now time.Time) (map[string]bool, error) {
	fresh := map[string]bool{}
	if len(ids) == 0 {
		return fresh, nil
	}
	var records []model.PostDetails
	err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "query post details freshness")
	}
	for i := range records {
		if !records[i].Stale(now) {
			fresh[records[i].Id] = true
		}
	}
	return fresh, nil
}

// GetCounts looks up the engagement counters of one post.
func (s *PostStore) GetCounts(ctx context.Context, id string) (*model.PostCounts, error) {
	var counts model.PostCounts
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&counts).Error
	if err != nil {
		return nil, errors.Wrapf(translateNotFound(err), "get post counts %s", id)
	}
	return &counts, nil
}

func (s *PostStore) SaveCounts(ctx context.Context, counts *model.PostCounts) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(counts).Error
	return errors.Wrapf(err, "save post counts %s", counts.Id)
}

// GetRelationships looks up reply/repost links of one post.
func (s *PostStore) GetRelationships(ctx context.Context, id string) (*model.PostRelationships, error) {
	var rel model.PostRelationships
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&rel).Error
	if err != nil {
		return nil, errors.Wrapf(translateNotFound(err), "get post relationships %s", id)
	}
	return &rel, nil
}

func (s *PostStore) SaveRelationships(ctx context.Context, rel *model.PostRelationships) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rel).Error
	return errors.Wrapf(err, "save post relationships %s", rel.Id)
}
