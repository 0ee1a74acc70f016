package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStore is the per-kind cache over user detail, counts and
// viewer-relationship records.
type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{DB: db}
}

func (s *UserStore) GetDetails(ctx context.Context, id string) (*model.UserDetails, error) {
	var details model.UserDetails
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&details).Error
	if err != nil {
		return nil, errors.Wrapf(translateNotFound(err), "get user details %s", id)
	}
	return &details, nil
}

func (s *UserStore) SaveDetails(ctx context.Context, details *model.UserDetails) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(details).Error
	return errors.Wrapf(err, "save user details %s", details.Id)
}

func (s *UserStore) BulkSaveDetails(ctx context.Context, details []model.UserDetails) error {
	if len(details) == 0 {
		return nil
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&details).Error
	return errors.Wrapf(err, "bulk save %d user details", len(details))
}

// FreshDetailIDs mirrors PostStore.FreshDetailIDs for user records.
func (s *UserStore) FreshDetailIDs(ctx context.Context, ids []string, now time.Time) (map[string]bool, error) {
	fresh := map[string]bool{}
	if len(ids) == 0 {
		return fresh, nil
	}
	var records []model.UserDetails
	err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "query user details freshness")
	}
	for i := range records {
		if !records[i].Stale(now) {
			fresh[records[i].Id] = true
		}
	}
	return fresh, nil
}

func (s *UserStore) GetCounts(ctx context.Context, id string) (*model.UserCounts, error) {
	var counts model.UserCounts
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&counts).Error
	if err != nil {
		return nil, errors.Wrapf(translateNotFound(err), "get user counts %s", id)
	}
	return &counts, nil
}

func (s *UserStore) SaveCounts(ctx context.Context, counts *model.UserCounts) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(counts).Error
	return errors.Wrapf(err, "save user counts %s", counts.Id)
}

// GetRelationship returns the viewer's relation to one account, or a default
// all-false record when none was cached yet. The caller cannot distinguish
// "never seen" from "seen, no relation": both mean no relation.
func (s *UserStore) GetRelationship(ctx context.Context, id string) (*model.UserRelationship, error) {
	var rel model.UserRelationship
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.UserRelationship{Id: id}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user relationship %s", id)
	}
	return &rel, nil
}

func (s *UserStore) SaveRelationship(ctx context.Context, rel *model.UserRelationship) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rel).Error
	return errors.Wrapf(err, "save user relationship %s", rel.Id)
}
