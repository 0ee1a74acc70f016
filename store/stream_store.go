package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pubky-app/social-core/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Pure sequence helpers shared by the post and user stream stores. Every
// mutation below preserves the invariant that a stream never holds the same
// id twice.

func appendDedup(items model.IDList, ids []string) model.IDList {
	for _, id := range ids {
		if !items.Contains(id) {
			items = append(items, id)
		}
	}
	return items
}

func prependDedup(items model.IDList, ids []string) model.IDList {
	head := model.IDList{}
	for _, id := range ids {
		if !items.Contains(id) && !head.Contains(id) {
			head = append(head, id)
		}
	}
	return append(head, items...)
}

func removeItems(items model.IDList, ids []string) model.IDList {
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := model.IDList{}
	for _, id := range items {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	return kept
}

// readWindow returns up to limit ids following the cursor id. An empty
// cursor starts from the most recent item; a cursor that fell out of the
// stream (e.g. removed by the mute sweep) also restarts from the top rather
// than failing the read.
func readWindow(items model.IDList, cursor string, limit int) []string {
	start := 0
	if cursor != "" {
		for i, id := range items {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if start >= len(items) {
		return []string{}
	}
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}

// PostStreamStore keeps the ordered id sequence of every cached post filter
// key plus the look-ahead pagination queue per key.
type PostStreamStore struct {
	DB *gorm.DB
}

func NewPostStreamStore(db *gorm.DB) *PostStreamStore {
	return &PostStreamStore{DB: db}
}

// get loads a stream record, lazily creating an empty one on first request
// for a filter key.
func (s *PostStreamStore) get(ctx context.Context, streamId string) (*model.PostStream, error) {
	var stream model.PostStream
	err := s.DB.WithContext(ctx).Where("id = ?", streamId).First(&stream).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.PostStream{Id: streamId, Items: model.IDList{}}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get post stream %s", streamId)
	}
	return &stream, nil
}

func (s *PostStreamStore) save(ctx context.Context, stream *model.PostStream) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(stream).Error
	return errors.Wrapf(err, "save post stream %s", stream.Id)
}

// Read returns up to limit ids after cursor, newest-first in stream order.
func (s *PostStreamStore) Read(ctx context.Context, streamId string, cursor string, limit int) ([]string, error) {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return nil, err
	}
	return readWindow(stream.Items, cursor, limit), nil
}

func (s *PostStreamStore) Append(ctx context.Context, streamId string, ids []string) error {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return err
	}
	stream.Items = appendDedup(stream.Items, ids)
	return s.save(ctx, stream)
}

func (s *PostStreamStore) Prepend(ctx context.Context, streamId string, ids []string) error {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return err
	}
	stream.Items = prependDedup(stream.Items, ids)
	return s.save(ctx, stream)
}

func (s *PostStreamStore) RemoveItems(ctx context.Context, streamId string, ids []string) error {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return err
	}
	stream.Items = removeItems(stream.Items, ids)
	return s.save(ctx, stream)
}

// RemoveEverywhere drops the given ids from every cached stream and queue,
// used when a post is deleted on-device.
func (s *PostStreamStore) RemoveEverywhere(ctx context.Context, ids []string) error {
	streams, err := s.All(ctx)
	if err != nil {
		return err
	}
	for i := range streams {
		kept := removeItems(streams[i].Items, ids)
		if len(kept) == len(streams[i].Items) {
			continue
		}
		streams[i].Items = kept
		if err := s.save(ctx, &streams[i]); err != nil {
			return err
		}
	}

	var queues []model.PostStreamQueue
	if err := s.DB.WithContext(ctx).Find(&queues).Error; err != nil {
		return errors.Wrap(err, "list post stream queues")
	}
	for i := range queues {
		kept := removeItems(queues[i].Queue, ids)
		if len(kept) == len(queues[i].Queue) {
			continue
		}
		queues[i].Queue = kept
		if err := s.saveQueue(ctx, &queues[i]); err != nil {
			return err
		}
	}
	return nil
}

// All returns every cached post stream; used by the mute sweep.
func (s *PostStreamStore) All(ctx context.Context) ([]model.PostStream, error) {
	var streams []model.PostStream
	err := s.DB.WithContext(ctx).Find(&streams).Error
	return streams, errors.Wrap(err, "list post streams")
}

// RemoveOwnerEverywhere drops every id owned by owner from every cached
// stream and queue. Malformed ids never match an owner and are left alone.
func (s *PostStreamStore) RemoveOwnerEverywhere(ctx context.Context, owner string) error {
	streams, err := s.All(ctx)
	if err != nil {
		return err
	}
	for i := range streams {
		kept := model.IDList{}
		for _, id := range streams[i].Items {
			if model.OwnerOf(id) != owner {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(streams[i].Items) {
			continue
		}
		streams[i].Items = kept
		if err := s.save(ctx, &streams[i]); err != nil {
			return err
		}
	}

	var queues []model.PostStreamQueue
	if err := s.DB.WithContext(ctx).Find(&queues).Error; err != nil {
		return errors.Wrap(err, "list post stream queues")
	}
	for i := range queues {
		kept := model.IDList{}
		for _, id := range queues[i].Queue {
			if model.OwnerOf(id) != owner {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(queues[i].Queue) {
			continue
		}
		queues[i].Queue = kept
		if err := s.saveQueue(ctx, &queues[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostStreamStore) getQueue(ctx context.Context, streamId string) (*model.PostStreamQueue, error) {
	var queue model.PostStreamQueue
	err := s.DB.WithContext(ctx).Where("id = ?", streamId).First(&queue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.PostStreamQueue{Id: streamId, Queue: model.IDList{}}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get post stream queue %s", streamId)
	}
	return &queue, nil
}

func (s *PostStreamStore) saveQueue(ctx context.Context, queue *model.PostStreamQueue) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(queue).Error
	return errors.Wrapf(err, "save post stream queue %s", queue.Id)
}

// Enqueue buffers ids fetched ahead from the index and records the index
// cursor to resume from. The tail cursor is opaque to this store: timeline
// streams put a timestamp(+id) there, engagement streams a score+id pair.
func (s *PostStreamStore) Enqueue(ctx context.Context, streamId string, ids []string, tail string) error {
	queue, err := s.getQueue(ctx, streamId)
	if err != nil {
		return err
	}
	queue.Queue = appendDedup(queue.Queue, ids)
	queue.Tail = tail
	return s.saveQueue(ctx, queue)
}

// QueueTail returns the index-facing pagination cursor of a filter key.
func (s *PostStreamStore) QueueTail(ctx context.Context, streamId string) (string, error) {
	queue, err := s.getQueue(ctx, streamId)
	if err != nil {
		return "", err
	}
	return queue.Tail, nil
}

// Drain moves up to limit buffered ids out of the queue into the visible
// stream window and returns the ids actually appended. The index routinely
// re-returns ids that are already visible (any organic refetch does); those
// are consumed and discarded here so the caller never receives an id its
// window already holds.
func (s *PostStreamStore) Drain(ctx context.Context, streamId string, limit int) ([]string, error) {
	queue, err := s.getQueue(ctx, streamId)
	if err != nil {
		return nil, err
	}
	if len(queue.Queue) == 0 {
		return []string{}, nil
	}
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return nil, err
	}

	fresh := []string{}
	consumed := 0
	for _, id := range queue.Queue {
		if limit > 0 && len(fresh) == limit {
			break
		}
		consumed++
		if stream.Items.Contains(id) {
			continue
		}
		fresh = append(fresh, id)
	}
	queue.Queue = queue.Queue[consumed:]
	if err := s.saveQueue(ctx, queue); err != nil {
		return nil, err
	}
	if len(fresh) == 0 {
		return fresh, nil
	}
	stream.Items = appendDedup(stream.Items, fresh)
	if err := s.save(ctx, stream); err != nil {
		return nil, err
	}
	return fresh, nil
}

// UserStreamStore keeps the ordered id sequences of cached relationship
// streams (following/followers/friends/muted).
type UserStreamStore struct {
	DB *gorm.DB
}

func NewUserStreamStore(db *gorm.DB) *UserStreamStore {
	return &UserStreamStore{DB: db}
}

func (s *UserStreamStore) get(ctx context.Context, streamId string) (*model.UserStream, error) {
	var stream model.UserStream
	err := s.DB.WithContext(ctx).Where("id = ?", streamId).First(&stream).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.UserStream{Id: streamId, Items: model.IDList{}}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user stream %s", streamId)
	}
	return &stream, nil
}

func (s *UserStreamStore) save(ctx context.Context, stream *model.UserStream) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(stream).Error
	return errors.Wrapf(err, "save user stream %s", stream.Id)
}

func (s *UserStreamStore) Read(ctx context.Context, streamId string, cursor string, limit int) ([]string, error) {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return nil, err
	}
	return readWindow(stream.Items, cursor, limit), nil
}

func (s *UserStreamStore) Append(ctx context.Context, streamId string, ids []string) error {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return err
	}
	stream.Items = appendDedup(stream.Items, ids)
	return s.save(ctx, stream)
}

func (s *UserStreamStore) Prepend(ctx context.Context, streamId string, ids []string) error {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return err
	}
	stream.Items = prependDedup(stream.Items, ids)
	return s.save(ctx, stream)
}

func (s *UserStreamStore) RemoveItems(ctx context.Context, streamId string, ids []string) error {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return err
	}
	stream.Items = removeItems(stream.Items, ids)
	return s.save(ctx, stream)
}

// Items returns the full cached ordering of one relationship stream.
func (s *UserStreamStore) Items(ctx context.Context, streamId string) ([]string, error) {
	stream, err := s.get(ctx, streamId)
	if err != nil {
		return nil, err
	}
	return stream.Items, nil
}
