package utils

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// ReadMarkerStore keeps the viewer's read markers: the per-user lastRead
// notification cursor and per-post read flags. Markers are a display nicety,
// not part of the cached content, so they live in redis rather than in the
// cache tables.
type ReadMarkerStore struct {
	inner *redis.Client
}

const (
	// Redis only has string type, there is no boolean or int, so we use "1" to represent true
	RedisTrue = "1"

	readMarkerDelimiter = "__"
)

var ctx = context.Background()

func GetReadMarkerStore() (*ReadMarkerStore, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
	_, err := redisClient.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	return &ReadMarkerStore{inner: redisClient}, nil
}

func lastReadKey(userId string) string {
	return "lastread" + readMarkerDelimiter + userId
}

func postReadKey(userId string, postId string) string {
	return userId + readMarkerDelimiter + postId
}

// GetLastRead returns the viewer's notification lastRead cursor, 0 when the
// viewer never read any notification.
func (r *ReadMarkerStore) GetLastRead(userId string) (int64, error) {
	res, err := r.inner.Get(ctx, lastReadKey(userId)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(res, 10, 64)
}

// SetLastRead advances the viewer's notification lastRead cursor.
func (r *ReadMarkerStore) SetLastRead(userId string, timestamp int64) error {
	return r.inner.Set(ctx, lastReadKey(userId), strconv.FormatInt(timestamp, 10), 0).Err()
}

// GetPostsReadStatus returns a read flag per post id, in input order.
func (r *ReadMarkerStore) GetPostsReadStatus(postIds []string, userId string) ([]bool, error) {
	if len(postIds) == 0 {
		return []bool{}, nil
	}

	postKeys := []string{}
	for _, pid := range postIds {
		postKeys = append(postKeys, postReadKey(userId, pid))
	}

	res, err := r.inner.MGet(ctx, postKeys...).Result()
	if err != nil {
		return nil, err
	}
	status := []bool{}
	for _, v := range res {
		status = append(status, v == RedisTrue)
	}
	return status, nil
}

// MarkPostsAsRead flags the given posts as read for the viewer. MSetNX
// rejects an empty argument list, so an empty batch is a no-op here.
func (r *ReadMarkerStore) MarkPostsAsRead(postIds []string, userId string) error {
	if len(postIds) == 0 {
		return nil
	}
	keyValues := []interface{}{}
	for _, pid := range postIds {
		keyValues = append(keyValues, postReadKey(userId, pid))
		keyValues = append(keyValues, RedisTrue)
	}
	return r.inner.MSetNX(ctx, keyValues...).Err()
}
