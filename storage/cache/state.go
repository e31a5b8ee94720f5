package cache

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	oauthsvc "github.com/trezcool/campus/services/oauth"
)

const statePrefix = "oauth_state:"

// RedisStateStore shares OAuth states between server instances.
type RedisStateStore struct {
	client redis.Cmdable
}

var _ oauthsvc.StateStore = (*RedisStateStore)(nil)

func NewRedisStateStore(client redis.Cmdable) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func stateKey(key string) string { return statePrefix + key }

func (s *RedisStateStore) Save(ctx context.Context, st oauthsvc.State) (string, error) {
	val, err := json.Marshal(st)
	if err != nil {
		return "", errors.Wrap(err, "encoding oauth state")
	}
	key := oauthsvc.NewStateKey()
	if err = s.client.Set(ctx, stateKey(key), val, oauthsvc.StateTTL).Err(); err != nil {
		return "", errors.Wrap(err, "saving oauth state")
	}
	return key, nil
}

// Take reads and deletes the state in one GETDEL, so a state is never used twice.
func (s *RedisStateStore) Take(ctx context.Context, key string) (oauthsvc.State, error) {
	if key == "" {
		return oauthsvc.State{}, oauthsvc.ErrInvalidState
	}
	val, err := s.client.GetDel(ctx, stateKey(key)).Bytes()
	if err == redis.Nil {
		return oauthsvc.State{}, oauthsvc.ErrInvalidState
	}
	if err != nil {
		return oauthsvc.State{}, errors.Wrap(err, "taking oauth state")
	}

	var st oauthsvc.State
	if err = json.Unmarshal(val, &st); err != nil {
		return oauthsvc.State{}, oauthsvc.ErrInvalidState
	}
	return st, nil
}
