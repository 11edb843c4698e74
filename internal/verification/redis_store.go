package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeKeyPrefix = "verification:challenge:"

// RedisChallengeStore はRedisを使用したChallengeStore実装。
// TTLはRedisのキー有効期限に委譲し、照合と削除はWATCHトランザクションで
// キー単位のアトミック性を保証する。
type RedisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore はRedisChallengeStoreを生成する。
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func challengeKey(email string) string {
	return challengeKeyPrefix + email
}

// Put はチャレンジコードをTTL付きで保存する。同一キーの既存エントリはSETで置き換えられる。
func (s *RedisChallengeStore) Put(ctx context.Context, email string, challenge Challenge, ttl time.Duration) error {
	if err := s.client.Set(ctx, challengeKey(email), challenge.Code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// ConsumeIfMatch は候補コードを照合し、一致時にキーを削除する。
// WATCHトランザクションにより、並行する照合が同一コードを二重に消費することはない。
// キーが存在しない（未発行または期限切れ）場合はfalseを返す。
func (s *RedisChallengeStore) ConsumeIfMatch(ctx context.Context, email, candidate string) (bool, error) {
	const maxRetries = 4
	key := challengeKey(email)

	for i := 0; i < maxRetries; i++ {
		var matched bool

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			stored, err := tx.Get(ctx, key).Result()
			if err != nil {
				return err
			}

			if !codesMatch(stored, candidate) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = true
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			// 照合中にキーが書き換えられた。最新のチャレンジに対して再試行する。
			continue
		}
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to consume challenge: %w", err)
		}

		return matched, nil
	}

	return false, nil
}

// Delete は指定キーのチャレンジを削除する。
func (s *RedisChallengeStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, challengeKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}
