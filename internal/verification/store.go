package verification

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// Challenge はメールアドレスに紐付く単回使用の検証チャレンジを表す。
type Challenge struct {
	Code     string
	IssuedAt time.Time
}

// ChallengeStore は検証チャレンジの保管インターフェース。
// キーはメールアドレスであり、同一キーへのPutは既存チャレンジを置き換える。
// ConsumeIfMatchの照合と削除はキー単位でアトミックでなければならない。
type ChallengeStore interface {
	// Put はチャレンジをTTL付きで保存する。既存エントリは置き換えられる。
	Put(ctx context.Context, email string, challenge Challenge, ttl time.Duration) error

	// ConsumeIfMatch は候補コードを保存済みチャレンジと照合する。
	// 一致した場合はエントリを削除してtrueを返す（再照合は失敗する）。
	// エントリが存在しない、期限切れ、または不一致の場合はfalseを返す。
	ConsumeIfMatch(ctx context.Context, email, candidate string) (bool, error)

	// Delete は指定キーのチャレンジを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, email string) error
}

// codesMatch は候補コードを定数時間で照合する。
// 前方一致の桁数に比例した時間差を漏らさないため、crypto/subtleを使用する。
// 大文字小文字は区別される。
func codesMatch(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// memoryEntry はインメモリストアのエントリ。
type memoryEntry struct {
	challenge Challenge
	expiresAt time.Time
}

// MemoryChallengeStore はミューテックスで保護されたインメモリのChallengeStore実装。
// 開発プロファイルとテストで使用する。期限切れエントリは参照時に破棄され、
// バックグラウンドのスイープでも定期的に回収される。
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	stopCh  chan struct{}
}

// NewMemoryChallengeStore はMemoryChallengeStoreを生成し、
// バックグラウンドで期限切れエントリのスイープを開始する。
func NewMemoryChallengeStore(sweepInterval time.Duration) *MemoryChallengeStore {
	s := &MemoryChallengeStore{
		entries: make(map[string]memoryEntry),
		stopCh:  make(chan struct{}),
	}

	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}

	return s
}

// Put はチャレンジをTTL付きで保存する。既存エントリは置き換えられる。
func (s *MemoryChallengeStore) Put(_ context.Context, email string, challenge Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[email] = memoryEntry{
		challenge: challenge,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// ConsumeIfMatch は候補コードを照合し、一致時にエントリを削除する。
// ロック内で照合と削除を行うため、キー単位でアトミックである。
func (s *MemoryChallengeStore) ConsumeIfMatch(_ context.Context, email, candidate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok {
		return false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(s.entries, email)
		return false, nil
	}

	if !codesMatch(entry.challenge.Code, candidate) {
		return false, nil
	}

	delete(s.entries, email)
	return true, nil
}

// Delete は指定キーのチャレンジを削除する。
func (s *MemoryChallengeStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, email)
	return nil
}

// Stop はバックグラウンドスイープを停止する。
func (s *MemoryChallengeStore) Stop() {
	close(s.stopCh)
}

// Len は現在保持しているエントリ数を返す。テスト用。
func (s *MemoryChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweepLoop はバックグラウンドで期限切れエントリを定期的に回収する。
func (s *MemoryChallengeStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep は期限切れエントリを削除する。
func (s *MemoryChallengeStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for email, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, email)
		}
	}
}
