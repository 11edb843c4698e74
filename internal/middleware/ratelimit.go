package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate       rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst      int           // API全般のバーストサイズ
	VerificationRate  rate.Limit    // 検証コード発行のレート（req/sec）。5/60
	VerificationBurst int           // 検証コード発行のバーストサイズ
	CleanupInterval   time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 要件: API全般 120 req/min/クライアントIP、検証コード発行 5 req/min/メールアドレス
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:       rate.Limit(120.0 / 60.0), // 2 req/sec
		GeneralBurst:      120,
		VerificationRate:  rate.Limit(5.0 / 60.0), // ~0.083 req/sec
		VerificationBurst: 5,
		CleanupInterval:   5 * time.Minute,
	}
}

// keyedLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はキーごとのレート制限を管理する。
// クライアントIP単位のAPI全般制限と、メールアドレス単位の
// 検証コード発行制限の2種類を提供する。
// 認証前のエンドポイントを守るため、クライアントIPをキーにする。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*keyedLimiter

	verificationMu       sync.RWMutex
	verificationLimiters map[string]*keyedLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:               config,
		generalLimiters:      make(map[string]*keyedLimiter),
		verificationLimiters: make(map[string]*keyedLimiter),
		stopCh:               make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はクライアントIP単位のAPI全般レート制限ミドルウェアを返す。
// 認証前のエンドポイント（ログイン、検証コード要求）にも適用できる。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := clientIPFromRequest(r)

			limiter := rl.getOrCreateLimiter(
				&rl.generalMu, rl.generalLimiters, clientIP,
				rl.config.GeneralRate, rl.config.GeneralBurst,
			)

			if !limiter.Allow() {
				WriteRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", clientIP),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AllowVerification はメールアドレス単位の検証コード発行制限を判定する。
// コード要求のキーはリクエストボディのメールアドレスであるため、
// ミドルウェアではなくボディを解析したハンドラーから呼び出す。
func (rl *RateLimiter) AllowVerification(email string) bool {
	limiter := rl.getOrCreateLimiter(
		&rl.verificationMu, rl.verificationLimiters, email,
		rl.config.VerificationRate, rl.config.VerificationBurst,
	)

	if !limiter.Allow() {
		slog.Warn("rate limit exceeded",
			slog.String("email", email),
			slog.String("limit_type", "verification"),
		)
		return false
	}
	return true
}

// VerificationRate は検証コード発行制限のレートを返す。Retry-After算出用。
func (rl *RateLimiter) VerificationRate() rate.Limit {
	return rl.config.VerificationRate
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	rl.generalMu.RLock()
	defer rl.generalMu.RUnlock()
	return len(rl.generalLimiters)
}

// VerificationLimiterCount は現在管理されている検証コード発行リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) VerificationLimiterCount() int {
	rl.verificationMu.RLock()
	defer rl.verificationMu.RUnlock()
	return len(rl.verificationLimiters)
}

// getOrCreateLimiter はキーに対応するリミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateLimiter(
	mu *sync.RWMutex,
	limiters map[string]*keyedLimiter,
	key string,
	r rate.Limit,
	burst int,
) *rate.Limiter {
	mu.RLock()
	kl, exists := limiters[key]
	mu.RUnlock()

	if exists {
		mu.Lock()
		kl.lastAccess = time.Now()
		mu.Unlock()
		return kl.limiter
	}

	mu.Lock()
	defer mu.Unlock()

	// ダブルチェック
	if kl, exists := limiters[key]; exists {
		kl.lastAccess = time.Now()
		return kl.limiter
	}

	limiter := rate.NewLimiter(r, burst)
	limiters[key] = &keyedLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.generalMu.Lock()
	for key, kl := range rl.generalLimiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(rl.generalLimiters, key)
		}
	}
	rl.generalMu.Unlock()

	rl.verificationMu.Lock()
	for key, kl := range rl.verificationLimiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(rl.verificationLimiters, key)
		}
	}
	rl.verificationMu.Unlock()
}

// clientIPFromRequest はレート制限のキーとなるクライアントIPを取得する。
// リバースプロキシ配下ではX-Forwarded-Forの先頭アドレスを優先する。
func clientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WriteRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func WriteRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "Too many requests. Please try again later.",
		"category": "system",
	})
}
