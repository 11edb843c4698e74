package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrChallengeStore はチャレンジストアとの通信に失敗したことを示す。
// ErrMailDispatch はコード配送メールの送信に失敗したことを示す。
// 呼び出し側はerrors.Isで障害箇所を判別できる。
var (
	ErrChallengeStore = errors.New("challenge store failure")
	ErrMailDispatch   = errors.New("mail dispatch failure")
)

// MailSender はコード配送の契約。mail.Senderの部分集合として定義する。
type MailSender interface {
	Dispatch(ctx context.Context, address, code string) error
}

// ServiceConfig は検証コードサービスの設定。
type ServiceConfig struct {
	CodeLength int           // コード桁数（デフォルト6）
	TTL        time.Duration // チャレンジの有効期間（デフォルト10分）
}

// Service は検証コードの発行・配送・照合を提供する。
// チャレンジはメールアドレスごとにキー付けされるため、異なるメールアドレスの
// 登録が並行しても互いのチャレンジを上書きしない。
type Service struct {
	store  ChallengeStore
	sender MailSender
	config ServiceConfig
}

// NewService はServiceを生成する。
func NewService(store ChallengeStore, sender MailSender, config ServiceConfig) *Service {
	if config.CodeLength == 0 {
		config.CodeLength = 6
	}
	if config.TTL == 0 {
		config.TTL = 10 * time.Minute
	}
	return &Service{
		store:  store,
		sender: sender,
		config: config,
	}
}

// Send は新しい検証コードを生成し、保存してメール配送する。
// 同一メールアドレスの既存チャレンジは置き換えられ、古いコードは無効になる。
// この呼び出しの成功後、当該アドレスのチャレンジはちょうど1件となる。
// メール配送に失敗した場合は保存したチャレンジを破棄してエラーを返す。
func (s *Service) Send(ctx context.Context, email string) (string, error) {
	code, err := GenerateCode(s.config.CodeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	challenge := Challenge{
		Code:     code,
		IssuedAt: time.Now(),
	}

	if err := s.store.Put(ctx, email, challenge, s.config.TTL); err != nil {
		return "", fmt.Errorf("failed to store verification challenge: %w: %w", ErrChallengeStore, err)
	}

	if err := s.sender.Dispatch(ctx, email, code); err != nil {
		// 届いていないコードを照合可能なまま残さない
		if delErr := s.store.Delete(ctx, email); delErr != nil {
			slog.Error("未配送チャレンジの破棄に失敗しました",
				slog.String("error", delErr.Error()),
			)
		}
		return "", fmt.Errorf("failed to dispatch verification code: %w: %w", ErrMailDispatch, err)
	}

	slog.Info("検証コードを発行しました",
		slog.String("email", email),
		slog.Duration("ttl", s.config.TTL),
	)

	return code, nil
}

// Check は候補コードを当該メールアドレスの未消費チャレンジと照合する。
// 照合は定数時間かつ大文字小文字を区別して行われる。
// 一致した場合はチャレンジが消費され、同一コードでの再照合は失敗する。
// チャレンジが存在しない（未発行・期限切れ・置換済み）場合はfalseを返す。
func (s *Service) Check(ctx context.Context, email, candidate string) (bool, error) {
	if candidate == "" {
		return false, nil
	}

	matched, err := s.store.ConsumeIfMatch(ctx, email, candidate)
	if err != nil {
		return false, fmt.Errorf("failed to check verification code: %w: %w", ErrChallengeStore, err)
	}

	if !matched {
		slog.Warn("検証コードの照合に失敗しました",
			slog.String("email", email),
		)
	}

	return matched, nil
}
