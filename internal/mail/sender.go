// Package mail は検証コードのメール配送を提供する。
// アカウントワークフローからは「アドレスにコードを送る」契約としてのみ消費される。
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// Sender は検証コードの配送インターフェース。
type Sender interface {
	// Dispatch は指定アドレスに検証コードを送信する。
	// 配送基盤の障害時はエラーを返す。
	Dispatch(ctx context.Context, address, code string) error
}

// SMTPConfig はSMTP配送の設定。
type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

// SMTPSender はSMTP経由で検証コードを送信するSender実装。
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// Dispatch はSMTPで検証コードメールを送信する。
// リクエストコンテキストがキャンセル済みの場合は送信せずエラーを返す。
func (s *SMTPSender) Dispatch(ctx context.Context, address, code string) error {
	// net/smtpは接続後のキャンセルを伝播できないため、送信前にのみ確認する
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail dispatch canceled: %w", err)
	}

	msg := buildMessage(s.config.From, address, code)

	addr := s.config.Host + ":" + s.config.Port
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{address}, msg); err != nil {
		return fmt.Errorf("failed to send verification mail: %w", err)
	}

	return nil
}

// buildMessage はRFC 5322形式のメール本文を構築する。
func buildMessage(from, to, code string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Your verification code is: " + code + "\r\n")
	return []byte(b.String())
}

// LogSender は実際の送信を行わず、ログにのみ記録するSender実装。
// SMTP未設定の開発環境およびテストで使用する。
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender はLogSenderを生成する。
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Dispatch はコードをログに記録する。コード本体はdebugレベルでのみ出力する。
func (s *LogSender) Dispatch(ctx context.Context, address, code string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail dispatch canceled: %w", err)
	}

	s.logger.Info("検証コードメールを送信しました（ログ出力のみ）",
		slog.String("address", address),
	)
	s.logger.Debug("検証コード",
		slog.String("address", address),
		slog.String("code", code),
	)
	return nil
}

// LatencyObserver は配送レイテンシの記録先。
type LatencyObserver interface {
	RecordMailDispatchLatency(duration time.Duration)
}

// InstrumentedSender は内側のSenderの配送レイテンシを計測するデコレータ。
type InstrumentedSender struct {
	next     Sender
	observer LatencyObserver
}

// NewInstrumentedSender はInstrumentedSenderを生成する。
func NewInstrumentedSender(next Sender, observer LatencyObserver) *InstrumentedSender {
	return &InstrumentedSender{next: next, observer: observer}
}

// Dispatch は内側のSenderに委譲し、成否にかかわらずレイテンシを記録する。
func (s *InstrumentedSender) Dispatch(ctx context.Context, address, code string) error {
	start := time.Now()
	err := s.next.Dispatch(ctx, address, code)
	s.observer.RecordMailDispatchLatency(time.Since(start))
	return err
}
