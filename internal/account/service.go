// Package account はログインとメール検証付きアカウント登録のドメインロジックを提供する。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/applyman/internal/model"
	"github.com/hitoshi/applyman/internal/repository"
	"github.com/hitoshi/applyman/internal/security"
	"github.com/hitoshi/applyman/internal/verification"
)

// CodeVerifier は検証コードの発行と照合の契約。verification.Serviceが実装する。
type CodeVerifier interface {
	Send(ctx context.Context, email string) (string, error)
	Check(ctx context.Context, email, candidate string) (bool, error)
}

// MetricsRecorder はアカウント操作のメトリクス記録の契約。
type MetricsRecorder interface {
	RecordLoginAttempt(success bool)
	RecordCodeIssued()
	RecordCodeCheck(matched bool)
	RecordRegistration()
}

// Service はアカウントワークフローのサービス層。
// ログイン認証、検証コードの要求、コード照合を経た登録の確定を提供する。
type Service struct {
	personRepo repository.PersonRepository
	verifier   CodeVerifier
	sanitizer  security.FormSanitizer
	metrics    MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	personRepo repository.PersonRepository,
	verifier CodeVerifier,
	sanitizer security.FormSanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		personRepo: personRepo,
		verifier:   verifier,
		sanitizer:  sanitizer,
		metrics:    metrics,
	}
}

// Login はユーザー名とパスワードで認証し、一致した人物を返す。
// ユーザー名が存在しない場合もパスワードが一致しない場合も同一の
// 認証失敗エラーを返し、どちらが原因かを漏らさない。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Person, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, model.NewMalformedRequestError("ユーザー名とパスワードは必須です")
	}

	person, err := s.personRepo.FindByUsername(ctx, username)
	if err != nil {
		slog.Error("人物の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewCredentialStoreError()
	}

	if person == nil {
		s.metrics.RecordLoginAttempt(false)
		return nil, model.NewAuthenticationFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(person.PasswordHash), []byte(password)); err != nil {
		s.metrics.RecordLoginAttempt(false)
		slog.Warn("ログイン認証に失敗しました",
			slog.String("username", username),
		)
		return nil, model.NewAuthenticationFailedError()
	}

	s.metrics.RecordLoginAttempt(true)
	slog.Info("ログインに成功しました",
		slog.String("person_id", person.ID),
		slog.Int("role_id", int(person.RoleID)),
	)

	return person, nil
}

// RequestVerification は指定メールアドレスへ検証コードを発行・配送する。
// 再要求は既存チャレンジを置き換え、最後に発行したコードのみが有効となる。
func (s *Service) RequestVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !isPlausibleEmail(email) {
		return model.NewMalformedRequestError("メールアドレスの形式が不正です")
	}

	if _, err := s.verifier.Send(ctx, email); err != nil {
		return mapVerificationError(err)
	}

	s.metrics.RecordCodeIssued()
	return nil
}

// VerifyAndRegister は候補コードを照合し、一致した場合のみ登録フォームの
// 内容でアカウントを作成または更新する。コードは一致時に消費され、
// 同一コードでの再登録はできない。不一致の場合は資格情報ストアに一切触れない。
func (s *Service) VerifyAndRegister(ctx context.Context, code string, form model.RegistrationForm) (*model.Person, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := validateForm(form); err != nil {
		return nil, err
	}

	matched, err := s.verifier.Check(ctx, form.Email, code)
	if err != nil {
		return nil, mapVerificationError(err)
	}
	if !matched {
		s.metrics.RecordCodeCheck(false)
		return nil, model.NewVerificationMismatchError()
	}
	s.metrics.RecordCodeCheck(true)

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	// 同一メールアドレスの既存アカウントは再登録でプロフィールと
	// パスワードを更新する。その際、既存のIDとロールは引き継ぐ。
	existing, err := s.personRepo.FindByEmail(ctx, form.Email)
	if err != nil {
		slog.Error("既存アカウントの照会に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewCredentialStoreError()
	}

	person := &model.Person{
		FirstName:    s.sanitizer.SanitizeText(form.FirstName),
		LastName:     s.sanitizer.SanitizeText(form.LastName),
		Email:        form.Email,
		PersonNumber: s.sanitizer.SanitizeText(form.PersonNumber),
		Username:     s.sanitizer.SanitizeText(form.Username),
		PasswordHash: string(hash),
		RoleID:       model.RoleApplicant,
	}
	if existing != nil {
		person.ID = existing.ID
		person.RoleID = existing.RoleID
	}

	saved, err := s.personRepo.CreateOrUpdate(ctx, person)
	if err != nil {
		slog.Error("アカウントの永続化に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewCredentialStoreError()
	}

	if existing == nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("アカウント登録が完了しました",
		slog.String("person_id", saved.ID),
	)

	return saved, nil
}

// mapVerificationError は検証サービスの障害を協調コンポーネント別のAPIErrorへ変換する。
func mapVerificationError(err error) error {
	switch {
	case errors.Is(err, verification.ErrMailDispatch):
		return model.NewMailDispatchError()
	case errors.Is(err, verification.ErrChallengeStore):
		return model.NewChallengeStoreError()
	default:
		return fmt.Errorf("検証コード処理に失敗しました: %w", err)
	}
}

// validateForm は登録フォームの必須項目を検査する。
func validateForm(form model.RegistrationForm) error {
	switch {
	case form.FirstName == "" || form.LastName == "":
		return model.NewMalformedRequestError("氏名は必須です")
	case !isPlausibleEmail(form.Email):
		return model.NewMalformedRequestError("メールアドレスの形式が不正です")
	case form.Username == "":
		return model.NewMalformedRequestError("ユーザー名は必須です")
	case form.Password == "":
		return model.NewMalformedRequestError("パスワードは必須です")
	default:
		return nil
	}
}

// isPlausibleEmail はメールアドレスの最低限の形式検査を行う。
// 厳密なRFC検証は行わず、配送可能性はメール配送自体に委ねる。
func isPlausibleEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
