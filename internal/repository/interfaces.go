// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/applyman/internal/model"
)

// PersonRepository は人物アカウントの永続化インターフェース。
// アカウントワークフローが消費するクレデンシャルストア契約を表す。
type PersonRepository interface {
	// FindByUsername は指定ユーザー名の人物を取得する。見つからない場合はnilを返す。
	// パスワードの照合はサービス層がbcryptで行う。
	FindByUsername(ctx context.Context, username string) (*model.Person, error)

	// FindByEmail は指定メールアドレスの人物を取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Person, error)

	// CreateOrUpdate は人物アカウントをメールアドレスをキーにUPSERTする。
	// 新規作成時はIDとタイムスタンプを採番し、更新時はフォームの内容で
	// プロフィールとパスワードハッシュを上書きする。作成/更新後の行を返す。
	CreateOrUpdate(ctx context.Context, person *model.Person) (*model.Person, error)
}
