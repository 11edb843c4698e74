// Package model はドメインモデルを定義する。
package model

import "time"

// RoleID は人物の役割（リクルーター/応募者）を表す。
type RoleID int

const (
	// RoleRecruiter はリクルーター役割を示す。
	RoleRecruiter RoleID = 1
	// RoleApplicant は応募者役割を示す。
	RoleApplicant RoleID = 2
)

// Name は役割の表示名を返す。未定義の値には空文字列を返す。
func (r RoleID) Name() string {
	switch r {
	case RoleRecruiter:
		return "recruiter"
	case RoleApplicant:
		return "applicant"
	default:
		return ""
	}
}

// Person は採用応募サービスの利用者（応募者またはリクルーター）を表す。
// PasswordHashはbcryptハッシュであり、APIレスポンスには決して含めない。
type Person struct {
	ID                  string
	FirstName           string
	LastName            string
	Email               string
	PersonNumber        string
	Username            string
	PasswordHash        string
	RoleID              RoleID
	ApplicationStatusID *int64 // 応募者のみ。リクルーターはnil。
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// FullName は姓名を連結した表示名を返す。
func (p *Person) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// RegistrationForm はサインアップフォームから送信される登録データを表す。
// Passwordは平文のままサービス層に渡され、永続化前にハッシュ化される。
type RegistrationForm struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	PersonNumber string `json:"personNumber"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}
