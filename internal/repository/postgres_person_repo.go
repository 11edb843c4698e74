package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/applyman/internal/model"
)

// PostgresPersonRepo はPostgreSQLを使用した人物アカウントリポジトリ。
type PostgresPersonRepo struct {
	db *sql.DB
}

// NewPostgresPersonRepo はPostgresPersonRepoを生成する。
func NewPostgresPersonRepo(db *sql.DB) *PostgresPersonRepo {
	return &PostgresPersonRepo{db: db}
}

const personColumns = `id, first_name, last_name, email, person_number, username, password_hash, role_id, application_status_id, created_at, updated_at`

// FindByUsername は指定ユーザー名の人物を取得する。見つからない場合はnilを返す。
func (r *PostgresPersonRepo) FindByUsername(ctx context.Context, username string) (*model.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE username = $1`,
		username,
	)

	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find person by username: %w", err)
	}

	return person, nil
}

// FindByEmail は指定メールアドレスの人物を取得する。見つからない場合はnilを返す。
func (r *PostgresPersonRepo) FindByEmail(ctx context.Context, email string) (*model.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE email = $1`,
		email,
	)

	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find person by email: %w", err)
	}

	return person, nil
}

// CreateOrUpdate は人物アカウントをメールアドレスをキーにUPSERTする。
// 検証コードの照合に成功した登録でのみ呼び出されることを前提とする。
func (r *PostgresPersonRepo) CreateOrUpdate(ctx context.Context, person *model.Person) (*model.Person, error) {
	id := person.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO persons (id, first_name, last_name, email, person_number, username, password_hash, role_id, application_status_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 ON CONFLICT (email) DO UPDATE SET
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     person_number = EXCLUDED.person_number,
		     username = EXCLUDED.username,
		     password_hash = EXCLUDED.password_hash,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+personColumns,
		id, person.FirstName, person.LastName, person.Email, person.PersonNumber,
		person.Username, person.PasswordHash, int64(person.RoleID), person.ApplicationStatusID, now,
	)

	created, err := scanPerson(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert person: %w", err)
	}

	return created, nil
}

// scanPerson は1行をmodel.Personにスキャンする。
func scanPerson(row *sql.Row) (*model.Person, error) {
	person := &model.Person{}
	var roleID int64
	var appStatusID sql.NullInt64

	err := row.Scan(
		&person.ID, &person.FirstName, &person.LastName, &person.Email,
		&person.PersonNumber, &person.Username, &person.PasswordHash,
		&roleID, &appStatusID, &person.CreatedAt, &person.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	person.RoleID = model.RoleID(roleID)
	if appStatusID.Valid {
		person.ApplicationStatusID = &appStatusID.Int64
	}

	return person, nil
}
