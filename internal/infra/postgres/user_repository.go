package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mockprep-service/internal/domain"
)

// UserRepository stores accounts in Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateUser(ctx context.Context, user domain.User, passwordHash string) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, purpose, password_hash) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, user.Email, user.Purpose, passwordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, string, error) {
	var user domain.User
	var hash string
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, purpose, password_hash FROM users WHERE email=$1`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Purpose, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, "", domain.ErrUserNotFound
		}
		return domain.User{}, "", fmt.Errorf("find user: %w", err)
	}
	return user, hash, nil
}
