package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/citypulse/cityhub/internal/domain/user"
	"github.com/citypulse/cityhub/internal/observability"
	"github.com/citypulse/cityhub/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsersStore is the document-database flavoured credential store on Postgres.
// Email uniqueness is enforced by the unique index on users(email); the
// 23505 mapping below is what surfaces a lost duplicate-signup race.
type UsersStore struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersStore(pool *pgxpool.Pool, prom *observability.Prom) *UsersStore {
	return &UsersStore{pool: pool, prom: prom}
}

func (r *UsersStore) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	return false
}

const userColumns = `id, email, password_hash, display_name, user_name, notifications, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.DisplayName,
		&u.UserName,
		&u.Preferences.Notifications,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, store.ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersStore) Create(ctx context.Context, nu store.NewUser) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Preferences:  nu.Preferences,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users(id, email, password_hash, display_name, user_name, notifications, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			u.ID, u.Email, u.PasswordHash, u.DisplayName, u.UserName, u.Preferences.Notifications, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, store.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersStore) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersStore) Update(ctx context.Context, id string, upd store.UserUpdate) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.update", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			 SET display_name  = COALESCE($2, display_name),
			     user_name     = COALESCE($3, user_name),
			     notifications = COALESCE($4, notifications),
			     updated_at    = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, upd.DisplayName, upd.UserName, notificationsArg(upd.Preferences)))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// notificationsArg flattens the optional preferences block into the single
// column backing it.
func notificationsArg(p *user.Preferences) *bool {
	if p == nil {
		return nil
	}

	return &p.Notifications
}
