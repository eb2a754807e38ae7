package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// userRow stores empty usernames and emails as NULL so that they stay out of the unique indexes.
type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		Roles:        pq.StringArray(usr.Roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	return row
}

func (row userRow) user() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		Roles:        []string(row.Roles),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var f filters
	f.add("(username = ? OR email = ?)", null.NewString(username, username != ""), null.NewString(email, email != ""))
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		f.add("id <> ALL(?::uuid[])", pq.StringArray(ids))
	}

	var taken []userRow
	if err := repo.db.selectAll(ctx, &taken, `SELECT `+userColumns+` FROM "user"`+f.where(), f.args...); err != nil {
		return repo.db.fail("checking username uniqueness", err, nil)
	}
	for _, row := range taken {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	err := repo.db.namedExec(ctx, `
		INSERT INTO "user" (`+userColumns+`)
		VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`,
		newUserRow(usr),
	)
	if err != nil {
		return user.User{}, repo.db.fail("inserting user", err, nil)
	}
	return usr, nil
}

var userOrderColumns = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"last_login": "last_login",
	"created_at": "created_at",
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var f filters
	if filter != nil {
		f.search(filter.Search, "name", "username", "email")
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				patterns = append(patterns, escapeLike(role)+"%")
			}
			f.add("EXISTS (SELECT 1 FROM unnest(roles) r WHERE r LIKE ANY(?))", pq.StringArray(patterns))
		}
		if filter.IsActive != nil {
			f.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			f.add("created_at >= ?", filter.CreatedFrom)
		}
		if !filter.CreatedTo.IsZero() {
			f.add("created_at <= ?", filter.CreatedTo)
		}
	}

	var rows []userRow
	query := `SELECT ` + userColumns + ` FROM "user"` + f.where() + orderBy(ordering, userOrderColumns, "created_at ASC")
	if err := repo.db.selectAll(ctx, &rows, query, f.args...); err != nil {
		return nil, repo.db.fail("querying users", err, nil)
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var f filters
	switch {
	case filter.ID != "":
		f.add("id = ?", filter.ID)
	case filter.Username != "":
		f.add("username = ?", filter.Username)
	case filter.Email != "":
		f.add("email = ?", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		uname, email := filter.UsernameOrEmail[0], filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
		f.add("(username = ? OR email = ?)", uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.get(ctx, &row, `SELECT `+userColumns+` FROM "user"`+f.where()+` LIMIT 1`, f.args...); err != nil {
		return user.User{}, repo.db.fail("getting user", err, user.ErrNotFound)
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := newUserRow(usr)
	n, err := repo.db.exec(ctx, `
		UPDATE "user"
		SET name = ?, username = ?, email = ?, is_active = ?, roles = ?, password_hash = ?, updated_at = ?, last_login = ?
		WHERE id = ?`,
		row.Name, row.Username, row.Email, row.IsActive, row.Roles, row.PasswordHash, row.UpdatedAt, row.LastLogin, row.ID,
	)
	if err != nil {
		return user.User{}, repo.db.fail("updating user", err, user.ErrNotFound)
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := repo.db.exec(ctx, `DELETE FROM "user" WHERE id = ANY(?::uuid[])`, pq.StringArray(ids))
	if err != nil {
		return 0, repo.db.fail("deleting users", err, nil)
	}
	return int(n), nil
}
