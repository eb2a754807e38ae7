package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

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

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	defer repo.db.lock(ctx)()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.db.tables.users {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	usr.ID = uuid.New().String()
	usr.Roles = append([]string(nil), usr.Roles...)
	repo.db.tables.users[usr.ID] = usr
	return usr, nil
}

func hasRolePrefix(usr user.User, prefixes []string) bool {
	for _, prefix := range prefixes {
		if usr.RoleStartsWith(prefix) {
			return true
		}
	}
	return false
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	defer repo.db.lock(ctx)()

	users := make([]user.User, 0, len(repo.db.tables.users))
	for _, usr := range repo.db.tables.users {
		if filter != nil {
			if filter.Search != "" && !contains(filter.Search, usr.Name, usr.Username, usr.Email) {
				continue
			}
			if len(filter.Roles) > 0 && !hasRolePrefix(usr, filter.Roles) {
				continue
			}
			if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
				continue
			}
			if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
				continue
			}
		}
		users = append(users, usr)
	}

	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareUsers(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			return (c < 0) == ord.Ascending
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "last_login":
		return a.LastLogin.Compare(b.LastLogin)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	defer repo.db.lock(ctx)()

	if filter.ID != "" {
		if usr, ok := repo.db.tables.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	match := func(usr user.User) bool { return false }
	switch {
	case filter.Username != "":
		match = func(usr user.User) bool { return usr.Username == filter.Username }
	case filter.Email != "":
		match = func(usr user.User) bool { return usr.Email == filter.Email }
	case len(filter.UsernameOrEmail) > 0:
		uname, email := filter.UsernameOrEmail[0], filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
		match = func(usr user.User) bool {
			return (uname != "" && usr.Username == uname) || (email != "" && usr.Email == email)
		}
	}
	for _, usr := range repo.db.tables.users {
		if match(usr) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tables.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Roles = append([]string(nil), usr.Roles...)
	repo.db.tables.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	defer repo.db.lock(ctx)()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.tables.users[id]; ok {
			delete(repo.db.tables.users, id)
			n++
		}
	}
	return n, nil
}
