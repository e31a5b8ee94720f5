package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, prof user.Profile) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure("CreateUser"); err != nil {
		return user.User{}, err
	}

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = newID()
	repo.db.users[usr.ID] = &usr

	prof.UserID = usr.ID
	repo.db.profiles[usr.ID] = &prof
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetUserByID"); err != nil {
		return user.User{}, err
	}

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetUserByEmail"); err != nil {
		return user.User{}, err
	}

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure("UpdateUser"); err != nil {
		return user.User{}, err
	}

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, u := range repo.db.users {
		if u.ID != usr.ID && u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.CreatedAt = orig.CreatedAt
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetProfile(_ context.Context, userID string) (user.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetProfile"); err != nil {
		return user.Profile{}, err
	}

	if prof, ok := repo.db.profiles[userID]; ok {
		return *prof, nil
	}
	return user.Profile{}, user.ErrProfileNotFound
}

func (repo *userRepository) UpsertProfile(_ context.Context, prof user.Profile) (user.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure("UpsertProfile"); err != nil {
		return user.Profile{}, err
	}

	if orig, ok := repo.db.profiles[prof.UserID]; ok {
		prof.CreatedAt = orig.CreatedAt
	}
	repo.db.profiles[prof.UserID] = &prof
	return prof, nil
}

func (repo *userRepository) GetIdentity(_ context.Context, provider, subject string) (user.Identity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetIdentity"); err != nil {
		return user.Identity{}, err
	}

	if ident, ok := repo.db.identities[pairKey(provider, subject)]; ok {
		return *ident, nil
	}
	return user.Identity{}, user.ErrIdentityNotFound
}

func (repo *userRepository) CreateIdentity(_ context.Context, ident user.Identity) (user.Identity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure("CreateIdentity"); err != nil {
		return user.Identity{}, err
	}

	repo.db.identities[pairKey(ident.Provider, ident.Subject)] = &ident
	return ident, nil
}
