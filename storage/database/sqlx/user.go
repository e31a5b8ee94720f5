package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	userCols     = []string{"id", "email", "password_hash", "is_active", "last_login", "created_at", "updated_at"}
	profileCols  = []string{"user_id", "role", "name", "created_at", "updated_at"}
	identityCols = []string{"provider", "subject", "user_id", "email", "created_at"}
)

type (
	userRow struct {
		ID           string     `db:"id"`
		Email        string     `db:"email"`
		PasswordHash null.Bytes `db:"password_hash"`
		IsActive     bool       `db:"is_active"`
		LastLogin    null.Time  `db:"last_login"`
		CreatedAt    null.Time  `db:"created_at"`
		UpdatedAt    null.Time  `db:"updated_at"`
	}

	profileRow struct {
		UserID    string      `db:"user_id"`
		Role      string      `db:"role"`
		Name      null.String `db:"name"`
		CreatedAt null.Time   `db:"created_at"`
		UpdatedAt null.Time   `db:"updated_at"`
	}

	identityRow struct {
		Provider  string      `db:"provider"`
		Subject   string      `db:"subject"`
		UserID    string      `db:"user_id"`
		Email     null.String `db:"email"`
		CreatedAt null.Time   `db:"created_at"`
	}
)

func (r userRow) unrow() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash.Bytes,
		LastLogin:    r.LastLogin.Time,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

func (r profileRow) unrow() user.Profile {
	return user.Profile{
		UserID:    r.UserID,
		Role:      r.Role,
		Name:      r.Name.String,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (r identityRow) unrow() user.Identity {
	return user.Identity{
		Provider:  r.Provider,
		Subject:   r.Subject,
		UserID:    r.UserID,
		Email:     r.Email.String,
		CreatedAt: r.CreatedAt.Time,
	}
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, prof user.Profile) (user.User, error) {
	var row userRow
	err := core.Transact(ctx, repo.db, func(tx core.DBExecutor) error {
		ins := psql.Insert(`"user"`).
			Columns("email", "password_hash", "is_active", "last_login", "created_at", "updated_at").
			Values(
				usr.Email,
				null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
				usr.IsActive,
				null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
				usr.CreatedAt.UTC(),
				usr.UpdatedAt.UTC(),
			).
			Suffix(returning(userCols))
		if err := get(ctx, tx, &row, ins); err != nil {
			if isUniqueViolation(err) {
				return user.ErrEmailExists
			}
			return errors.Wrap(err, "inserting user")
		}

		ins = psql.Insert("profile").
			Columns(profileCols...).
			Values(row.ID, prof.Role, null.NewString(prof.Name, prof.Name != ""), prof.CreatedAt.UTC(), prof.UpdatedAt.UTC())
		query, args, err := ins.ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "inserting profile")
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return row.unrow(), nil
}

func (repo userRepository) getUser(ctx context.Context, where sq.Eq) (user.User, error) {
	var row userRow
	sel := psql.Select(userCols...).From(`"user"`).Where(where)
	if err := get(ctx, repo.db, &row, sel); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return row.unrow(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if !isUUID(id) {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, sq.Eq{"id": id})
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, sq.Eq{"email": email})
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !isUUID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	upd := psql.Update(`"user"`).
		SetMap(map[string]interface{}{
			"email":         usr.Email,
			"password_hash": null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
			"is_active":     usr.IsActive,
			"last_login":    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
			"updated_at":    usr.UpdatedAt.UTC(),
		}).
		Where(sq.Eq{"id": usr.ID}).
		Suffix(returning(userCols))
	if err := get(ctx, repo.db, &row, upd); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.unrow(), nil
}

func (repo userRepository) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	if !isUUID(userID) {
		return user.Profile{}, user.ErrProfileNotFound
	}
	var row profileRow
	sel := psql.Select(profileCols...).From("profile").Where(sq.Eq{"user_id": userID})
	if err := get(ctx, repo.db, &row, sel); err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrProfileNotFound, "selecting profile")
	}
	return row.unrow(), nil
}

func (repo userRepository) UpsertProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	var row profileRow
	ins := psql.Insert("profile").
		Columns(profileCols...).
		Values(prof.UserID, prof.Role, null.NewString(prof.Name, prof.Name != ""), prof.CreatedAt.UTC(), prof.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, name = EXCLUDED.name, updated_at = EXCLUDED.updated_at " +
			returning(profileCols))
	if err := get(ctx, repo.db, &row, ins); err != nil {
		return user.Profile{}, errors.Wrap(err, "upserting profile")
	}
	return row.unrow(), nil
}

func (repo userRepository) GetIdentity(ctx context.Context, provider, subject string) (user.Identity, error) {
	var row identityRow
	sel := psql.Select(identityCols...).From("identity").
		Where(sq.Eq{"provider": provider, "subject": subject})
	if err := get(ctx, repo.db, &row, sel); err != nil {
		return user.Identity{}, trapNoRowsErr(err, user.ErrIdentityNotFound, "selecting identity")
	}
	return row.unrow(), nil
}

func (repo userRepository) CreateIdentity(ctx context.Context, ident user.Identity) (user.Identity, error) {
	var row identityRow
	ins := psql.Insert("identity").
		Columns(identityCols...).
		Values(ident.Provider, ident.Subject, ident.UserID, null.NewString(ident.Email, ident.Email != ""), ident.CreatedAt.UTC()).
		Suffix(returning(identityCols))
	if err := get(ctx, repo.db, &row, ins); err != nil {
		return user.Identity{}, errors.Wrap(err, "inserting identity")
	}
	return row.unrow(), nil
}
