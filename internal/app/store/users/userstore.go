package userstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/siberialife/siberialife/internal/app/system/normalize"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxNameLen bounds User.Name (in characters).
const MaxNameLen = 100

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrInvalid wraps every field validation failure.
	ErrInvalid = errors.New("invalid user")
)

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// withoutPassword keeps the hash out of every public read.
var withoutPassword = bson.M{"password": 0}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Validate checks the field rules shared by create and update.
func Validate(u models.User) error {
	switch {
	case u.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case utf8.RuneCountInString(u.Name) > MaxNameLen:
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalid, MaxNameLen)
	case !emailRe.MatchString(u.Email):
		return fmt.Errorf("%w: please provide a valid email", ErrInvalid)
	case !models.IsValidUserRole(u.Role):
		return fmt.Errorf("%w: unknown role %q", ErrInvalid, u.Role)
	}
	return nil
}

// Create inserts a new user. Password must already be hashed. Defaults are
// applied for role, join date and token balance. The returned user carries
// no password.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.Role == "" {
		u.Role = models.RoleParticipant
	}
	now := time.Now().UTC()
	if u.JoinDate.IsZero() {
		u.JoinDate = now
	}
	if u.Tokens == 0 {
		u.Tokens = models.DefaultUserTokens
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	if err := Validate(u); err != nil {
		return models.User{}, err
	}
	if u.Password == "" {
		return models.User{}, fmt.Errorf("%w: password is required", ErrInvalid)
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	u.Password = ""
	return u, nil
}

// EmailExists reports whether any user has email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email": normalize.Email(email)}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID loads a user by ObjectID without the password hash.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, false)
}

// GetByEmail loads a user by email without the password hash.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)}, false)
}

// GetByEmailWithPassword is the credential read used by login.
func (s *Store) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)}, true)
}

// GetByIDWithPassword is the credential read used by password change.
func (s *Store) GetByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, true)
}

func (s *Store) findOne(ctx context.Context, filter bson.M, withHash bool) (*models.User, error) {
	opts := options.FindOne()
	if !withHash {
		opts.SetProjection(withoutPassword)
	}
	var u models.User
	if err := s.c.FindOne(ctx, filter, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ProfileUpdate holds the optional profile fields. Nil fields are untouched.
type ProfileUpdate struct {
	Name   *string
	Avatar *string
}

// Empty reports whether no field is set.
func (p ProfileUpdate) Empty() bool { return p.Name == nil && p.Avatar == nil }

// UpdateProfile applies upd and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalid)
		}
		if utf8.RuneCountInString(name) > MaxNameLen {
			return nil, fmt.Errorf("%w: name must be at most %d characters", ErrInvalid, MaxNameLen)
		}
		set["name"] = name
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	return s.updateOne(ctx, id, set)
}

// SetAvatar replaces the avatar path and returns the updated user.
func (s *Store) SetAvatar(ctx context.Context, id primitive.ObjectID, avatar string) (*models.User, error) {
	return s.updateOne(ctx, id, bson.M{"avatar": avatar, "updated_at": time.Now().UTC()})
}

func (s *Store) updateOne(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)
	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdatePassword stores a new hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password":   hash,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncStat adds delta to one of the stats counters (events, reviews, posts).
func (s *Store) IncStat(ctx context.Context, id primitive.ObjectID, stat string, delta int) error {
	switch stat {
	case "events", "reviews", "posts":
	default:
		return fmt.Errorf("%w: unknown stat %q", ErrInvalid, stat)
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stats." + stat: delta}})
	return err
}

// SetRoleByEmail assigns role to the user with email.
func (s *Store) SetRoleByEmail(ctx context.Context, email, role string) (*models.User, error) {
	if !models.IsValidUserRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalid, role)
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)
	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// NamesByIDs maps each found id to the user's name. Unknown ids are absent.
func (s *Store) NamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1, "name": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID   primitive.ObjectID `bson:"_id"`
		Name string             `bson:"name"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}
