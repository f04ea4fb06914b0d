// internal/app/store/clans/clanstore.go
package clanstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/siberialife/siberialife/internal/app/system/htmlsanitize"
	"github.com/siberialife/siberialife/internal/app/system/normalize"
	"github.com/siberialife/siberialife/internal/app/system/slugify"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// List limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var (
	ErrDuplicate = errors.New("a clan with this name already exists")
	ErrNotFound  = errors.New("clan not found")
	ErrInvalid   = errors.New("invalid clan")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("clans")}
}

// NormalizeClan recomputes the derived fields of c in place. It runs on
// every write, so MemberCount always equals len(Members) regardless of what
// the caller supplied. A non-empty slug is kept as stored; only an empty one
// is derived from the name.
func NormalizeClan(c *models.Clan) {
	c.Name = normalize.Name(c.Name)
	c.NameCI = text.Fold(c.Name)
	if strings.TrimSpace(c.Slug) == "" {
		c.Slug = slugify.Make(c.Name)
	} else {
		c.Slug = strings.ToLower(strings.TrimSpace(c.Slug))
	}
	c.Description = htmlsanitize.Sanitize(c.Description)
	c.Category = strings.TrimSpace(c.Category)
	c.City = normalize.Name(c.City)
	c.Tags = normalize.Tags(c.Tags)
	if c.Members == nil {
		c.Members = []models.ClanMember{}
	}
	c.MemberCount = len(c.Members)
}

// NormalizeNewClan slugifies a caller-supplied slug and then applies
// NormalizeClan. Stored slugs are already in slug form and only go through
// NormalizeClan.
func NormalizeNewClan(c *models.Clan) {
	if strings.TrimSpace(c.Slug) != "" {
		c.Slug = slugify.Make(c.Slug)
	}
	NormalizeClan(c)
}

// Validate checks a normalized clan.
func Validate(c models.Clan) error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case c.Slug == "":
		return fmt.Errorf("%w: name must contain letters or digits", ErrInvalid)
	case c.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalid)
	case c.Category == "":
		return fmt.Errorf("%w: category is required", ErrInvalid)
	case c.City == "":
		return fmt.Errorf("%w: city is required", ErrInvalid)
	}
	for _, m := range c.Members {
		if !models.IsValidClanRole(m.Role) {
			return fmt.Errorf("%w: unknown member role %q", ErrInvalid, m.Role)
		}
	}
	return nil
}

// Create inserts a new clan.
func (s *Store) Create(ctx context.Context, c models.Clan) (models.Clan, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = now
	c.UpdatedAt = now
	NormalizeNewClan(&c)
	if err := Validate(c); err != nil {
		return models.Clan{}, err
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Clan{}, ErrDuplicate
		}
		return models.Clan{}, err
	}
	return c, nil
}

// Save replaces the stored clan with c after recomputing derived fields.
func (s *Store) Save(ctx context.Context, c *models.Clan) error {
	NormalizeClan(c)
	if err := Validate(*c); err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Clan, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.Clan, error) {
	return s.findOne(ctx, bson.M{"slug": strings.ToLower(strings.TrimSpace(slug))})
}

// GetByIDOrSlug treats key as an ObjectID when it parses as one.
func (s *Store) GetByIDOrSlug(ctx context.Context, key string) (*models.Clan, error) {
	if oid, err := primitive.ObjectIDFromHex(key); err == nil {
		return s.GetByID(ctx, oid)
	}
	return s.GetBySlug(ctx, key)
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Clan, error) {
	var c models.Clan
	if err := s.c.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Query    string
	Category string
	City     string
	Limit    int64
}

// List returns clans matching f. A Query runs against the text index and
// results are ranked by relevance; otherwise the largest clans come first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Clan, error) {
	filter := bson.M{}
	if q := strings.TrimSpace(f.Query); q != "" {
		filter["$text"] = bson.M{"$search": q}
	}
	if f.Category != "" {
		filter["category"] = strings.TrimSpace(f.Category)
	}
	if f.City != "" {
		filter["city"] = normalize.Name(f.City)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	opts := options.Find().SetLimit(limit)
	if _, ok := filter["$text"]; ok {
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
		opts.SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}})
	} else {
		opts.SetSort(bson.D{{Key: "member_count", Value: -1}, {Key: "created_at", Value: -1}})
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Clan{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
