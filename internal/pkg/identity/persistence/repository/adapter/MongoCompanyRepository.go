package adapter

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	identity "jobboard/internal/pkg/identity/application/domain"
	repository "jobboard/internal/pkg/identity/persistence/repository/port"
)

const companiesCollection = "companies"

// companyDocument mirrors the company records written by the company CRUD
// surface; user references are stored as ObjectIDs there.
type companyDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Name      string               `bson:"name"`
	CreatedBy primitive.ObjectID   `bson:"createdBy"`
	HRs       []primitive.ObjectID `bson:"hrs"`
}

type MongoCompanyRepository struct {
	coll *mongo.Collection
}

func NewMongoCompanyRepository(db *mongo.Database) *MongoCompanyRepository {
	return &MongoCompanyRepository{coll: db.Collection(companiesCollection)}
}

var _ repository.CompanyRepository = (*MongoCompanyRepository)(nil)

// EnsureIndexes creates the lookup indexes used by role resolution.
func (r *MongoCompanyRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
		{Keys: bson.D{{Key: "hrs", Value: 1}}},
	})
	return err
}

func (r *MongoCompanyRepository) FindCompanyByOwnerOrHR(ctx context.Context, userID string) (*identity.Company, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		// Not a user reference this directory can hold.
		return nil, nil
	}

	if c, err := r.findOne(ctx, bson.M{"createdBy": oid}); c != nil || err != nil {
		return c, err
	}
	return r.findOne(ctx, bson.M{"hrs": oid})
}

func (r *MongoCompanyRepository) findOne(ctx context.Context, filter bson.M) (*identity.Company, error) {
	var doc companyDocument
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{
		"name": 1, "createdBy": 1, "hrs": 1,
	})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (d companyDocument) toDomain() *identity.Company {
	c := &identity.Company{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		CreatedBy: d.CreatedBy.Hex(),
		HRs:       make([]string, 0, len(d.HRs)),
	}
	for _, hr := range d.HRs {
		c.HRs = append(c.HRs, hr.Hex())
	}
	return c
}
