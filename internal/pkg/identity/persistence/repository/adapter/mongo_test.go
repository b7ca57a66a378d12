package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	identity "jobboard/internal/pkg/identity/application/domain"
)

func TestCompanyDocument_ToDomain(t *testing.T) {
	owner, hr := primitive.NewObjectID(), primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{
		"_id":       primitive.NewObjectID(),
		"name":      "Acme",
		"createdBy": owner,
		"hrs":       bson.A{hr},
		"location":  "Remote",
	})
	require.NoError(t, err)

	var doc companyDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	c := doc.toDomain()

	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, identity.RoleOwner, c.RoleOf(owner.Hex()))
	assert.Equal(t, identity.RoleHR, c.RoleOf(hr.Hex()))
	assert.Equal(t, identity.RoleRegular, c.RoleOf(primitive.NewObjectID().Hex()))
}

func TestMongoCompanyRepository_NonObjectIDIsRegular(t *testing.T) {
	r := &MongoCompanyRepository{}
	c, err := r.FindCompanyByOwnerOrHR(context.Background(), "google-oauth-123")
	assert.NoError(t, err)
	assert.Nil(t, c)
}
