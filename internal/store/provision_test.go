package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"chartly/internal/schema"
)

func TestJSONSchemaFor(t *testing.T) {
	desc := &schema.Descriptor{
		CollectionName: "orders",
		Fields: []schema.FieldDef{
			{Name: "order_id", Type: schema.TypeInt, Required: true},
			{Name: "amount", Type: schema.TypeDouble},
			{Name: "active", Type: schema.TypeBoolean},
			{Name: "placed_at", Type: schema.TypeDate},
			{Name: "customer", Type: schema.TypeString, Description: "display name"},
		},
	}

	js := jsonSchemaFor(desc)
	assert.Equal(t, "object", js["bsonType"])
	assert.Equal(t, []string{"order_id"}, js["required"])

	props := js["properties"].(bson.M)
	assert.Equal(t, bson.A{"int", "long"}, props["order_id"].(bson.M)["bsonType"])
	assert.Equal(t, "bool", props["active"].(bson.M)["bsonType"])
	assert.Equal(t, "date", props["placed_at"].(bson.M)["bsonType"])
	assert.Equal(t, "display name", props["customer"].(bson.M)["description"])
}

func TestIndexModelsFor(t *testing.T) {
	desc := &schema.Descriptor{
		CollectionName: "orders",
		Fields: []schema.FieldDef{
			{Name: "order_id", Type: schema.TypeInt, Unique: true},
			{Name: "customer", Type: schema.TypeString, Indexed: true},
			{Name: "amount", Type: schema.TypeDouble},
		},
		Indexes: []schema.IndexDef{
			{Fields: []string{"customer", "placed_at"}},
			{Fields: []string{"order_id"}, Kind: "unique"},
		},
	}

	models := indexModelsFor(desc)
	// Two declared indexes, plus the single-field index for customer.
	// order_id is already covered by the declared unique index.
	require.Len(t, models, 3)

	compound := models[0].Keys.(bson.D)
	assert.Equal(t, "customer", compound[0].Key)
	assert.Equal(t, "placed_at", compound[1].Key)
}

func TestDatabaseFromURI(t *testing.T) {
	cases := map[string]string{
		"mongodb://localhost:27017/chartly":               "chartly",
		"mongodb://user:pw@host:27017/appdb?authSource=x": "appdb",
		"mongodb+srv://u:p@cluster0.example.net/prod":     "prod",
		"mongodb://localhost:27017":                       "",
	}
	for uri, want := range cases {
		assert.Equal(t, want, databaseFromURI(uri), "uri %s", uri)
	}
}
