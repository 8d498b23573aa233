package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartly/internal/tabular"
)

func TestDescriptorNormalize(t *testing.T) {
	d := &Descriptor{
		CollectionName: "orders",
		Fields: []FieldDef{
			{Name: "Order ID", Type: TypeInt},
			{Name: "Market Value ($M)", Type: TypeDouble},
		},
		Indexes: []IndexDef{{Fields: []string{"Order ID"}}},
	}
	d.Normalize()

	assert.Equal(t, "order_id", d.Fields[0].Name)
	assert.Equal(t, "market_value_m", d.Fields[1].Name)
	assert.Equal(t, []string{"order_id"}, d.Indexes[0].Fields)

	// Running it again must not change anything.
	before := d.FieldNames()
	d.Normalize()
	assert.Equal(t, before, d.FieldNames())
}

func TestDescriptorValidate(t *testing.T) {
	valid := &Descriptor{
		CollectionName: "orders",
		Fields:         []FieldDef{{Name: "order_id", Type: TypeInt}},
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&Descriptor{Fields: valid.Fields}).Validate())
	assert.Error(t, (&Descriptor{CollectionName: "x"}).Validate())
	assert.Error(t, (&Descriptor{
		CollectionName: "x",
		Fields: []FieldDef{
			{Name: "a", Type: TypeInt},
			{Name: "a", Type: TypeString},
		},
	}).Validate())
	assert.Error(t, (&Descriptor{
		CollectionName: "x",
		Fields:         []FieldDef{{Name: "a", Type: FieldType("decimal")}},
	}).Validate())
}

func TestHeuristicSuggester(t *testing.T) {
	meta := tabular.MetaPayload{
		TotalRows:  10,
		Columns:    []string{"customer_id", "amount", "active", "joined", "notes"},
		DataTypes:  map[string]string{"customer_id": "int", "amount": "double", "active": "boolean", "joined": "date", "notes": "null"},
		NullCounts: map[string]int{"customer_id": 0, "amount": 0, "active": 1, "joined": 0, "notes": 10},
		SampleSize: 10,
	}

	desc, err := HeuristicSuggester{}.Suggest(context.Background(), "orders", meta)
	require.NoError(t, err)
	require.NoError(t, desc.Validate())

	byName := map[string]FieldDef{}
	for _, f := range desc.Fields {
		byName[f.Name] = f
	}
	assert.Equal(t, TypeInt, byName["customer_id"].Type)
	assert.True(t, byName["customer_id"].Indexed)
	assert.Equal(t, TypeDouble, byName["amount"].Type)
	assert.Equal(t, TypeBoolean, byName["active"].Type)
	assert.False(t, byName["active"].Required)
	assert.Equal(t, TypeDate, byName["joined"].Type)
	assert.Equal(t, TypeString, byName["notes"].Type)
	require.Len(t, desc.Indexes, 1)
}
