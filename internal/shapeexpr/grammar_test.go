package shapeexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Scalars(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Kind
	}{
		{"string", "String", KindString},
		{"bool", "Bool", KindBool},
		{"file", "File", KindFile},
		{"directory", "Directory", KindDirectory},
		{"genotype record", "GenotypeRecord", KindGenotypeRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Kind)
			assert.False(t, got.Optional)
		})
	}
}

func TestParse_OptionalSuffix(t *testing.T) {
	got, err := Parse("String?")
	require.NoError(t, err)
	assert.Equal(t, KindString, got.Kind)
	assert.True(t, got.Optional)
}

func TestParse_List(t *testing.T) {
	got, err := Parse("List[File]")
	require.NoError(t, err)
	assert.Equal(t, KindList, got.Kind)
	require.NotNil(t, got.Elem)
	assert.Equal(t, KindFile, got.Elem.Kind)
}

func TestParse_ListNested(t *testing.T) {
	got, err := Parse("List[List[String]]")
	require.NoError(t, err)
	assert.Equal(t, KindList, got.Kind)
	require.NotNil(t, got.Elem)
	assert.Equal(t, KindList, got.Elem.Kind)
	assert.Equal(t, KindString, got.Elem.Elem.Kind)
}

func TestParse_Map(t *testing.T) {
	got, err := Parse("Map[String,Directory]")
	require.NoError(t, err)
	assert.Equal(t, KindMap, got.Kind)
	assert.Equal(t, KindString, got.MapKey)
	require.NotNil(t, got.Elem)
	assert.Equal(t, KindDirectory, got.Elem.Kind)
}

func TestParse_MapRejectsNonStringKey(t *testing.T) {
	_, err := Parse("Map[Bool,String]")
	require.Error(t, err)
}

func TestParse_Record(t *testing.T) {
	got, err := Parse("Record{name:String,count:Bool}")
	require.NoError(t, err)
	assert.Equal(t, KindRecord, got.Kind)
	require.Len(t, got.Order, 2)
	assert.Equal(t, []string{"name", "count"}, got.Order)
	assert.Equal(t, KindString, got.Fields["name"].Kind)
	assert.Equal(t, KindBool, got.Fields["count"].Kind)
}

func TestParse_RecordRejectsEmpty(t *testing.T) {
	_, err := Parse("Record{}")
	require.Error(t, err)
}

func TestParse_RecordFieldCanBeOptional(t *testing.T) {
	got, err := Parse("Record{path:File?}")
	require.NoError(t, err)
	assert.True(t, got.Fields["path"].Optional)
}

func TestParse_UnknownType(t *testing.T) {
	_, err := Parse("Integer")
	require.Error(t, err)
}

func TestParse_TrailingGarbage(t *testing.T) {
	_, err := Parse("String extra")
	require.Error(t, err)
}

func TestParse_MissingBracket(t *testing.T) {
	_, err := Parse("List[String")
	require.Error(t, err)
}

func TestType_StringRoundTrip(t *testing.T) {
	tests := []string{
		"String",
		"String?",
		"List[File]",
		"Map[String,Directory]",
		"Record{name:String,count:Bool}",
		"List[Record{path:File,tag:String?}]",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			got, err := Parse(expr)
			require.NoError(t, err)
			assert.Equal(t, expr, got.String())
		})
	}
}
