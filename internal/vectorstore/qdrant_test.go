package vectorstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
)

func TestPointIDPassesThroughRealUUID(t *testing.T) {
	id := uuid.New().String()
	got, hashed := pointID(id)
	assert.Equal(t, id, got)
	assert.False(t, hashed)
}

func TestPointIDHashesArbitraryString(t *testing.T) {
	got, hashed := pointID("git:repo1:file.md:chunk-3")
	assert.True(t, hashed)
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected a valid uuid, got %q: %v", got, err)
	}
}

func TestPointIDDeterministic(t *testing.T) {
	a, _ := pointID("same-source-id")
	b, _ := pointID("same-source-id")
	assert.Equal(t, a, b)
}

func TestFilterToQdrantEmpty(t *testing.T) {
	f := Filter{}
	assert.Nil(t, f.toQdrant())
}

func TestFilterToQdrantBuildsConditions(t *testing.T) {
	f := Filter{Must: map[string]string{"project_id": "default"}, MustNot: map[string]string{"is_attachment": "true"}}
	qf := f.toQdrant()
	assert.NotNil(t, qf)
	assert.Len(t, qf.Must, 1)
	assert.Len(t, qf.MustNot, 1)
}

func TestValueToAnyScalars(t *testing.T) {
	assert.Equal(t, "x", valueToAny(qdrant.NewValueString("x")))
	assert.Equal(t, true, valueToAny(qdrant.NewValueBool(true)))
}
