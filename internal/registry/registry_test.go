package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/pkg/logging"
)

func init() {
	logging.Silence()
}

func testService(name string, svcType ServiceType) ServiceInfo {
	return ServiceInfo{
		Name: name,
		Type: svcType,
	}
}

func TestRegisterAssignsID(t *testing.T) {
	r := New()

	id, err := r.Register(testService("svc-a", TypeAPI))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	info, ok := r.GetByID(id)
	require.True(t, ok)
	assert.Equal(t, "svc-a", info.Name)
	assert.Equal(t, StatusUnknown, info.Status)
	assert.False(t, info.RegisteredAt.IsZero())
}

func TestRegisterValidation(t *testing.T) {
	r := New()

	_, err := r.Register(ServiceInfo{Type: TypeAPI})
	assert.Error(t, err, "missing name must be rejected")

	_, err = r.Register(ServiceInfo{Name: "no-type"})
	assert.Error(t, err, "missing type must be rejected")

	_, err = r.Register(ServiceInfo{
		Name:      "bad-endpoint",
		Type:      TypeAPI,
		Endpoints: []ServiceEndpoint{{Host: "localhost", Port: 0}},
	})
	assert.Error(t, err, "zero port must be rejected")
}

func TestRegisterSameNameReplaces(t *testing.T) {
	r := New()

	firstID, err := r.Register(testService("svc-a", TypeAPI))
	require.NoError(t, err)

	secondID, err := r.Register(testService("svc-a", TypeDatabase))
	require.NoError(t, err)
	require.NotEqual(t, firstID, secondID)

	// Exactly one entry for the name, carrying the new id.
	assert.Equal(t, 1, r.Count())

	info, ok := r.GetByName("svc-a")
	require.True(t, ok)
	assert.Equal(t, secondID, info.ID)
	assert.Equal(t, TypeDatabase, info.Type)

	// The old id is gone from the id index.
	_, ok = r.GetByID(firstID)
	assert.False(t, ok)

	// Find by query also sees a single entry.
	assert.Len(t, r.Find(Query{}), 1)
}

func TestUnregister(t *testing.T) {
	r := New()

	id, err := r.Register(testService("svc-a", TypeAPI))
	require.NoError(t, err)

	assert.True(t, r.Unregister(id))
	assert.Equal(t, 0, r.Count())

	_, ok := r.GetByName("svc-a")
	assert.False(t, ok)

	assert.False(t, r.Unregister(id), "second unregister must report absence")
	assert.False(t, r.Unregister("no-such-id"))
}

func TestFindFilters(t *testing.T) {
	r := New()

	_, err := r.Register(ServiceInfo{
		Name: "api-1",
		Type: TypeAPI,
		Metadata: ServiceMetadata{
			Tags:         NewSet("edge", "public"),
			Capabilities: NewSet("json"),
		},
	})
	require.NoError(t, err)

	_, err = r.Register(ServiceInfo{
		Name: "db-1",
		Type: TypeDatabase,
		Metadata: ServiceMetadata{
			Tags:         NewSet("internal"),
			Capabilities: NewSet("sql", "json"),
		},
	})
	require.NoError(t, err)

	assert.Len(t, r.Find(Query{}), 2, "empty query returns everything")
	assert.Len(t, r.Find(Query{Type: TypeAPI}), 1)
	assert.Len(t, r.Find(Query{Tags: []string{"edge"}}), 1)
	assert.Len(t, r.Find(Query{Capabilities: []string{"json"}}), 2)
	assert.Len(t, r.Find(Query{Type: TypeDatabase, Capabilities: []string{"json", "sql"}}), 1)
	assert.Empty(t, r.Find(Query{Type: TypeAPI, Tags: []string{"internal"}}),
		"all filters must match")
	assert.Empty(t, r.Find(Query{Tags: []string{"edge", "internal"}}),
		"tag intersection spans a single service")
}

func TestHealthyExcludesUnknown(t *testing.T) {
	r := New()

	id, err := r.Register(testService("svc-a", TypeAPI))
	require.NoError(t, err)

	assert.Empty(t, r.Healthy(), "fresh registrations are not healthy")

	require.True(t, r.UpdateStatus(id, StatusHealthy))
	healthy := r.Healthy()
	require.Len(t, healthy, 1)
	assert.Equal(t, "svc-a", healthy[0].Name)
	assert.NotNil(t, healthy[0].LastChecked)

	require.True(t, r.UpdateStatus(id, StatusUnhealthy))
	assert.Empty(t, r.Healthy())
}

func TestUpdateStatusUnknownID(t *testing.T) {
	r := New()
	assert.False(t, r.UpdateStatus("missing", StatusHealthy))
}
