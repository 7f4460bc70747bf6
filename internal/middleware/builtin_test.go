package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformOperations(t *testing.T) {
	m, err := NewTransform("shape", map[string]string{
		"upper": OpUppercase,
		"lower": OpLowercase,
		"pad":   OpTrim,
		"id":    OpPrefix + ":order-",
	})
	require.NoError(t, err)

	packet := NewDataPacket(map[string]interface{}{
		"upper":     "abc",
		"lower":     "DEF",
		"pad":       "  ghi  ",
		"id":        "1042",
		"number":    42,
		"untouched": "AsIs",
	})

	got, err := m.Process(context.Background(), packet)
	require.NoError(t, err)
	assert.Equal(t, "ABC", got.Data["upper"])
	assert.Equal(t, "def", got.Data["lower"])
	assert.Equal(t, "ghi", got.Data["pad"])
	assert.Equal(t, "order-1042", got.Data["id"])
	assert.Equal(t, 42, got.Data["number"], "non-string fields pass through")
	assert.Equal(t, "AsIs", got.Data["untouched"])
	assert.Equal(t, "shape", got.Metadata["transformed_by"])
}

func TestTransformUnknownOperation(t *testing.T) {
	_, err := NewTransform("bad", map[string]string{"f": "rot13"})
	assert.Error(t, err)
}

func TestValidationRequiredFields(t *testing.T) {
	m, err := NewValidation("validate", []string{"x"}, "")
	require.NoError(t, err)

	packet := NewDataPacket(map[string]interface{}{"y": 1})
	_, procErr := m.Process(context.Background(), packet)
	require.Error(t, procErr)
	assert.Contains(t, procErr.Error(), "x")

	packet = NewDataPacket(map[string]interface{}{"x": "present"})
	got, procErr := m.Process(context.Background(), packet)
	require.NoError(t, procErr)
	assert.Equal(t, "validate", got.Metadata["validated_by"])
}

func TestValidationCELPredicate(t *testing.T) {
	m, err := NewValidation("range-check", nil, `int(data.count) > 0 && int(data.count) <= 100`)
	require.NoError(t, err)

	_, procErr := m.Process(context.Background(), NewDataPacket(map[string]interface{}{"count": 50}))
	assert.NoError(t, procErr)

	_, procErr = m.Process(context.Background(), NewDataPacket(map[string]interface{}{"count": 500}))
	assert.Error(t, procErr)
}

func TestValidationBadPredicate(t *testing.T) {
	_, err := NewValidation("broken", nil, "this is not CEL ((")
	assert.Error(t, err)
}

func TestRoutingFirstMatchWins(t *testing.T) {
	m := NewRouting("router", []RouteRule{
		{Field: "kind", Value: "alert", Route: "alerts", Tags: []string{"urgent"}},
		{Field: "", Route: "catch-all", Tags: []string{"default"}},
	})

	got, err := m.Process(context.Background(), NewDataPacket(map[string]interface{}{"kind": "alert"}))
	require.NoError(t, err)
	assert.Equal(t, "alerts", got.Metadata["route"])
	assert.True(t, got.HasTag("urgent"))
	assert.False(t, got.HasTag("default"))

	got, err = m.Process(context.Background(), NewDataPacket(map[string]interface{}{"kind": "info"}))
	require.NoError(t, err)
	assert.Equal(t, "catch-all", got.Metadata["route"])
	assert.True(t, got.HasTag("default"))
}

// Scenario: chain ["validate", "uppercase"] where validate requires field x.
func TestValidateThenTransformChain(t *testing.T) {
	o := New()

	validate, err := NewValidation("validate", []string{"x"}, "")
	require.NoError(t, err)
	upper, err := NewTransform("uppercase", map[string]string{"x": OpUppercase})
	require.NoError(t, err)

	o.RegisterMiddleware(validate)
	o.RegisterMiddleware(upper)
	require.NoError(t, o.CreateChain(Chain{Name: "ingest", Middlewares: []string{"validate", "uppercase"}}))

	// A packet without x is rejected with the error on metadata and the
	// payload unchanged.
	bad := NewDataPacket(map[string]interface{}{"y": "abc"})
	got, err := o.ProcessPacket(context.Background(), bad, "ingest")
	require.Error(t, err)
	assert.NotEmpty(t, got.Metadata["error"])
	assert.Equal(t, "abc", got.Data["y"])
	_, transformed := got.Data["x"]
	assert.False(t, transformed)

	// A packet with x flows through both stages.
	good := NewDataPacket(map[string]interface{}{"x": "abc"})
	got, err = o.ProcessPacket(context.Background(), good, "ingest")
	require.NoError(t, err)
	assert.Equal(t, "ABC", got.Data["x"])
}
