package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_RoundTrip(t *testing.T) {
	input := `{"bookingId":9007199254740993,"amount":12.5,"paid":true,"note":null,"specialist":"Ana","tags":["a","b"],"address":{"city":"Lisbon"}}`

	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(input), &m))

	id, ok := m["bookingId"].AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(9007199254740993), id)

	amount, ok := m["amount"].AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 12.5, amount, 0.0001)

	assert.Equal(t, KindNull, m["note"].Kind())
	assert.Equal(t, KindObject, m["address"].Kind())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestValueOf_Unsupported(t *testing.T) {
	_, err := ValueOf(struct{}{})
	assert.Error(t, err)

	_, err = MetadataFrom(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "plain", StringValue("plain").String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, `["x",1]`, ListValue(StringValue("x"), IntValue(1)).String())
	assert.Equal(t, "null", Null().String())
}

func TestMetadata_Map(t *testing.T) {
	m := Metadata{
		"name":  StringValue("Ana"),
		"count": IntValue(3),
	}

	got := m.Map()
	assert.Equal(t, "Ana", got["name"])
	assert.Equal(t, json.Number("3"), got["count"])
}
