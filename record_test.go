package restclient

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCaseInsensitive(t *testing.T) {
	r := NewRecord()
	r.Set("Name", "first").Set("count", 2)
	r.Set("NAME", "second")

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"Name", "count"}, r.Names())
	assert.Equal(t, "second", r.Get("name"))
	assert.Nil(t, r.Get("missing"))

	assert.True(t, r.Delete("NaMe"))
	assert.False(t, r.Delete("name"))
	assert.Equal(t, []string{"count"}, r.Names())
	assert.Equal(t, 2, r.Get("COUNT"))
}

func TestRecordJSON(t *testing.T) {
	r := NewRecord()
	r.Set("zeta", 1).Set("alpha", "a").Set("mid", []int{1, 2})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":[1,2]}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal([]byte(`{"b":1,"A":{"x":true},"c":null}`), &back))
	assert.Equal(t, []string{"b", "A", "c"}, back.Names())
	assert.Equal(t, map[string]any{"x": true}, back.Get("a"))

	out, err := back.JSON(false)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"A":{"x":true},"c":null}`, out)

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &back))
}

func TestRecordAsPayload(t *testing.T) {
	ctx := context.Background()
	r := NewRecord().Set("Country", "Sweden").Set("code", "SE")

	data, err := Serialize(ctx, KindJSON, r)
	require.NoError(t, err)
	assert.Equal(t, `{"Country":"Sweden","code":"SE"}`, string(data))

	data, err = Serialize(ctx, KindForm, r)
	require.NoError(t, err)
	assert.Equal(t, "Country=Sweden&code=SE", string(data))

	back, err := Deserialize[*Record](ctx, "application/json", data[:0])
	require.NoError(t, err)
	assert.Nil(t, back)

	back, err = Deserialize[*Record](ctx, "application/json", []byte(`{"Country":"Sweden"}`))
	require.NoError(t, err)
	s, err := RecordValue[string](back, "country")
	require.NoError(t, err)
	assert.Equal(t, "Sweden", s)

	_, err = RecordValue[string](back, "nope")
	assert.ErrorIs(t, err, errNoSuchField)
}
