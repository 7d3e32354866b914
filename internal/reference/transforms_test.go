package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddApprovalOrderSortsWhenAnyOrderPresent(t *testing.T) {
	a, b := map[string]any{"name": "a"}, map[string]any{"name": "b"}
	c := map[string]any{"name": "c", "order": 5}

	got := AddApprovalOrder([]map[string]any{a, b, c})
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0]["name"])
	assert.Equal(t, "a", got[1]["name"])
	assert.Equal(t, "b", got[2]["name"])
	assert.NotContains(t, got[1], "order")
}

func TestAddApprovalOrderStringOrders(t *testing.T) {
	got := AddApprovalOrder([]map[string]any{
		{"name": "x", "order": "3"},
		{"name": "y", "order": 1},
		{"name": "z", "order": "n/a"},
	})
	assert.Equal(t, []string{"y", "x", "z"}, []string{got[0]["name"].(string), got[1]["name"].(string), got[2]["name"].(string)})
}

func TestAddApprovalOrderAssignsSequence(t *testing.T) {
	got := AddApprovalOrder([]map[string]any{{"name": "a"}, {"name": "b"}})
	assert.Equal(t, 1, got[0]["order"])
	assert.Equal(t, 2, got[1]["order"])
}

func TestDefaultTransforms(t *testing.T) {
	tr := DefaultTransforms()
	assert.Equal(t, []string{"addApprovalOrder"}, tr.Names())
	_, ok := tr.Get("missing")
	assert.False(t, ok)
}

func TestSetPath(t *testing.T) {
	root := map[string]any{"scalar": "x"}

	require.NoError(t, SetPath(root, "a.b.c", 1))
	require.NoError(t, SetPath(root, "a.b", map[string]any{"d": 2}))
	assert.Equal(t, map[string]any{"c": 1, "d": 2}, root["a"].(map[string]any)["b"])

	err := SetPath(root, "scalar.child", 3)
	require.Error(t, err)
	assert.Equal(t, "x", root["scalar"])

	v, ok := GetPath(root, "a.b.d")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = GetPath(root, "a.zz")
	assert.False(t, ok)
}
