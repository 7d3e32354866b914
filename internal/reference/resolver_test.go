package reference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

func testBindings() *Bindings {
	return NewBindings().
		MustBind("department", StaticFinder([]map[string]any{
			{"code": "D01", "name": "Sales", "head": "Kim", "budget": 100},
		})).
		MustBind("user", StaticFinder([]map[string]any{
			{"id": 1, "name": "Lee", "position": "Manager", "email": "lee@example.com"},
			{"id": 2, "name": "Park", "position": "Director", "email": "park@example.com"},
			{"id": 3, "name": "Choi", "position": "CEO", "email": "choi@example.com"},
		}))
}

func TestResolveScalarProjectsAtNestedPath(t *testing.T) {
	r := NewResolver(testBindings(), nil, nil)
	refs := []schema.ReferenceFieldSpec{{
		Field: "dept", EntityType: "department", LookupField: "code",
		TargetPath: "requester.department", Fields: []string{"name", "head", "missing"},
	}}

	out, issues, err := r.Resolve(context.Background(), refs, map[string]any{"dept": "D01"})
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, map[string]any{
		"requester": map[string]any{
			"department": map[string]any{"name": "Sales", "head": "Kim"},
		},
	}, out)
}

func TestResolveSkipsAbsentFieldsAndMissingEntities(t *testing.T) {
	r := NewResolver(testBindings(), nil, nil)
	refs := []schema.ReferenceFieldSpec{
		{Field: "dept", EntityType: "department", LookupField: "code", TargetPath: "department"},
		{Field: "owner", EntityType: "user", LookupField: "id", TargetPath: "owner"},
	}

	out, issues, err := r.Resolve(context.Background(), refs, map[string]any{"dept": "D99"})
	require.NoError(t, err)
	assert.Empty(t, out)
	require.Len(t, issues, 1)
	assert.Equal(t, "dept", issues[0].Field)
	assert.Equal(t, "entity not found", issues[0].Message)
}

func TestResolveArrayMergesCallerMetadata(t *testing.T) {
	r := NewResolver(testBindings(), nil, nil)
	refs := []schema.ReferenceFieldSpec{{
		Field: "approvers", EntityType: "user", LookupField: "id",
		TargetPath: "approval.lines", Fields: []string{"name", "position"}, IsArray: true,
	}}
	data := map[string]any{"approvers": []any{
		map[string]any{"id": 2, "role": "review", "name": "ignored"},
		"not-a-map",
		map[string]any{"role": "no id"},
		map[string]any{"id": 1},
	}}

	out, issues, err := r.Resolve(context.Background(), refs, data)
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	lines, ok := GetPath(out, "approval.lines")
	require.True(t, ok)
	assert.Equal(t, []map[string]any{
		{"name": "Park", "position": "Director", "role": "review"},
		{"name": "Lee", "position": "Manager"},
	}, lines)
}

func TestResolveArrayAppliesApprovalOrder(t *testing.T) {
	r := NewResolver(testBindings(), DefaultTransforms(), nil)
	refs := []schema.ReferenceFieldSpec{{
		Field: "approvers", EntityType: "user", LookupField: "id", TargetPath: "approvals",
		Fields: []string{"name"}, IsArray: true, AdditionalProcessing: constants.TransformAddApprovalOrder,
	}}
	data := map[string]any{"approvers": []map[string]any{{"id": 3}, {"id": 1}}}

	out, _, err := r.Resolve(context.Background(), refs, data)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"name": "Choi", "order": 1},
		{"name": "Lee", "order": 2},
	}, out["approvals"])
}

func TestResolveWritesInConfigOrderWithoutClobbering(t *testing.T) {
	r := NewResolver(testBindings(), nil, nil, WithConcurrency(2))
	refs := []schema.ReferenceFieldSpec{
		{Field: "dept", EntityType: "department", LookupField: "code", TargetPath: "info", Fields: []string{"name"}},
		{Field: "owner", EntityType: "user", LookupField: "id", TargetPath: "info", Fields: []string{"email"}},
		{Field: "owner", EntityType: "user", LookupField: "id", TargetPath: "info.owner", Fields: []string{"position"}},
	}
	out, issues, err := r.Resolve(context.Background(), refs, map[string]any{"dept": "D01", "owner": "1"})
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, map[string]any{
		"info": map[string]any{
			"name":  "Sales",
			"email": "lee@example.com",
			"owner": map[string]any{"position": "Manager"},
		},
	}, out)
}

func TestResolveLookupFailureAborts(t *testing.T) {
	boom := common.DatabaseError("find user", errors.New("connection refused"))
	b := NewBindings().MustBind("user", func(context.Context, map[string]any) (map[string]any, error) {
		return nil, boom
	})
	r := NewResolver(b, nil, nil)
	refs := []schema.ReferenceFieldSpec{{Field: "owner", EntityType: "user", LookupField: "id", TargetPath: "owner"}}

	_, _, err := r.Resolve(context.Background(), refs, map[string]any{"owner": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.True(t, common.IsInfrastructure(err))
}

func TestResolverValidateWiring(t *testing.T) {
	r := NewResolver(testBindings(), DefaultTransforms(), nil)

	require.NoError(t, r.Validate("estimate", []schema.ReferenceFieldSpec{
		{Field: "a", EntityType: "user", LookupField: "id", TargetPath: "a", IsArray: true, AdditionalProcessing: constants.TransformAddApprovalOrder},
	}))

	err := r.Validate("estimate", []schema.ReferenceFieldSpec{
		{Field: "a", EntityType: "vendor", LookupField: "id", TargetPath: "a"},
		{Field: "b", EntityType: "user", LookupField: "id", TargetPath: "b", IsArray: true, AdditionalProcessing: "sortByName"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no finder bound")
	assert.Contains(t, err.Error(), "unknown transform")
}

func TestBindingsRejectDuplicates(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.Bind("user", StaticFinder(nil)))
	assert.Error(t, b.Bind("user", StaticFinder(nil)))
	assert.Equal(t, []string{"user"}, b.EntityTypes())

	_, err := b.FindOne(context.Background(), "vendor", nil)
	assert.ErrorIs(t, err, common.ErrInternal)
}

func TestResolveRejectsNonScalarLookupValues(t *testing.T) {
	var calls int
	users := StaticFinder([]map[string]any{{"id": 1, "name": "Lee"}})
	b := NewBindings().MustBind("user", func(ctx context.Context, criteria map[string]any) (map[string]any, error) {
		calls++
		return users(ctx, criteria)
	})
	r := NewResolver(b, nil, nil, WithConcurrency(1))
	refs := []schema.ReferenceFieldSpec{
		{Field: "requester", EntityType: "user", LookupField: "id", TargetPath: "requester", Fields: []string{"name"}},
		{Field: "approvers", EntityType: "user", LookupField: "id", TargetPath: "approvers", Fields: []string{"name"}, IsArray: true},
	}
	data := map[string]any{
		"requester": map[string]any{"id": 1},
		"approvers": []any{
			map[string]any{"id": []any{1, 2}},
			map[string]any{"id": 1},
		},
	}

	out, issues, err := r.Resolve(context.Background(), refs, data)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "requester", issues[0].Field)
	assert.Equal(t, "lookup value must be a scalar", issues[0].Message)
	assert.Equal(t, "approvers", issues[1].Field)
	assert.Equal(t, "item 0: lookup value must be a scalar", issues[1].Message)

	assert.NotContains(t, out, "requester")
	assert.Equal(t, []map[string]any{{"name": "Lee"}}, out["approvers"])
	assert.Equal(t, 1, calls)
}

func TestIsScalarKey(t *testing.T) {
	for _, v := range []any{"D01", 1, int64(2), 3.5, true, uint8(4)} {
		assert.True(t, IsScalarKey(v), "%#v", v)
	}
	for _, v := range []any{nil, map[string]any{"id": 1}, []any{1}, []int{1}, struct{}{}, &struct{}{}} {
		assert.False(t, IsScalarKey(v), "%#v", v)
	}
}
