package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/services"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTable is an in-memory DynamoDB table keyed by PK and SK. It only
// understands the generation ADD update the store issues.
type fakeTable struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	gets    int
	failGet error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(key map[string]types.AttributeValue) string {
	pk := key["PK"].(*types.AttributeValueMemberS).Value
	sk := key["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet != nil {
		return nil, f.failGet
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := itemKey(in.Key)
	item, ok := f.items[k]
	if !ok {
		item = map[string]types.AttributeValue{"PK": in.Key["PK"], "SK": in.Key["SK"]}
	}
	var gen int64
	if v, ok := item["Generation"].(*types.AttributeValueMemberN); ok {
		gen, _ = strconv.ParseInt(v.Value, 10, 64)
	}
	gen++
	item["Generation"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(gen, 10)}
	f.items[k] = item
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"Generation": item["Generation"]}}, nil
}

func artifact() *ports.Artifact {
	return &ports.Artifact{
		Data:        []byte("\x89PNG graph"),
		ContentType: "image/png",
		Backend:     services.BackendSflow,
		RenderedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderStore_PutThenGet(t *testing.T) {
	// Arrange
	ctx := context.Background()
	table := newFakeTable()
	store := NewRenderStore(table, "renders", zap.NewNop())

	// Act
	require.NoError(t, store.Put(ctx, "fp1", artifact(), time.Hour))
	got, found, err := store.Get(ctx, "fp1")

	// Assert
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, artifact(), got)
	assert.Contains(t, table.items, "RENDER#0|fp1")
}

func TestRenderStore_Miss(t *testing.T) {
	store := NewRenderStore(newFakeTable(), "renders", zap.NewNop())

	got, found, err := store.Get(context.Background(), "absent")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestRenderStore_ExpiredItemIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewRenderStore(newFakeTable(), "renders", zap.NewNop())
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "fp1", artifact(), time.Minute))
	now = now.Add(2 * time.Minute)
	_, found, err := store.Get(ctx, "fp1")

	require.NoError(t, err)
	assert.False(t, found)
}

func TestRenderStore_ClearMovesToNewGeneration(t *testing.T) {
	// Arrange
	ctx := context.Background()
	table := newFakeTable()
	store := NewRenderStore(table, "renders", zap.NewNop())
	require.NoError(t, store.Put(ctx, "fp1", artifact(), time.Hour))

	// Act
	require.NoError(t, store.Clear(ctx))
	_, found, err := store.Get(ctx, "fp1")

	// Assert
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "fp1", artifact(), time.Hour))
	assert.Contains(t, table.items, "RENDER#1|fp1")
}

func TestRenderStore_OtherInstanceSeesClearAfterRefresh(t *testing.T) {
	// Arrange
	ctx := context.Background()
	table := newFakeTable()
	now := time.Now()
	clock := func() time.Time { return now }

	a := NewRenderStore(table, "renders", zap.NewNop())
	b := NewRenderStore(table, "renders", zap.NewNop())
	a.now, b.now = clock, clock

	require.NoError(t, a.Put(ctx, "fp1", artifact(), time.Hour))
	_, found, err := b.Get(ctx, "fp1")
	require.NoError(t, err)
	require.True(t, found)

	// Act
	require.NoError(t, a.Clear(ctx))
	now = now.Add(generationRefresh + time.Second)
	_, found, err = b.Get(ctx, "fp1")

	// Assert
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRenderStore_CachesGeneration(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	store := NewRenderStore(table, "renders", zap.NewNop())

	for i := 0; i < 3; i++ {
		_, _, err := store.Get(ctx, "fp1")
		require.NoError(t, err)
	}

	assert.Equal(t, 4, table.gets, "one generation read plus one read per lookup")
}

func TestRenderStore_SkipsOversizedArtifacts(t *testing.T) {
	table := newFakeTable()
	store := NewRenderStore(table, "renders", zap.NewNop())
	big := artifact()
	big.Data = make([]byte, maxItemBytes+1)

	err := store.Put(context.Background(), "fp1", big, time.Hour)

	require.NoError(t, err)
	assert.Empty(t, table.items)
}

func TestRenderStore_PropagatesErrors(t *testing.T) {
	table := newFakeTable()
	table.failGet = errors.New("ProvisionedThroughputExceeded")
	store := NewRenderStore(table, "renders", zap.NewNop())

	_, _, err := store.Get(context.Background(), "fp1")

	assert.ErrorContains(t, err, "render generation")
}
