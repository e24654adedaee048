// Package dynamodb keeps rendered graphs in a DynamoDB table shared by every
// grapher instance.
package dynamodb

import (
	"context"
	"strconv"
	"sync"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/services"
	pkgerrors "ixp-grapher/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	metaPK = "RENDER#META"
	metaSK = "GENERATION"

	// maxItemBytes keeps artifacts under DynamoDB's 400KB item limit
	maxItemBytes = 350 * 1024

	// generationRefresh bounds how long a cleared store can still serve
	// another instance's stale renders
	generationRefresh = 5 * time.Second
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// ddbRender is one stored artifact.
type ddbRender struct {
	PK          string `dynamodbav:"PK"` // RENDER#<generation>
	SK          string `dynamodbav:"SK"` // fingerprint
	Data        []byte `dynamodbav:"Data"`
	ContentType string `dynamodbav:"ContentType"`
	Backend     string `dynamodbav:"Backend"`
	RenderedAt  string `dynamodbav:"RenderedAt"`
	TTL         int64  `dynamodbav:"TTL"`
}

type ddbGeneration struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Generation int64  `dynamodbav:"Generation"`
}

// RenderStore implements ports.RenderStore. Items live under a generation
// partition; Clear moves every instance to a new generation and lets the
// table's TTL reap the old one.
type RenderStore struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	generation  int64
	refreshedAt time.Time
}

var _ ports.RenderStore = (*RenderStore)(nil)

// NewRenderStore creates a store over tableName.
func NewRenderStore(client API, tableName string, logger *zap.Logger) *RenderStore {
	return &RenderStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

// Get implements RenderStore.Get
func (s *RenderStore) Get(ctx context.Context, fingerprint string) (*ports.Artifact, bool, error) {
	gen, err := s.currentGeneration(ctx)
	if err != nil {
		return nil, false, err
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       renderKey(gen, fingerprint),
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to get render")
	}
	if result.Item == nil {
		return nil, false, nil
	}

	var item ddbRender
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to unmarshal render")
	}

	// TTL deletion lags; treat expired items as gone
	if item.TTL <= s.now().Unix() {
		return nil, false, nil
	}

	renderedAt, _ := time.Parse(time.RFC3339Nano, item.RenderedAt)
	return &ports.Artifact{
		Data:        item.Data,
		ContentType: item.ContentType,
		Backend:     services.BackendID(item.Backend),
		RenderedAt:  renderedAt,
	}, true, nil
}

// Put implements RenderStore.Put. Artifacts too large for an item are
// skipped.
func (s *RenderStore) Put(ctx context.Context, fingerprint string, artifact *ports.Artifact, ttl time.Duration) error {
	if artifact == nil {
		return nil
	}
	if len(artifact.Data) > maxItemBytes {
		s.logger.Debug("Render too large for shared store",
			zap.String("fingerprint", fingerprint),
			zap.Int("bytes", len(artifact.Data)))
		return nil
	}

	gen, err := s.currentGeneration(ctx)
	if err != nil {
		return err
	}

	itemMap, err := attributevalue.MarshalMap(ddbRender{
		PK:          generationPK(gen),
		SK:          fingerprint,
		Data:        artifact.Data,
		ContentType: artifact.ContentType,
		Backend:     string(artifact.Backend),
		RenderedAt:  artifact.RenderedAt.UTC().Format(time.RFC3339Nano),
		TTL:         s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal render")
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      itemMap,
	})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to put render")
	}
	return nil
}

// Clear implements RenderStore.Clear by bumping the shared generation.
func (s *RenderStore) Clear(ctx context.Context) error {
	update := expression.Add(expression.Name("Generation"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to build generation update")
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       metaKey(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to bump render generation")
	}

	var meta ddbGeneration
	if err := attributevalue.UnmarshalMap(out.Attributes, &meta); err != nil {
		return pkgerrors.Wrap(err, "failed to unmarshal render generation")
	}

	s.mu.Lock()
	s.generation = meta.Generation
	s.refreshedAt = s.now()
	s.mu.Unlock()

	s.logger.Info("Shared render store cleared", zap.Int64("generation", meta.Generation))
	return nil
}

// currentGeneration returns the shared generation, re-reading it at most
// every generationRefresh.
func (s *RenderStore) currentGeneration(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if !s.refreshedAt.IsZero() && s.now().Sub(s.refreshedAt) < generationRefresh {
		gen := s.generation
		s.mu.Unlock()
		return gen, nil
	}
	s.mu.Unlock()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            metaKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to read render generation")
	}

	var meta ddbGeneration
	if result.Item != nil {
		if err := attributevalue.UnmarshalMap(result.Item, &meta); err != nil {
			return 0, pkgerrors.Wrap(err, "failed to unmarshal render generation")
		}
	}

	s.mu.Lock()
	s.generation = meta.Generation
	s.refreshedAt = s.now()
	s.mu.Unlock()
	return meta.Generation, nil
}

func generationPK(gen int64) string {
	return "RENDER#" + strconv.FormatInt(gen, 10)
}

func renderKey(gen int64, fingerprint string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: generationPK(gen)},
		"SK": &types.AttributeValueMemberS{Value: fingerprint},
	}
}

func metaKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: metaPK},
		"SK": &types.AttributeValueMemberS{Value: metaSK},
	}
}
