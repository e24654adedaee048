package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ixp-grapher/infrastructure/config"
	"ixp-grapher/infrastructure/di"
	"ixp-grapher/infrastructure/messaging/eventbridge"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container

	coldStart     = true
	coldStartTime time.Time
)

func init() {
	coldStartTime = time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	chiRouter, ok := container.Router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)))
}

// envelope tells EventBridge deliveries apart from HTTP API requests.
type envelope struct {
	DetailType string `json:"detail-type"`
}

// Handler serves HTTP API requests and drops the local render cache when
// another instance announces an invalidation.
func Handler(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if env.DetailType != "" {
		var event events.CloudWatchEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("failed to decode EventBridge event: %w", err)
		}
		return nil, handleEvent(ctx, event)
	}

	var req events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("failed to decode HTTP request: %w", err)
	}
	return handleHTTP(ctx, req)
}

func handleHTTP(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Lambda-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status_code", resp.StatusCode),
		)
	}
	return resp, err
}

func handleEvent(ctx context.Context, event events.CloudWatchEvent) error {
	if event.Source != eventbridge.Source || event.DetailType != eventbridge.DetailTypeCacheInvalidated {
		container.Logger.Debug("Ignoring event",
			zap.String("source", event.Source),
			zap.String("detail_type", event.DetailType))
		return nil
	}

	var detail eventbridge.CacheInvalidated
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("failed to decode invalidation: %w", err)
	}
	container.Logger.Info("Remote cache invalidation",
		zap.String("event_id", detail.EventID),
		zap.String("instance", detail.Instance))

	// remote invalidations are applied locally only
	return container.CacheAdmin.InvalidateAll(ctx, "remote "+detail.Reason, false)
}

func main() {
	lambda.Start(Handler)
}
