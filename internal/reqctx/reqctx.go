// Package reqctx threads request, consumer and channel identifiers through
// call chains as explicit context values. No ambient globals, so concurrent
// requests and tests never cross-talk.
package reqctx

import "context"

type key int

const (
	requestIDKey key = iota
	consumerIDKey
	channelIDKey
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func WithConsumerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, consumerIDKey, id)
}

func ConsumerID(ctx context.Context) string {
	id, _ := ctx.Value(consumerIDKey).(string)
	return id
}

func WithChannelID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, channelIDKey, id)
}

func ChannelID(ctx context.Context) string {
	id, _ := ctx.Value(channelIDKey).(string)
	return id
}
