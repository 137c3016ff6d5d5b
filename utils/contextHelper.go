package utils

import (
	"context"
)

type contextKey string

const (
	ContextKeyOperatorId    contextKey = "OperatorId"
	ContextKeyCorrelationId contextKey = "CorrelationId"
)

func GetOperatorIdFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyOperatorId).(int64)
	return id, ok
}

func SetOperatorIdInContext(ctx context.Context, operatorId int64) context.Context {
	return context.WithValue(ctx, ContextKeyOperatorId, operatorId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyCorrelationId).(string)
	return id, ok
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, correlationId)
}
