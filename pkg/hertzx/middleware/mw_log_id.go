package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"

	"github.com/jklein/kleinchat/pkg/logs"
)

func SetLogIdMW() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		logID := uuid.New().String()
		ctx = logs.WithLogID(ctx, logID)

		c.Header("X-Log-ID", logID)
		c.Next(ctx)
	}
}
