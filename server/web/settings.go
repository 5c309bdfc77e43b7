package web

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/jklein/kleinchat/pkg/hertzx"
	"github.com/jklein/kleinchat/pkg/resp"
	"github.com/jklein/kleinchat/server/db"
)

type settingsBody struct {
	CustomInstructions string `json:"custom_instructions"`
}

func (s *Server) GetSettings(ctx context.Context, c *app.RequestContext) {
	value, err := s.queries.GetSetting(ctx, db.SettingCustomInstructions)
	if err != nil {
		hertzx.Internal(c, err)
		return
	}
	hertzx.OK(c, settingsBody{CustomInstructions: value})
}

func (s *Server) UpdateSettings(ctx context.Context, c *app.RequestContext) {
	var body settingsBody
	if err := c.BindJSON(&body); err != nil {
		hertzx.Bad(c, "Invalid settings payload")
		return
	}
	if err := s.queries.SetSetting(ctx, db.SettingCustomInstructions, body.CustomInstructions); err != nil {
		hertzx.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK())
}
