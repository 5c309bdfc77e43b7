package hertzx

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/cors"

	"github.com/jklein/kleinchat/pkg/hertzx/middleware"
	"github.com/jklein/kleinchat/pkg/resp"
)

type WebConfig struct {
	Host               string `json:"host" yaml:"host" mapstructure:"host"`
	Port               int    `json:"port" yaml:"port" mapstructure:"port"`
	MaxRequestBodySize int    `json:"maxRequestBodySize" yaml:"max-request-body-size" mapstructure:"max-request-body-size"`
	ReadTimeout        int    `json:"readTimeout" yaml:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout       int    `json:"writeTimeout" yaml:"write-timeout" mapstructure:"write-timeout"`
	IdleTimeout        int    `json:"idleTimeout" yaml:"idle-timeout" mapstructure:"idle-timeout"`
	ShutdownTimeout    int    `json:"shutdownTimeout" yaml:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

func (cfg *WebConfig) Prepare() {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 5001
	}
	if cfg.MaxRequestBodySize == 0 {
		cfg.MaxRequestBodySize = 1024 * 1024 * 20
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * 60 * 1000
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 3 * 60 * 1000
	}
	// Streaming responses stay open for as long as the model generates.
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 24 * 60 * 60 * 1000
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * 1000
	}
}

func WebEngine(cfg WebConfig) *server.Hertz {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	opts := []config.Option{
		server.WithHostPorts(addr),
		server.WithMaxRequestBodySize(cfg.MaxRequestBodySize),
		server.WithReadTimeout(time.Duration(cfg.ReadTimeout) * time.Millisecond),
		server.WithWriteTimeout(time.Duration(cfg.WriteTimeout) * time.Millisecond),
		server.WithIdleTimeout(time.Duration(cfg.IdleTimeout) * time.Millisecond),
		server.WithExitWaitTime(time.Duration(cfg.ShutdownTimeout) * time.Millisecond),
	}
	hertz := server.Default(opts...)

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"*"}

	hertz.Use(middleware.SetLogIdMW())
	hertz.Use(cors.New(corsCfg))
	hertz.Use(middleware.AccessLogMW())
	return hertz
}

// OK writes data as a raw JSON body, the success shape of this API.
func OK(c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func Bad(c *app.RequestContext, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, resp.NewError(message))
}

func Badf(c *app.RequestContext, format string, args ...interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, resp.NewErrorf(format, args...))
}

func NotFound(c *app.RequestContext, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, resp.NewError(message))
}

func Internal(c *app.RequestContext, err error) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp.NewError(err.Error()))
}
