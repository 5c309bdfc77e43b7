package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jklein/kleinchat/pkg/cfg"
	"github.com/jklein/kleinchat/pkg/hertzx"
	"github.com/jklein/kleinchat/pkg/logs"
	"github.com/jklein/kleinchat/pkg/ormx"
	"github.com/jklein/kleinchat/server/db"
	"github.com/jklein/kleinchat/server/janitor"
	"github.com/jklein/kleinchat/server/llm"
	"github.com/jklein/kleinchat/server/web"
)

type Config struct {
	Log     logs.LogConfig   `json:"log" yaml:"log" mapstructure:"log"`
	Web     hertzx.WebConfig `json:"web" yaml:"web" mapstructure:"web"`
	DB      ormx.DBConfig    `json:"db" yaml:"db" mapstructure:"db"`
	LLM     llm.Config       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Janitor janitor.Config   `json:"janitor" yaml:"janitor" mapstructure:"janitor"`
}

func main() {
	configDir := flag.String("config-dir", "./conf", "directory holding the config file")
	configName := flag.String("config-name", "kleinchatd", "config file name without suffix")
	flag.Parse()

	var conf Config
	if err := cfg.LoadConfig(*configDir, *configName, "yaml", &conf); err != nil {
		logs.Fatalf("load config: %v", err)
	}
	if err := logs.InitLogger(conf.Log, "kleinchatd.log"); err != nil {
		logs.Fatalf("init logger: %v", err)
	}

	gdb, err := ormx.NewDBClient(conf.DB)
	if err != nil {
		logs.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		logs.Fatalf("migrate database: %v", err)
	}
	queries := db.New(gdb)

	jan, err := janitor.New(queries, conf.Janitor)
	if err != nil {
		logs.Fatalf("init janitor: %v", err)
	}

	conf.Web.Prepare()
	engine := hertzx.WebEngine(conf.Web)
	web.NewServer(queries, llm.NewClient(conf.LLM)).Register(engine)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jan.Start()
	logs.Infof("kleinchatd listening on %s:%d", conf.Web.Host, conf.Web.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		jan.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return engine.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logs.Fatalf("server exited: %v", err)
	}
	logs.Infof("kleinchatd stopped")
}
