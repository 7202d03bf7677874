package main

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/zap"

	"querylane/pkg/db"
	"querylane/pkg/lifecycle"
	"querylane/pkg/treasury"
	"querylane/services/resolve/internal/config"
	"querylane/services/resolve/internal/store"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	tre := treasury.New()
	eng := lifecycle.New(tre, lifecycle.WithLogger(log))

	var st *store.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		st = store.New(pool)
		if err := st.EnsureSchema(context.Background()); err != nil {
			log.Fatal("db schema", zap.Error(err))
		}
	} else {
		log.Warn("DATABASE_URL not set; running without the archive store")
	}

	r := newRouter(eng, tre, st, log, cfg.DevFaucet)
	log.Info("resolve service listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("serve", zap.Error(err))
	}
}
