package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "github.com/akshaysorathiya9581/book-your-stay/internal/adapters/http_server"
	"github.com/akshaysorathiya9581/book-your-stay/internal/adapters/observability"
	redisad "github.com/akshaysorathiya9581/book-your-stay/internal/adapters/redis"
	"github.com/akshaysorathiya9581/book-your-stay/internal/adapters/shr"
	"github.com/akshaysorathiya9581/book-your-stay/internal/app"
	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
	"github.com/akshaysorathiya9581/book-your-stay/internal/shared"
	mysqlrepo "github.com/akshaysorathiya9581/book-your-stay/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db (refresh-token and diagnostics options live here)
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	creds := domain.Credentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}
	tokens := shr.NewTokenManager(cfg.Environment, "", creds, cache, repo)
	client := shr.NewClient(shr.ShopBaseURL(cfg.Environment), shr.IDSBaseURL(cfg.Environment), tokens, cfg.UpstreamRPS)

	rooms := app.NewRoomService(client, cache, cfg.CacheTTL, cfg.HotelCode, cfg.PropertyID)
	links := app.NewDeepLinker(cfg.HotelCode, cfg.PropertyID)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Rooms:      rooms,
		Links:      links,
		Tokens:     tokens,
		AdminToken: cfg.AdminToken,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("environment", cfg.Environment).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
