package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/akshaysorathiya9581/book-your-stay/internal/adapters/observability"
	redisad "github.com/akshaysorathiya9581/book-your-stay/internal/adapters/redis"
	"github.com/akshaysorathiya9581/book-your-stay/internal/adapters/shr"
	"github.com/akshaysorathiya9581/book-your-stay/internal/app"
	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
	"github.com/akshaysorathiya9581/book-your-stay/internal/shared"
	mysqlrepo "github.com/akshaysorathiya9581/book-your-stay/internal/storage/mysql"
)

// Pre-warms the room-list cache for a set of properties so the first guest
// after a deploy or a purge never waits on the upstream round trips. Run it
// from cron a little more often than CACHE_TTL_SECONDS.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	ids := cfg.WarmIDs
	if len(ids) == 0 && cfg.PropertyID > 0 {
		ids = []int{cfg.PropertyID}
	}
	if len(ids) == 0 {
		log.Fatal().Msg("nothing to warm: set WARM_PROPERTY_IDS or SHR_PROPERTY_ID")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Int("workers", cfg.Workers).
		Ints("property_ids", ids).
		Msg("cache warmer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	creds := domain.Credentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}
	tokens := shr.NewTokenManager(cfg.Environment, "", creds, cache, repo)
	client := shr.NewClient(shr.ShopBaseURL(cfg.Environment), shr.IDSBaseURL(cfg.Environment), tokens, cfg.UpstreamRPS)
	rooms := app.NewRoomService(client, cache, cfg.CacheTTL, cfg.HotelCode, cfg.PropertyID)

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, id := range ids {
		id := id

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(propertyID int) {
			defer wg.Done()
			defer sem.Release(1)

			q := domain.RoomQuery{PropertyID: propertyID}
			list, err := rooms.ListRooms(ctx, q, true)
			if err != nil {
				log.Warn().Int("property_id", propertyID).Err(err).Msg("warm failed")
				return
			}
			log.Info().Int("property_id", propertyID).Int("rooms", len(list)).Msg("warm ok")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("cache warm completed")
}
