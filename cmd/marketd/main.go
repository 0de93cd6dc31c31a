package main

import (
	"context"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/web3market/marketd/adapters/events"
	"github.com/web3market/marketd/adapters/media"
	"github.com/web3market/marketd/adapters/store"
	"github.com/web3market/marketd/internal/config"
	"github.com/web3market/marketd/ports"
	"github.com/web3market/marketd/service"
	transport "github.com/web3market/marketd/transport/http"
)

func main() {
	// .env is optional; the environment wins.
	_ = godotenv.Load()
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Env == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	memory := store.NewMemory()

	var (
		challenges ports.ChallengeStore = memory
		sessions   ports.SessionStore   = memory
		sellers    ports.SellerStore    = memory
		catalog    ports.CatalogStore   = memory
		orders     ports.OrderStore     = memory
		profiles   ports.ProfileStore   = memory
		publisher  message.Publisher
	)

	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("connect to redis")
		}
		cancel()

		rstore := store.NewRedis(client)
		challenges, sessions = rstore, rstore

		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wmLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("create redis publisher")
		}
		log.Info().Msg("using redis challenge/session store")
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		log.Warn().Msg("REDIS_URL not set, challenges and sessions are in-memory")
	}

	if cfg.DatabaseURL != "" {
		g, err := store.OpenGorm(cfg.DatabaseURL, cfg.LogSQL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to postgres")
		}
		sellers, catalog, orders, profiles = g, g, g, g
		log.Info().Msg("using postgres catalog store")
	} else {
		log.Warn().Msg("DATABASE_URL not set, catalog data is in-memory")
	}

	images, err := media.NewDiskImageStore(media.Config{
		Dir:          cfg.UploadsDir,
		PublicPrefix: "/uploads",
		MaxBytes:     cfg.MaxImageBytes,
		MaxDimension: cfg.MaxImageDimension,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("prepare uploads dir")
	}

	eventPub := events.NewWatermillPublisher(publisher)

	authSvc := service.NewAuthService(service.AuthConfig{
		Domain:        cfg.ProofDomain,
		TokenSecret:   cfg.TokenSecret,
		ChallengeTTL:  cfg.ChallengeTTL,
		TokenTTL:      cfg.TokenTTL,
		MaxProofDrift: cfg.MaxProofDrift,
	}, challenges, sessions, sellers, eventPub, log)

	catalogSvc := service.NewCatalogService(catalog, images, log)
	orderSvc := service.NewOrderService(orders, catalog, eventPub, cfg.PlatformFee, log)

	router := transport.SetupRouter(authSvc, catalogSvc, orderSvc, profiles, transport.Options{
		Log:        log,
		UploadsDir: cfg.UploadsDir,
		RateMax:    cfg.RateMax,
		RateWindow: cfg.RateWindow,
	})

	log.Info().Str("addr", cfg.Addr).Str("domain", cfg.ProofDomain).Msg("marketd listening")
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
