package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"mySocialApp/auth"
	"mySocialApp/crud"
	"mySocialApp/database"
	"mySocialApp/http"
	"mySocialApp/lock"
	"mySocialApp/logging"
)

// main is the app's entry point.
func main() {
	// The flag "-prod" means that we're running in production. Production refuses
	// to start on the development secrets.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to make sure real secrets are configured before the application starts.")
	flag.Parse()

	// Load configuration from config.yaml and the environment.
	config, err := LoadConfig(*productionBool)
	must(err)

	logging.Init(config.Log)
	logger := logging.L()

	// Open a database connection and execute migrations.
	db := database.NewDB(config.Database)
	must(database.Open(db, config.IsProd()))
	defer database.Close(db)
	must(database.AutoMigrate(db))

	// Serialise relationship changes across instances when redis is configured.
	var locker lock.Locker = lock.NewMemory()
	if config.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Address,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		defer client.Close()
		must(client.Ping(context.Background()).Err())
		locker = lock.NewRedis(client, 0)
		logger.Info().Str("address", config.Redis.Address).Msg("using redis pair locks")
	}

	// Start the crud services.
	services, err := crud.NewServices(
		db.Gorm,
		crud.WithLocker(locker),
		crud.WithUser(config.Pepper),
		crud.WithRelationship(),
		crud.WithPost(),
	)
	must(err)

	tokens, err := auth.NewProvider(config.JWT.Secret, config.JWT.TTL)
	must(err)

	// Set up a webserver.
	server := http.NewServer(http.Config{
		IsProd:         config.IsProd(),
		AllowedOrigins: config.CORS.Origins,
		RateLimit:      config.RateLimit,
	}, services, tokens, logger)

	// Serve the app until SIGINT or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, config.Port); err != nil {
		logger.Error().Err(err).Msg("http server stopped")
	}
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
