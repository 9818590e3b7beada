package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mdtrung/arb-engine/internal/common"
	"github.com/mdtrung/arb-engine/internal/config"
	"github.com/mdtrung/arb-engine/internal/http"
	"github.com/mdtrung/arb-engine/internal/market"
	"github.com/mdtrung/arb-engine/internal/router"
	"github.com/mdtrung/arb-engine/internal/stream"
)

func main() {
	common.InitRuntimeForScanning()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	generalConf := &config.GeneralConfig{}
	rpcConf := &config.RPCConfig{}
	engineConf := &config.EngineConfig{}
	for _, c := range []interface {
		Load() error
		Validate() error
	}{generalConf, rpcConf, engineConf} {
		if err := c.Load(); err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		if err := c.Validate(); err != nil {
			log.Fatal().Err(err).Msg("invalid config")
		}
	}

	if level, err := zerolog.ParseLevel(strings.ToLower(generalConf.LogLevel)); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	pools, err := config.LoadPoolFile(engineConf.PoolFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", engineConf.PoolFile).Msg("failed to load pool descriptor file")
	}
	log.Info().Int("pools", len(pools)).Str("path", engineConf.PoolFile).Msg("pool descriptors loaded")

	rpcURL := rpcConf.RPCUrl
	wsURL := rpcConf.WSUrl
	if rpcConf.RPCApiKey != "" {
		rpcURL += "?api-key=" + rpcConf.RPCApiKey
		wsURL += "?api-key=" + rpcConf.RPCApiKey
	}

	rpcClient := rpc.New(rpcURL)
	accStream := stream.NewWSStream(wsURL, stream.DefaultWSConfig())

	marketSvc, err := market.NewService(engineConf, rpcClient, accStream, pools)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create market service")
	}
	routerSvc := router.NewRouter(engineConf, marketSvc)
	httpSvc := http.NewHTTPService(generalConf, marketSvc, routerSvc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 4)
	go func() { errCh <- accStream.Run(ctx) }()
	go func() { errCh <- marketSvc.Run(ctx) }()
	go func() { errCh <- routerSvc.Run(ctx) }()
	go func() { errCh <- httpSvc.Start() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("service exited with error")
		}
	}
	stop()

	if err := httpSvc.Stop(); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("engine stopped")
}
