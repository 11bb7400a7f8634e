package main

import (
	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	runtimecommon "github.com/hxuan190/clmm-engine/internal/common"
	"github.com/hxuan190/clmm-engine/internal/config"
	"github.com/hxuan190/clmm-engine/internal/http"
	"github.com/hxuan190/clmm-engine/internal/services/engine"
	"github.com/hxuan190/clmm-engine/internal/services/wallet"
)

// @title CLMM Engine API
// @version 1.0
// @description Concentrated liquidity pools with tick-ranged positions, swaps, flash loans and a price oracle.
// @description
// @description ## - Conventions
// @description - Amounts are integers in the coin's smallest unit
// @description - Sqrt prices are Q64.64 decimal strings, liquidity is a decimal string
// @description - Fee tiers are in parts per million: 500 = 0.05%
// @description - Private routes need the X-Account header, admin routes need X-Admin-Token
// @BasePath /
// @schemes http https
// @tag.name pools
// @tag.name positions
// @tag.name swap
// @tag.name oracle
// @tag.name admin
func main() {
	// load env; a missing .env falls back to the process environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	runtimecommon.InitLogger(
		common.GetEnvOrDefault("LOG_LEVEL", "info"),
		common.GetEnvOrDefault("ENV", config.DevEnv),
	)
	runtimecommon.InitRuntime()

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.EngineConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		&wallet.Service{},
		&engine.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run doesn't call Stop(), we must do it manually
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
