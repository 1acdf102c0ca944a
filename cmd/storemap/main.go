package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/fx"

	"github.com/tigerroll/storemap/internal/app"
	"github.com/tigerroll/storemap/pkg/batch/adapter/database"
	config "github.com/tigerroll/storemap/pkg/batch/core/config"
	"github.com/tigerroll/storemap/pkg/batch/support/util/logger"
)

// embeddedConfig embeds the content of the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// getDBProviderOptions selects the DB providers named in DB_ADAPTERS (e.g., "postgres,sqlite").
// All providers are registered when it is not set.
func getDBProviderOptions() []fx.Option {
	adapters := os.Getenv("DB_ADAPTERS")
	if adapters == "" {
		adapters = "postgres,mysql,sqlite"
	}

	options := make([]fx.Option, 0)
	for _, name := range strings.Split(adapters, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if provider, ok := app.DBProviderMap[name]; ok {
			options = append(options, fx.Provide(fx.Annotate(provider, fx.ResultTags(`group:"`+database.DBProviderGroup+`"`))))
			logger.Debugf("DB Provider '%s' selected and registered.", name)
		} else {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
		}
	}
	return options
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	err := app.RunApplication(ctx, envFilePath, config.EmbeddedConfig(embeddedConfig), getDBProviderOptions())
	logger.Sync()
	if err != nil {
		logger.Errorf("Store export failed: %v", err)
		stop()
		os.Exit(1)
	}
}
