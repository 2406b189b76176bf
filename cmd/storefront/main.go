package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/corray333/backend-labs/cafe/pkg/client"
	"github.com/corray333/backend-labs/cafe/pkg/logger"
	"github.com/corray333/backend-labs/cafe/pkg/storefront/panel"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// defaultAPIURL points at the API on its default port.
const defaultAPIURL = "http://localhost:3001"

func main() {
	pflag.String("api-url", defaultAPIURL, "base URL of the order API")
	pflag.Duration("poll-interval", panel.DefaultInterval, "barista panel refresh interval")
	pflag.String("log-file", "", "also write logs to this file")
	pflag.Parse()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		panic(err)
	}
	// STOREFRONT_API_URL, STOREFRONT_POLL_INTERVAL, STOREFRONT_LOG_FILE
	viper.SetEnvPrefix("storefront")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	slog.SetDefault(slog.New(logger.NewHandler(&logger.Options{
		Level: "warn",
		File:  viper.GetString("log-file"),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(viper.GetString("api-url"))
	sh := newShell(os.Stdout, api, viper.GetDuration("poll-interval"))
	defer sh.close()

	sh.run(ctx, os.Stdin)
}
