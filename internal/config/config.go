package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/cafe/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// legacyEnv maps environment names used by earlier deployments to config keys.
var legacyEnv = map[string]string{
	"store.uri":                 "MONGODB_URI",
	"server.http.port":          "PORT",
	"notifier.sendgrid.api_key": "SENDGRID_API_KEY",
}

// MustInit loads .env, the optional config file for the named service and
// environment overrides, then installs the default logger.
func MustInit(name string) {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}

	SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/" + name)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
	}

	BindEnv()
	SetupLogger()
}

// BindEnv lets STORE_URI style variables and the legacy names override the file.
func BindEnv() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range legacyEnv {
		if err := viper.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			panic("error while binding env: " + err.Error())
		}
	}
}

func SetDefaults() {
	viper.SetDefault("server.http.port", 3001)
	viper.SetDefault("server.http.read_timeout", 10*time.Second)
	viper.SetDefault("server.http.write_timeout", 10*time.Second)
	viper.SetDefault("server.http.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Content-Type", "X-Request-Id"})
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("store.database", "cafe")
	viper.SetDefault("store.collection", "orders")

	viper.SetDefault("orders.confirmed_limit", 20)
	viper.SetDefault("orders.enforce_total", true)

	viper.SetDefault("verify.max_attempts", 0)
	viper.SetDefault("verify.attempts_ttl", 15*time.Minute)

	viper.SetDefault("notifier.from", "orders@cafe.local")
	viper.SetDefault("notifier.from_name", "Café R&P")
	viper.SetDefault("notifier.timeout", 10*time.Second)
	viper.SetDefault("notifier.amqp.queue", "order.notifications")

	viper.SetDefault("rabbitmq.queue", "order.notifications")
	viper.SetDefault("rabbitmq.consumer_tag", "cafe-mailer")
	viper.SetDefault("mailer.concurrency", 10)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func SetupLogger() {
	handler := logger.NewHandler(&logger.Options{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
		File:   viper.GetString("log.file"),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}
