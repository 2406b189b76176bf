package main

import (
	"github.com/corray333/backend-labs/cafe/internal/app"
	"github.com/corray333/backend-labs/cafe/internal/config"
)

func main() {
	config.MustInit("cafe-order-svc")
	app.MustNewApp().Run()
}
