package main

import (
	"log"

	"github.com/norviklabs/norvik/internal/auth/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("auth: startup failed: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("auth: %v", err)
	}
}
