package main

import (
	"context"
	"lcs-image-diff/internal/env"
	"lcs-image-diff/internal/runnable"
	"log"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}

	if err := runnable.NewServer().Start(context.Background()); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
