package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"dropx/internal/config"
	deliveryservice "dropx/internal/delivery-service"
	"dropx/internal/mylogger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file, relying on environment")
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	mylog, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := deliveryservice.Execute(context.Background(), mylog, cfg); err != nil {
		mylog.Error("service exited with error", err)
		os.Exit(1)
	}
}
