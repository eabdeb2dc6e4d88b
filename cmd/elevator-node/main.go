package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/galdor/go-service/pkg/service"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "cannot load .env file: %v\n", err)
		os.Exit(1)
	}

	service.Run("elevator-node", "an elevator hall call coordination node",
		NewService())
}
