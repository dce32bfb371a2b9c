package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"condorledger/internal/cli"
)

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	if err := cli.NewRootCmd(app).Execute(); err != nil {
		app.Close()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
