package main

import (
	"context"
	"os"

	"gamecredits/cmd"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := cmd.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Error("gamecredits failed")
		os.Exit(1)
	}
}
