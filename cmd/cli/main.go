package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/premiumgate/internal/client/cli"
)

func main() {

	ctx := context.Background()
	app := cli.NewApp(os.Stdout)

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrPaymentRequired) {
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}

}
