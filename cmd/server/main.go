package main

import (
	"context"
	"log"

	"github.com/SJAGSINGH/SuttonHouse-MarkMon/internal/app"
)

func main() {
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
