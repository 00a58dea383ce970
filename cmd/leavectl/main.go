/*
main.go - Leave engine operator CLI

PURPOSE:
  One-shot operations against the configured store: balance lookups,
  working-day counts, registration and adjustments, request lifecycle,
  year-end rollover, XLSX reports and holiday imports.

USAGE:
  leavectl <command> [flags]

  balance          -email E [-year Y]
  termination      -email E [-year Y]
  workdays         -start D -end D [-type T] [-half-day]
  register         -email E -name N [-year Y] [-start D] [-termination D] [-bf X]
  adjust           -email E -field F -value X [-year Y] [-actor A]
  request submit   -email E -approver A -type T -start D -end D [-title S] [-half-day]
  request approve  -id ID [-actor A]
  request reject   -id ID [-actor A]
  request cancel   -id ID [-actor A]
  rollover         -from Y -to Y [-actor A]
  report           [-year Y] [-out DIR] [-mail]
  import-holidays  -file PATH

ENVIRONMENT:
  Same LEAVE_* keys as leaved; see config/config.go.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/CHAISAHR/saleaveapp-sub000/app"
	"github.com/CHAISAHR/saleaveapp-sub000/config"
	"github.com/CHAISAHR/saleaveapp-sub000/logging"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "leavectl: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "leavectl: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, a, os.Args[1:], os.Stdout)
	a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "leavectl: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}
