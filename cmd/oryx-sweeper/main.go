package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/oryx-news/oryx/articledao"
	"github.com/oryx-news/oryx/enricher"
	oryxcli "github.com/oryx-news/oryx/oryx-cli"
	oryxcron "github.com/oryx-news/oryx/oryx-cron"
	oryxddb "github.com/oryx-news/oryx/oryx-ddb"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/urfave/cli/v2"
)

var opts struct {
	MaxAgeDays int
}

var service = oryxcli.NewService("oryx-sweeper")

func main() {
	app := oryxcli.App(
		service,
		action,
		append(
			oryxcli.CommonFlags,
			append(
				oryxddb.DDBFlags,
				&cli.IntFlag{
					Name:        "max-age-days",
					Usage:       "refresh article metadata older than this many days",
					Value:       30,
					EnvVars:     []string{"MAX_AGE_DAYS"},
					Destination: &opts.MaxAgeDays,
				},
			)...,
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	sess := session.Must(session.NewSession(aws.NewConfig()))

	dynamo, err := oryxddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}
	store := articledao.Build(dynamo)
	e := enricher.New(store, oryxcli.Logger(service))

	handler := oryxcron.NewHandler(service, func(ctx context.Context) error {
		return e.Sweep(ctx, store, time.Duration(opts.MaxAgeDays)*24*time.Hour)
	})
	return handler.Start()
}
