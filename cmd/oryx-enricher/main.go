package main

import (
	"log"
	"os"

	"github.com/oryx-news/oryx/articledao"
	"github.com/oryx-news/oryx/enricher"
	oryxcli "github.com/oryx-news/oryx/oryx-cli"
	oryxddb "github.com/oryx-news/oryx/oryx-ddb"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/urfave/cli/v2"
)

var service = oryxcli.NewService("oryx-enricher")

func main() {
	app := oryxcli.App(
		service,
		action,
		append(
			oryxcli.CommonFlags,
			oryxddb.DDBFlags...,
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

	e := enricher.New(articledao.Build(dynamo), oryxcli.Logger(service)).
		WithMetrics(oryxcli.NewMetrics(service, cloudwatch.New(sess)))

	handler := oryxddb.NewHandler(service, e.OnInsert, e.OnUpdate, nil)
	return handler.Start()
}
