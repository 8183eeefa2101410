package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/oryx-news/oryx/articleapi"
	"github.com/oryx-news/oryx/articledao"
	"github.com/oryx-news/oryx/googlechat"
	oryxcli "github.com/oryx-news/oryx/oryx-cli"
	oryxddb "github.com/oryx-news/oryx/oryx-ddb"
	oryxrest "github.com/oryx-news/oryx/oryx-rest"
	oryxsecret "github.com/oryx-news/oryx/oryx-secret"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"
)

var opts struct {
	ChatSecret string
}

var service = oryxcli.NewService("oryx-api")

func main() {
	app := oryxcli.App(
		service,
		action,
		append(
			oryxcli.CommonFlags,
			append(
				oryxddb.DDBFlags,
				oryxcli.PortFlag(5000),
				oryxcli.StringFlag("chat-secret", "The Secrets Manager secret holding the chat verification token", &opts.ChatSecret),
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

	metrics := oryxcli.NewMetrics(service, cloudwatch.New(sess))
	api := articleapi.New(articledao.Build(dynamo)).WithMetrics(metrics)

	chat := &googlechat.Handler{Create: api.CreateFromChat}
	if opts.ChatSecret != "" {
		var secret struct {
			VerificationToken string `json:"verificationToken"`
		}
		if err := oryxsecret.LoadSecret(sess, opts.ChatSecret, &secret); err != nil {
			return err
		}
		chat.VerificationToken = secret.VerificationToken
	}

	routes := oryxrest.Middlewares(service, chi.NewRouter())
	routes.Use(withTiming(metrics))

	api.Routes(routes)
	routes.Post("/chats/google", chat.ServeHTTP)

	return oryxrest.Webserver(service, routes)
}

func withTiming(metrics oryxcli.Metrics) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			defer func() {
				metrics.Timing(req.Context(), oryxcli.ResponseTimeMetric, start, map[oryxcli.DimensionName]string{
					oryxcli.OperationNameDimension: req.Method + " " + req.URL.Path,
				})
			}()
			handler.ServeHTTP(w, req)
		})
	}
}
