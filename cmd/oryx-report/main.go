package main

import (
	"context"
	"log"
	"os"
	"sort"
	"time"

	"github.com/oryx-news/oryx/articledao"
	oryxcli "github.com/oryx-news/oryx/oryx-cli"
	oryxddb "github.com/oryx-news/oryx/oryx-ddb"
	oryxreport "github.com/oryx-news/oryx/oryx-report"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/urfave/cli/v2"
)

// how far back the engagement scan reaches, and how many articles it reports
const (
	scanDepth  = 300
	reportSize = 25
)

var service = oryxcli.NewService("oryx-report")

func main() {
	app := oryxcli.App(
		service,
		action,
		append(
			oryxcli.CommonFlags,
			append(
				oryxreport.ReportFlags,
				oryxddb.DDBFlags...,
			)...,
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

type reportEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Domain   string `json:"domain"`
	Claps    int64  `json:"claps"`
	Clappers int64  `json:"clappers"`
	Pings    int64  `json:"pings"`
	Date     string `json:"date"`
}

type report struct {
	GeneratedAt string        `json:"generatedAt"`
	Scanned     int           `json:"scanned"`
	Articles    []reportEntry `json:"articles"`
}

func action(_ *cli.Context) error {
	sess := session.Must(session.NewSession(aws.NewConfig()))

	dynamo, err := oryxddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}
	store := articledao.Build(dynamo)
	metrics := oryxcli.NewMetrics(service, cloudwatch.New(sess))

	handler := oryxreport.NewHandler(service, "top-articles", func(ctx context.Context) (interface{}, error) {
		return generate(ctx, store, metrics)
	})
	return handler.Start()
}

// generate walks the most recent articles and ranks them by claps, breaking
// ties on pings.
func generate(ctx context.Context, store *articledao.DAO, metrics oryxcli.Metrics) (interface{}, error) {
	var recent []articledao.Article
	token := ""
	for {
		page, next, err := store.ListRecent(ctx, articledao.MaxPageSize, token)
		if err != nil {
			return nil, err
		}
		recent = append(recent, page...)
		if next == "" || len(recent) >= scanDepth {
			break
		}
		token = next
	}

	metrics.Gauge(ctx, oryxcli.ArticlesScannedMetric, float64(len(recent)))

	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].Claps != recent[j].Claps {
			return recent[i].Claps > recent[j].Claps
		}
		return recent[i].Pings > recent[j].Pings
	})

	out := report{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Scanned:     len(recent),
		Articles:    []reportEntry{},
	}
	for _, article := range recent {
		if len(out.Articles) == reportSize {
			break
		}
		title := article.Title
		if title == "" {
			title = article.Link
		}
		out.Articles = append(out.Articles, reportEntry{
			ID:       article.ID,
			Title:    title,
			Link:     article.Link,
			Domain:   article.Domain,
			Claps:    article.Claps,
			Clappers: article.Clappers,
			Pings:    article.Pings,
			Date:     article.Date,
		})
	}
	return out, nil
}
