package articledao

import (
	"os"

	oryxcli "github.com/oryx-news/oryx/oryx-cli"

	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rs/zerolog"
)

// Build creates an articles DAO using the standard table name for the
// configured environment.
func Build(api dynamodbiface.DynamoDBAPI) *DAO {
	return New(api, TableName(oryxcli.CommonOpts.Env), zerolog.New(os.Stdout), oryxcli.CommonOpts.Dry)
}

// TableName returns the articles table name for the given environment.
func TableName(env string) string {
	return env + "-oryx--articles"
}
