// Package articledao provides access to the aggregator's single articles
// table: Article records and per-user Clap records multiplexed by sort key,
// with a recency index for chronological listing.
package articledao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rs/zerolog"
	"github.com/savaki/ddb"
)

// ErrNotOwner is returned when a conditional write fails because the caller
// is not the article's referrer.
var ErrNotOwner = errors.New("caller is not the article referrer")

// MaxPageSize bounds the number of Articles returned by a single listing.
const MaxPageSize = 30

type DAO struct {
	client    *ddb.DDB
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
	logger    zerolog.Logger
	dry       bool
}

func New(api dynamodbiface.DynamoDBAPI, tableName string, logger zerolog.Logger, dry bool) *DAO {
	client := ddb.New(api)
	return &DAO{
		client:    client,
		table:     client.MustTable(tableName, Article{}),
		api:       api,
		tableName: tableName,
		logger:    logger,
		dry:       dry,
	}
}

// PutArticle stores or overwrites an Article record.
func (d *DAO) PutArticle(ctx context.Context, article Article) error {
	if d.dry {
		d.logger.Info().Str("id", article.ID).Msg("dry run, skipping article put")
		return nil
	}
	if err := d.table.Put(article).RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to put article %v: %w", article.ID, err)
	}
	return nil
}

// GetArticle retrieves an Article by id. Returns nil if not found; absence is
// a valid result, not an error.
func (d *DAO) GetArticle(ctx context.Context, id string) (*Article, error) {
	var article Article
	if err := d.table.Get(id).Range(ArticleSortKey).ScanWithContext(ctx, &article); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get article %v: %w", id, err)
	}
	return &article, nil
}

// DeleteArticle deletes the Article only if the stored referrer matches the
// caller's identity. The check and the delete are a single conditional
// operation; on a non-matching referrer the record is left untouched and
// ErrNotOwner is returned.
func (d *DAO) DeleteArticle(ctx context.Context, id, caller string) error {
	if d.dry {
		d.logger.Info().Str("id", id).Str("caller", caller).Msg("dry run, skipping article delete")
		return nil
	}
	_, err := d.api.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"pk": {S: aws.String(id)},
			"sk": {S: aws.String(ArticleSortKey)},
		},
		ConditionExpression: aws.String("#referrer = :caller"),
		ExpressionAttributeNames: map[string]*string{
			"#referrer": aws.String("referrer"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":caller": {S: aws.String(caller)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrNotOwner
		}
		return fmt.Errorf("failed to delete article %v: %w", id, err)
	}
	return nil
}

// IncrementPings atomically adds one to the article's ping counter. Concurrent
// increments are all reflected; there is no read-modify-write window.
func (d *DAO) IncrementPings(ctx context.Context, id string) error {
	if d.dry {
		d.logger.Info().Str("id", id).Msg("dry run, skipping ping increment")
		return nil
	}
	_, err := d.api.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"pk": {S: aws.String(id)},
			"sk": {S: aws.String(ArticleSortKey)},
		},
		UpdateExpression: aws.String("ADD #pings :one"),
		ExpressionAttributeNames: map[string]*string{
			"#pings": aws.String("pings"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":one": {N: aws.String("1")},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to increment pings for article %v: %w", id, err)
	}
	return nil
}

// PutClaps stores the caller's latest clap count for an article, fully
// replacing any prior record, and reconciles the article's claps/clappers
// totals by the difference. Returns true when this is the caller's first clap
// record for the article.
func (d *DAO) PutClaps(ctx context.Context, id, caller string, claps int64) (created bool, err error) {
	if d.dry {
		d.logger.Info().Str("id", id).Str("caller", caller).Int64("claps", claps).Msg("dry run, skipping claps put")
		return false, nil
	}

	record := Clap{
		ArticleID: id,
		Kind:      ClapSortKey(caller),
		Claps:     claps,
		DateTime:  time.Now().UTC().Format(time.RFC3339),
	}
	item, err := dynamodbattribute.MarshalMap(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal clap record: %w", err)
	}

	out, err := d.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:    aws.String(d.tableName),
		Item:         item,
		ReturnValues: aws.String(dynamodb.ReturnValueAllOld),
	})
	if err != nil {
		return false, fmt.Errorf("failed to put claps for article %v: %w", id, err)
	}

	var deltaClaps, deltaClappers int64
	if len(out.Attributes) == 0 {
		created = true
		deltaClaps = claps
		if claps > 0 {
			deltaClappers = 1
		}
	} else {
		var old Clap
		if err := dynamodbattribute.UnmarshalMap(out.Attributes, &old); err != nil {
			return false, fmt.Errorf("failed to unmarshal prior clap record: %w", err)
		}
		deltaClaps = claps - old.Claps
		switch {
		case old.Claps > 0 && claps == 0:
			deltaClappers = -1
		case old.Claps == 0 && claps > 0:
			deltaClappers = 1
		}
	}

	if deltaClaps != 0 || deltaClappers != 0 {
		if err := d.adjustEngagement(ctx, id, deltaClaps, deltaClappers); err != nil {
			return created, err
		}
	}
	return created, nil
}

func (d *DAO) adjustEngagement(ctx context.Context, id string, deltaClaps, deltaClappers int64) error {
	_, err := d.api.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"pk": {S: aws.String(id)},
			"sk": {S: aws.String(ArticleSortKey)},
		},
		UpdateExpression: aws.String("ADD #claps :deltaClaps, #clappers :deltaClappers"),
		ExpressionAttributeNames: map[string]*string{
			"#claps":    aws.String("claps"),
			"#clappers": aws.String("clappers"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":deltaClaps":    {N: aws.String(fmt.Sprintf("%d", deltaClaps))},
			":deltaClappers": {N: aws.String(fmt.Sprintf("%d", deltaClappers))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to adjust engagement totals for article %v: %w", id, err)
	}
	return nil
}

// GetClaps retrieves the caller's Clap record for an article. Returns nil if
// the caller never clapped; the access layer maps that to a zero-value
// response, never to an error.
func (d *DAO) GetClaps(ctx context.Context, id, caller string) (*Clap, error) {
	var clap Clap
	if err := d.table.Get(id).Range(ClapSortKey(caller)).ScanWithContext(ctx, &clap); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get claps for article %v: %w", id, err)
	}
	return &clap, nil
}

// ListRecent returns a page of Articles ordered newest-first, plus a token to
// fetch the following page when more results exist. The limit is clamped to
// [1, MaxPageSize]; zero or negative values default to MaxPageSize.
func (d *DAO) ListRecent(ctx context.Context, limit int64, token string) ([]Article, string, error) {
	return d.listIndexed(ctx, RecencyIndex, "#type = :art",
		map[string]*string{"#type": aws.String("type")},
		map[string]*dynamodb.AttributeValue{":art": {S: aws.String(ArticleTypeMarker)}},
		limit, token)
}

// ListByDomain returns a page of Articles for one derived domain, newest
// first.
func (d *DAO) ListByDomain(ctx context.Context, domain string, limit int64, token string) ([]Article, string, error) {
	return d.listIndexed(ctx, DomainIndex, "#domain = :domain",
		map[string]*string{"#domain": aws.String("domain")},
		map[string]*dynamodb.AttributeValue{":domain": {S: aws.String(domain)}},
		limit, token)
}

func (d *DAO) listIndexed(
	ctx context.Context,
	index, keyCondition string,
	names map[string]*string,
	values map[string]*dynamodb.AttributeValue,
	limit int64,
	token string,
) ([]Article, string, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	startKey, err := decodeToken(index, token)
	if err != nil {
		return nil, "", err
	}

	out, err := d.api.QueryWithContext(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		Limit:                     aws.Int64(limit),
		ScanIndexForward:          aws.Bool(false),
		ExclusiveStartKey:         startKey,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to query %v: %w", index, err)
	}

	var articles []Article
	if err := dynamodbattribute.UnmarshalListOfMaps(out.Items, &articles); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal articles: %w", err)
	}
	return articles, encodeToken(index, out.LastEvaluatedKey), nil
}

func isConditionFailed(err error) bool {
	var ae awserr.Error
	if errors.As(err, &ae) {
		return ae.Code() == dynamodb.ErrCodeConditionalCheckFailedException
	}
	return false
}
