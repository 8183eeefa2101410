package articledao

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

// fakeDynamo implements the slice of dynamodbiface the DAO's expression-based
// operations use, backed by an in-memory map.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI
	items     map[string]map[string]*dynamodb.AttributeValue // pk|sk -> item
	lastLimit int64
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]*dynamodb.AttributeValue{}}
}

func itemKey(item map[string]*dynamodb.AttributeValue) string {
	return aws.StringValue(item["pk"].S) + "|" + aws.StringValue(item["sk"].S)
}

func (f *fakeDynamo) seed(item map[string]*dynamodb.AttributeValue) {
	f.items[itemKey(item)] = item
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, input *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	key := itemKey(input.Item)
	old := f.items[key]
	f.items[key] = input.Item

	out := &dynamodb.PutItemOutput{}
	if aws.StringValue(input.ReturnValues) == dynamodb.ReturnValueAllOld && old != nil {
		out.Attributes = old
	}
	return out, nil
}

func (f *fakeDynamo) DeleteItemWithContext(_ aws.Context, input *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	key := itemKey(input.Key)
	item, ok := f.items[key]

	if input.ConditionExpression != nil {
		// the only condition the DAO issues is "#referrer = :caller"
		caller := aws.StringValue(input.ExpressionAttributeValues[":caller"].S)
		if !ok || item["referrer"] == nil || aws.StringValue(item["referrer"].S) != caller {
			return nil, awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)
		}
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItemWithContext(_ aws.Context, input *dynamodb.UpdateItemInput, _ ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	key := itemKey(input.Key)
	item, ok := f.items[key]
	if !ok {
		item = map[string]*dynamodb.AttributeValue{
			"pk": input.Key["pk"],
			"sk": input.Key["sk"],
		}
		f.items[key] = item
	}

	expr := strings.TrimPrefix(aws.StringValue(input.UpdateExpression), "ADD ")
	for _, clause := range strings.Split(expr, ",") {
		fields := strings.Fields(clause)
		name := aws.StringValue(input.ExpressionAttributeNames[fields[0]])
		delta, err := strconv.ParseInt(aws.StringValue(input.ExpressionAttributeValues[fields[1]].N), 10, 64)
		if err != nil {
			return nil, err
		}
		var current int64
		if item[name] != nil {
			current, _ = strconv.ParseInt(aws.StringValue(item[name].N), 10, 64)
		}
		item[name] = &dynamodb.AttributeValue{N: aws.String(strconv.FormatInt(current+delta, 10))}
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) QueryWithContext(_ aws.Context, input *dynamodb.QueryInput, _ ...request.Option) (*dynamodb.QueryOutput, error) {
	f.lastLimit = aws.Int64Value(input.Limit)

	// resolve the single equality condition, e.g. "#type = :art"
	fields := strings.Fields(aws.StringValue(input.KeyConditionExpression))
	attr := aws.StringValue(input.ExpressionAttributeNames[fields[0]])
	want := aws.StringValue(input.ExpressionAttributeValues[fields[2]].S)

	var matched []map[string]*dynamodb.AttributeValue
	for _, item := range f.items {
		if item[attr] != nil && aws.StringValue(item[attr].S) == want {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return aws.StringValue(matched[i]["gsi1sk"].S) > aws.StringValue(matched[j]["gsi1sk"].S)
	})

	start := 0
	if input.ExclusiveStartKey != nil {
		lastPK := aws.StringValue(input.ExclusiveStartKey["pk"].S)
		for i, item := range matched {
			if aws.StringValue(item["pk"].S) == lastPK {
				start = i + 1
				break
			}
		}
	}

	end := len(matched)
	if limit := int(aws.Int64Value(input.Limit)); limit > 0 && start+limit < end {
		end = start + limit
	}
	page := matched[start:end]

	out := &dynamodb.QueryOutput{Items: page}
	if end < len(matched) && len(page) > 0 {
		last := page[len(page)-1]
		out.LastEvaluatedKey = map[string]*dynamodb.AttributeValue{
			"pk":     last["pk"],
			"sk":     last["sk"],
			attr:     last[attr],
			"gsi1sk": last["gsi1sk"],
		}
	}
	return out, nil
}

func withFakeDAO(t *testing.T, callback func(ctx context.Context, api *fakeDynamo, dao *DAO)) {
	api := newFakeDynamo()
	dao := New(api, "test-oryx--articles", zerolog.Nop(), false)
	callback(context.Background(), api, dao)
}

func seedArticle(api *fakeDynamo, id, referrer, date string, domain string) {
	api.seed(map[string]*dynamodb.AttributeValue{
		"pk":       {S: aws.String(id)},
		"sk":       {S: aws.String(ArticleSortKey)},
		"type":     {S: aws.String(ArticleTypeMarker)},
		"gsi1sk":   {S: aws.String(date)},
		"date":     {S: aws.String(date)},
		"link":     {S: aws.String("https://" + domain + "/" + id)},
		"title":    {S: aws.String("title " + id)},
		"domain":   {S: aws.String(domain)},
		"referrer": {S: aws.String(referrer)},
		"claps":    {N: aws.String("0")},
		"clappers": {N: aws.String("0")},
		"pings":    {N: aws.String("0")},
	})
}

func TestDeleteArticle(t *testing.T) {
	withFakeDAO(t, func(ctx context.Context, api *fakeDynamo, dao *DAO) {
		seedArticle(api, "a1", "alice@x.com", "2024-05-01T10:00:00Z", "example.com")

		// non-owner delete fails and leaves the record untouched
		err := dao.DeleteArticle(ctx, "a1", "bob@x.com")
		assert.Equal(t, ErrNotOwner, err)
		assert.Equal(t, 1, len(api.items))

		// owner delete succeeds
		err = dao.DeleteArticle(ctx, "a1", "alice@x.com")
		assert.Nil(t, err)
		assert.Equal(t, 0, len(api.items))
	})
}

func TestIncrementPings(t *testing.T) {
	withFakeDAO(t, func(ctx context.Context, api *fakeDynamo, dao *DAO) {
		seedArticle(api, "a1", "alice@x.com", "2024-05-01T10:00:00Z", "example.com")

		// each call increments by exactly one, no dedup
		assert.Nil(t, dao.IncrementPings(ctx, "a1"))
		assert.Nil(t, dao.IncrementPings(ctx, "a1"))

		item := api.items["a1|"+ArticleSortKey]
		assert.Equal(t, "2", aws.StringValue(item["pings"].N))
	})
}

func TestPutClaps(t *testing.T) {
	withFakeDAO(t, func(ctx context.Context, api *fakeDynamo, dao *DAO) {
		seedArticle(api, "a1", "alice@x.com", "2024-05-01T10:00:00Z", "example.com")
		article := api.items["a1|"+ArticleSortKey]

		// first clap creates the record and counts a new clapper
		created, err := dao.PutClaps(ctx, "a1", "bob@x.com", 10)
		assert.Nil(t, err)
		assert.True(t, created)
		assert.Equal(t, "10", aws.StringValue(article["claps"].N))
		assert.Equal(t, "1", aws.StringValue(article["clappers"].N))

		// overwrite, not accumulate
		created, err = dao.PutClaps(ctx, "a1", "bob@x.com", 4)
		assert.Nil(t, err)
		assert.False(t, created)
		assert.Equal(t, "4", aws.StringValue(article["claps"].N))
		assert.Equal(t, "1", aws.StringValue(article["clappers"].N))

		// repeated identical put leaves totals unchanged
		created, err = dao.PutClaps(ctx, "a1", "bob@x.com", 4)
		assert.Nil(t, err)
		assert.False(t, created)
		assert.Equal(t, "4", aws.StringValue(article["claps"].N))
		assert.Equal(t, "1", aws.StringValue(article["clappers"].N))

		// dropping to zero removes the clapper from the total
		_, err = dao.PutClaps(ctx, "a1", "bob@x.com", 0)
		assert.Nil(t, err)
		assert.Equal(t, "0", aws.StringValue(article["claps"].N))
		assert.Equal(t, "0", aws.StringValue(article["clappers"].N))

		// clapping again from a stored zero counts the clapper again
		_, err = dao.PutClaps(ctx, "a1", "bob@x.com", 7)
		assert.Nil(t, err)
		assert.Equal(t, "7", aws.StringValue(article["claps"].N))
		assert.Equal(t, "1", aws.StringValue(article["clappers"].N))

		// a second user's record is independent
		created, err = dao.PutClaps(ctx, "a1", "carol@x.com", 3)
		assert.Nil(t, err)
		assert.True(t, created)
		assert.Equal(t, "10", aws.StringValue(article["claps"].N))
		assert.Equal(t, "2", aws.StringValue(article["clappers"].N))
	})
}

func TestListRecent(t *testing.T) {
	withFakeDAO(t, func(ctx context.Context, api *fakeDynamo, dao *DAO) {
		for i := 1; i <= 5; i++ {
			seedArticle(api, fmt.Sprintf("a%v", i), "alice@x.com", fmt.Sprintf("2024-05-0%vT10:00:00Z", i), "example.com")
		}

		// first page, newest first
		page, token, err := dao.ListRecent(ctx, 2, "")
		assert.Nil(t, err)
		assert.Equal(t, 2, len(page))
		assert.Equal(t, "a5", page[0].ID)
		assert.Equal(t, "a4", page[1].ID)
		assert.NotEqual(t, "", token)

		// second page follows with no overlap
		page, token, err = dao.ListRecent(ctx, 2, token)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(page))
		assert.Equal(t, "a3", page[0].ID)
		assert.Equal(t, "a2", page[1].ID)
		assert.NotEqual(t, "", token)

		// final page exhausts the listing
		page, token, err = dao.ListRecent(ctx, 2, token)
		assert.Nil(t, err)
		assert.Equal(t, 1, len(page))
		assert.Equal(t, "a1", page[0].ID)
		assert.Equal(t, "", token)
	})
}

func TestListByDomain(t *testing.T) {
	withFakeDAO(t, func(ctx context.Context, api *fakeDynamo, dao *DAO) {
		seedArticle(api, "a1", "alice@x.com", "2024-05-01T10:00:00Z", "example.com")
		seedArticle(api, "a2", "alice@x.com", "2024-05-02T10:00:00Z", "other.org")
		seedArticle(api, "a3", "alice@x.com", "2024-05-03T10:00:00Z", "example.com")

		page, token, err := dao.ListByDomain(ctx, "example.com", 0, "")
		assert.Nil(t, err)
		assert.Equal(t, "", token)
		assert.Equal(t, 2, len(page))
		assert.Equal(t, "a3", page[0].ID)
		assert.Equal(t, "a1", page[1].ID)
	})
}

func TestListRecentClampsLimit(t *testing.T) {
	withFakeDAO(t, func(ctx context.Context, api *fakeDynamo, dao *DAO) {
		for i := 1; i <= MaxPageSize+5; i++ {
			seedArticle(api, fmt.Sprintf("a%v", i), "alice@x.com", fmt.Sprintf("2024-05-01T10:00:%02dZ", i), "example.com")
		}

		// an oversized limit is clamped before the query is issued
		page, token, err := dao.ListRecent(ctx, 50, "")
		assert.Nil(t, err)
		assert.EqualValues(t, MaxPageSize, api.lastLimit)
		assert.Equal(t, MaxPageSize, len(page))
		assert.NotEqual(t, "", token)

		// zero falls back to the maximum as well
		_, _, err = dao.ListRecent(ctx, 0, "")
		assert.Nil(t, err)
		assert.EqualValues(t, MaxPageSize, api.lastLimit)
	})
}

func TestListTokenScope(t *testing.T) {
	withFakeDAO(t, func(ctx context.Context, api *fakeDynamo, dao *DAO) {
		seedArticle(api, "a1", "alice@x.com", "2024-05-01T10:00:00Z", "example.com")
		seedArticle(api, "a2", "alice@x.com", "2024-05-02T10:00:00Z", "example.com")

		_, token, err := dao.ListRecent(ctx, 1, "")
		assert.Nil(t, err)
		assert.NotEqual(t, "", token)

		// a recency cursor cannot seed a domain-scoped listing
		_, _, err = dao.ListByDomain(ctx, "example.com", 1, token)
		assert.True(t, errors.Is(err, ErrBadToken))
	})
}

func TestListRecentBadToken(t *testing.T) {
	withFakeDAO(t, func(ctx context.Context, api *fakeDynamo, dao *DAO) {
		_, _, err := dao.ListRecent(ctx, 10, "!!! bogus !!!")
		assert.Error(t, err)
	})
}
