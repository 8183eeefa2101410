package articledao

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
)

// ErrBadToken flags a pagination token the caller supplied that cannot be
// decoded. The access layer maps it to a client error.
var ErrBadToken = errors.New("malformed pagination token")

// The pagination token is an opaque encoding of the last evaluated key of an
// index query. All key attributes are strings, so the token is the base64 of a
// flat name-to-value JSON object. The issuing index is embedded under a
// reserved name so a cursor minted by one listing cannot be replayed against
// another.

const tokenIndexKey = "_index"

func encodeToken(index string, key map[string]*dynamodb.AttributeValue) string {
	if len(key) == 0 {
		return ""
	}
	flat := make(map[string]string, len(key)+1)
	for name, value := range key {
		flat[name] = aws.StringValue(value.S)
	}
	flat[tokenIndexKey] = index
	raw, err := json.Marshal(flat)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeToken(index, token string) (map[string]*dynamodb.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if flat[tokenIndexKey] != index {
		return nil, fmt.Errorf("%w: token was issued by a different listing", ErrBadToken)
	}
	delete(flat, tokenIndexKey)

	key := make(map[string]*dynamodb.AttributeValue, len(flat))
	for name, value := range flat {
		key[name] = &dynamodb.AttributeValue{S: aws.String(value)}
	}
	return key, nil
}
