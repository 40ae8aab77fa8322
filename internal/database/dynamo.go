package database

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/pkg/errors"
)

// OpenDynamo builds a DynamoDB client for the given region. Credentials
// come from the environment or the instance role; nothing is configured
// in code. An optional endpoint overrides the service URL for local
// stacks (dynamodb-local, localstack).
func OpenDynamo(region, endpoint string) (*dynamodb.DynamoDB, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AWS session")
	}
	return dynamodb.New(sess), nil
}
