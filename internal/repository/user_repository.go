package repository

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"

	"github.com/artificien/orchestrator/internal/model"
)

// UserRepo provides read access to the user table in DynamoDB. The
// orchestrator only ever reads users, for entitlement validation; account
// management writes happen through a separate surface.
type UserRepo struct {
	db    dynamodbiface.DynamoDBAPI
	table string
}

// NewUserRepo returns a UserRepo bound to the given DynamoDB client and
// table name.
func NewUserRepo(db dynamodbiface.DynamoDBAPI, table string) *UserRepo {
	return &UserRepo{db: db, table: table}
}

// GetUser fetches a user record by its ID. It returns ErrUserNotFound
// when no record exists and ErrUnavailable when the store cannot be
// reached.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (*model.User, error) {
	out, err := r.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]*dynamodb.AttributeValue{
			"user_id": {S: aws.String(userID)},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "get user %q: %v", userID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrUserNotFound
	}
	var u model.User
	if err := dynamodbattribute.UnmarshalMap(out.Item, &u); err != nil {
		return nil, errors.Wrapf(err, "unmarshal user %q", userID)
	}
	return &u, nil
}
