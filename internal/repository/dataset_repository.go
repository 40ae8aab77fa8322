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

// DatasetRepo provides read access to the dataset table in DynamoDB.
type DatasetRepo struct {
	db    dynamodbiface.DynamoDBAPI
	table string
}

// NewDatasetRepo returns a DatasetRepo bound to the given DynamoDB client
// and table name.
func NewDatasetRepo(db dynamodbiface.DynamoDBAPI, table string) *DatasetRepo {
	return &DatasetRepo{db: db, table: table}
}

// GetDataset fetches a dataset record by its ID. It returns
// ErrDatasetNotFound when no record exists and ErrUnavailable when the
// store cannot be reached.
func (r *DatasetRepo) GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	out, err := r.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]*dynamodb.AttributeValue{
			"dataset_id": {S: aws.String(datasetID)},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "get dataset %q: %v", datasetID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrDatasetNotFound
	}
	var d model.Dataset
	if err := dynamodbattribute.UnmarshalMap(out.Item, &d); err != nil {
		return nil, errors.Wrapf(err, "unmarshal dataset %q", datasetID)
	}
	return &d, nil
}
