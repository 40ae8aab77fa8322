package repository

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"

	"github.com/artificien/orchestrator/internal/model"
)

// ModelOwnerIndex is the secondary index on the model table keyed by
// (owner_name, active_status). It backs the per-owner model listing.
const ModelOwnerIndex = "owner_name-active_status-index"

// ModelRepo provides access to the model table in DynamoDB. All reads use
// strongly consistent GetItem calls because the orchestrator's decisions
// (whether to provision) are made from what it reads back. Writes that
// represent state transitions are conditional so that concurrent callers
// cannot apply the same transition twice.
type ModelRepo struct {
	db    dynamodbiface.DynamoDBAPI
	table string
}

// NewModelRepo returns a ModelRepo bound to the given DynamoDB client and
// table name.
func NewModelRepo(db dynamodbiface.DynamoDBAPI, table string) *ModelRepo {
	return &ModelRepo{db: db, table: table}
}

// GetModel fetches a model record by its ID. It returns ErrModelNotFound
// when no record exists and ErrUnavailable when the store cannot be
// reached.
func (r *ModelRepo) GetModel(ctx context.Context, modelID string) (*model.Model, error) {
	out, err := r.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		ConsistentRead: aws.Bool(true),
		Key:            modelKey(modelID),
	})
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "get model %q: %v", modelID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrModelNotFound
	}
	var m model.Model
	if err := dynamodbattribute.UnmarshalMap(out.Item, &m); err != nil {
		return nil, errors.Wrapf(err, "unmarshal model %q", modelID)
	}
	return &m, nil
}

// PutModel writes the full model record, replacing any existing item with
// the same model ID.
func (r *ModelRepo) PutModel(ctx context.Context, m *model.Model) error {
	item, err := dynamodbattribute.MarshalMap(m)
	if err != nil {
		return errors.Wrapf(err, "marshal model %q", m.ModelID)
	}
	if _, err := r.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	}); err != nil {
		return errors.Wrapf(ErrUnavailable, "put model %q: %v", m.ModelID, err)
	}
	return nil
}

// MarkNodeRequested flips has_node from false to true. The update is
// conditional: it applies only when the record exists and has_node is
// still false, so exactly one caller wins the transition. The loser
// receives ErrConditionFailed.
func (r *ModelRepo) MarkNodeRequested(ctx context.Context, modelID string) error {
	_, err := r.db.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 modelKey(modelID),
		UpdateExpression:    aws.String("SET has_node = :t"),
		ConditionExpression: aws.String("attribute_exists(model_id) AND (attribute_not_exists(has_node) OR has_node = :f)"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":t": {BOOL: aws.Bool(true)},
			":f": {BOOL: aws.Bool(false)},
		},
	})
	return mapUpdateErr(err, "mark node requested", modelID, ErrConditionFailed)
}

// SetNodeURL records the reachable endpoint of the model's node. The
// update requires has_node to already be true, upholding the invariant
// that node_url is only ever set on records with a requested node.
func (r *ModelRepo) SetNodeURL(ctx context.Context, modelID, nodeURL string) error {
	_, err := r.db.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 modelKey(modelID),
		UpdateExpression:    aws.String("SET node_url = :u"),
		ConditionExpression: aws.String("attribute_exists(model_id) AND has_node = :t"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":u": {S: aws.String(nodeURL)},
			":t": {BOOL: aws.Bool(true)},
		},
	})
	return mapUpdateErr(err, "set node url", modelID, ErrConditionFailed)
}

// SetProgress persists the model's training completion percentage.
func (r *ModelRepo) SetProgress(ctx context.Context, modelID string, percent int) error {
	_, err := r.db.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 modelKey(modelID),
		UpdateExpression:    aws.String("SET percent_complete = :p"),
		ConditionExpression: aws.String("attribute_exists(model_id)"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":p": {N: aws.String(strconv.Itoa(percent))},
		},
	})
	return mapUpdateErr(err, "set progress", modelID, ErrModelNotFound)
}

// SetArtifact records the durable location of the trained artifact and
// marks the model inactive in one update, so a crash can never leave one
// of the two fields written without the other.
func (r *ModelRepo) SetArtifact(ctx context.Context, modelID, downloadLink string) error {
	_, err := r.db.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 modelKey(modelID),
		UpdateExpression:    aws.String("SET download_link = :l, active_status = :z"),
		ConditionExpression: aws.String("attribute_exists(model_id)"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":l": {S: aws.String(downloadLink)},
			":z": {N: aws.String("0")},
		},
	})
	return mapUpdateErr(err, "set artifact", modelID, ErrModelNotFound)
}

// ListByOwner returns every model submitted by the given owner, using the
// (owner_name, active_status) secondary index.
func (r *ModelRepo) ListByOwner(ctx context.Context, owner string) ([]model.Model, error) {
	out, err := r.db.QueryWithContext(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(ModelOwnerIndex),
		KeyConditionExpression: aws.String("owner_name = :o"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":o": {S: aws.String(owner)},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "list models for %q: %v", owner, err)
	}
	models := make([]model.Model, 0, len(out.Items))
	if err := dynamodbattribute.UnmarshalListOfMaps(out.Items, &models); err != nil {
		return nil, errors.Wrapf(err, "unmarshal models for %q", owner)
	}
	return models, nil
}

func modelKey(modelID string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"model_id": {S: aws.String(modelID)},
	}
}

// mapUpdateErr translates a DynamoDB update error into a repository
// sentinel: a failed condition becomes condErr (what failing the
// precondition means depends on the call site), anything else is a
// transient store failure.
func mapUpdateErr(err error, op, modelID string, condErr error) error {
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
		return errors.Wrapf(condErr, "%s %q", op, modelID)
	}
	return errors.Wrapf(ErrUnavailable, "%s %q: %v", op, modelID, err)
}
