package provision

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/cloudformation/cloudformationiface"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// outputsCacheTTL bounds how long ready outputs are served from Redis
// before the next poll goes back to the stack API. Deployments only
// change when an operator deletes them, so a short TTL is enough to
// self-heal after an administrative delete.
const outputsCacheTTL = 10 * time.Minute

// CloudFormationDriver provisions node deployments as CloudFormation
// stacks, one stack per model, named after the model. The stack API
// rejects duplicate names, which is what makes concurrent submits for
// the same model safe.
//
// When a Redis client is supplied, published outputs are cached so that
// repeated readiness polls do not hit DescribeStacks every time; a nil
// client disables caching.
type CloudFormationDriver struct {
	client cloudformationiface.CloudFormationAPI
	cache  *redis.Client
	syslog *logrus.Entry
}

// NewCloudFormationDriver returns a driver over the given CloudFormation
// client. cache may be nil.
func NewCloudFormationDriver(client cloudformationiface.CloudFormationAPI, cache *redis.Client) *CloudFormationDriver {
	return &CloudFormationDriver{
		client: client,
		cache:  cache,
		syslog: logrus.WithField("component", "provision"),
	}
}

// Submit synthesizes the node template and creates the stack. It returns
// ErrAlreadyExists when a stack with this name already exists.
func (d *CloudFormationDriver) Submit(ctx context.Context, name string, spec NodeSpec) error {
	body, err := synthesize(name, spec)
	if err != nil {
		return errors.Wrapf(err, "synthesize deployment %q", name)
	}
	_, err = d.client.CreateStackWithContext(ctx, &cloudformation.CreateStackInput{
		StackName:    aws.String(name),
		TemplateBody: aws.String(body),
		Capabilities: aws.StringSlice([]string{
			cloudformation.CapabilityCapabilityIam,
			cloudformation.CapabilityCapabilityNamedIam,
			cloudformation.CapabilityCapabilityAutoExpand,
		}),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == cloudformation.ErrCodeAlreadyExistsException {
			return errors.Wrapf(ErrAlreadyExists, "submit %q", name)
		}
		return errors.Wrapf(err, "create stack %q", name)
	}
	d.syslog.WithField("deployment", name).Info("submitted node stack")
	return nil
}

// Outputs polls the stack for its published outputs. A stack that is
// still creating, or has no outputs yet, reports ErrPending; a name the
// stack API has never heard of reports ErrNotFound.
func (d *CloudFormationDriver) Outputs(ctx context.Context, name string) (map[string]string, error) {
	if cached := d.cachedOutputs(ctx, name); cached != nil {
		return cached, nil
	}

	out, err := d.client.DescribeStacksWithContext(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == "ValidationError" &&
			strings.Contains(aerr.Message(), "does not exist") {
			return nil, errors.Wrapf(ErrNotFound, "outputs %q", name)
		}
		return nil, errors.Wrapf(err, "describe stack %q", name)
	}
	if len(out.Stacks) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "outputs %q", name)
	}
	stack := out.Stacks[0]

	switch aws.StringValue(stack.StackStatus) {
	case cloudformation.StackStatusCreateInProgress,
		cloudformation.StackStatusReviewInProgress:
		return nil, errors.Wrapf(ErrPending, "outputs %q", name)
	case cloudformation.StackStatusCreateComplete,
		cloudformation.StackStatusUpdateComplete:
		// fall through to output extraction
	default:
		return nil, errors.Wrapf(ErrFailed, "deployment %q in state %s", name, aws.StringValue(stack.StackStatus))
	}

	if len(stack.Outputs) == 0 {
		// Created but outputs not configured; treat as still pending so
		// the caller keeps polling rather than reading a half-baked map.
		return nil, errors.Wrapf(ErrPending, "outputs %q", name)
	}
	outputs := make(map[string]string, len(stack.Outputs))
	for _, o := range stack.Outputs {
		outputs[aws.StringValue(o.OutputKey)] = aws.StringValue(o.OutputValue)
	}
	d.storeOutputs(ctx, name, outputs)
	return outputs, nil
}

func (d *CloudFormationDriver) cachedOutputs(ctx context.Context, name string) map[string]string {
	if d.cache == nil {
		return nil
	}
	raw, err := d.cache.Get(ctx, outputsCacheKey(name)).Bytes()
	if err != nil {
		return nil
	}
	var outputs map[string]string
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return nil
	}
	return outputs
}

func (d *CloudFormationDriver) storeOutputs(ctx context.Context, name string, outputs map[string]string) {
	if d.cache == nil {
		return
	}
	raw, err := json.Marshal(outputs)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, outputsCacheKey(name), raw, outputsCacheTTL).Err(); err != nil {
		d.syslog.WithField("deployment", name).WithError(err).Warn("failed to cache outputs")
	}
}

func outputsCacheKey(name string) string { return "provision:outputs:" + name }
