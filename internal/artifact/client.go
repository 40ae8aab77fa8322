// Package artifact moves trained model artifacts off compute nodes and
// into durable object storage once training completes.
package artifact

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrRetrievalFailed wraps every failure in the retrieve-and-persist
// flow. Callers report it to operators; it never rolls back state that
// was already written.
var ErrRetrievalFailed = errors.New("artifact retrieval failed")

// retrievePath is the fixed retrieval endpoint every node exposes.
const retrievePath = "/model-centric/retrieve-model"

// maxArtifactBytes caps how much of a node's response is read into
// memory. Serialized models in this system are tens of megabytes at
// most; a larger body means something is wrong with the node.
const maxArtifactBytes = 512 << 20

// RecordStore is the slice of the record store the client writes to once
// an artifact is durably stored.
type RecordStore interface {
	SetArtifact(ctx context.Context, modelID, downloadLink string) error
}

// Client fetches a serialized artifact from a node's retrieval endpoint,
// uploads it to the configured bucket and flips the completion fields on
// the model record. The storage key derives deterministically from
// (owner, model, version), so retrieval is safe to repeat: a duplicate
// run rewrites the same object.
type Client struct {
	http     *http.Client
	uploader s3manageriface.UploaderAPI
	store    RecordStore
	bucket   string
	region   string
	syslog   *logrus.Entry
}

// New constructs a Client. httpClient may be nil, in which case a client
// with a 60 second timeout is used.
func New(httpClient *http.Client, uploader s3manageriface.UploaderAPI, store RecordStore, bucket, region string) *Client {
	if uploader == nil || store == nil {
		panic("nil dependency passed to artifact.New")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		http:     httpClient,
		uploader: uploader,
		store:    store,
		bucket:   bucket,
		region:   region,
		syslog:   logrus.WithField("component", "artifact"),
	}
}

// StorageKey is the deterministic object key for one trained artifact.
func StorageKey(owner, modelID, version string) string {
	return owner + modelID + version + "/model.pkl"
}

// Retrieve fetches the latest checkpoint of the model from its node,
// persists it under the deterministic key and records the download
// location on the model. It returns the location written to the record.
func (c *Client) Retrieve(ctx context.Context, owner, modelID, version, nodeURL string) (string, error) {
	body, err := c.fetch(ctx, modelID, version, nodeURL)
	if err != nil {
		return "", err
	}

	key := StorageKey(owner, modelID, version)
	if _, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}); err != nil {
		return "", errors.Wrapf(ErrRetrievalFailed, "upload %q: %v", key, err)
	}

	link := c.downloadLink(key)
	if err := c.store.SetArtifact(ctx, modelID, link); err != nil {
		return "", errors.Wrapf(ErrRetrievalFailed, "record artifact for %q: %v", modelID, err)
	}
	c.syslog.WithFields(logrus.Fields{"model_id": modelID, "key": key, "bytes": len(body)}).Info("artifact stored")
	return link, nil
}

// fetch downloads the serialized artifact from the node's retrieval
// endpoint: GET {node}/model-centric/retrieve-model?name&version&checkpoint=latest.
func (c *Client) fetch(ctx context.Context, modelID, version, nodeURL string) ([]byte, error) {
	base := nodeURL
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	q := url.Values{}
	q.Set("name", modelID)
	q.Set("version", version)
	q.Set("checkpoint", "latest")
	endpoint := strings.TrimRight(base, "/") + retrievePath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrRetrievalFailed, "build request for %q: %v", modelID, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrRetrievalFailed, "fetch %q from node: %v", modelID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrRetrievalFailed, "node returned %d for %q", resp.StatusCode, modelID)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes))
	if err != nil {
		return nil, errors.Wrapf(ErrRetrievalFailed, "read artifact for %q: %v", modelID, err)
	}
	if len(body) == 0 {
		return nil, errors.Wrapf(ErrRetrievalFailed, "node returned empty artifact for %q", modelID)
	}
	return body, nil
}

// downloadLink builds the console location of a stored artifact.
func (c *Client) downloadLink(key string) string {
	return "https://s3.console.aws.amazon.com/s3/object/" + c.bucket +
		"?region=" + c.region + "&prefix=" + url.QueryEscape(key)
}
