package artifact

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	s3manageriface.UploaderAPI

	uploads []s3manager.UploadInput
	bodies  [][]byte
	err     error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, *in)
	f.bodies = append(f.bodies, body)
	return &s3manager.UploadOutput{}, nil
}

type fakeRecordStore struct {
	links map[string]string
	err   error
}

func (f *fakeRecordStore) SetArtifact(_ context.Context, modelID, link string) error {
	if f.err != nil {
		return f.err
	}
	if f.links == nil {
		f.links = make(map[string]string)
	}
	f.links[modelID] = link
	return nil
}

// nodeServer fakes a node's retrieval endpoint and records the query it
// was asked for.
func nodeServer(t *testing.T, status int, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, retrievePath, r.URL.Path)
		got = r.URL.Query()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestRetrieveStoresArtifactAndLink(t *testing.T) {
	srv, query := nodeServer(t, http.StatusOK, "serialized-weights")
	up := &fakeUploader{}
	store := &fakeRecordStore{}
	c := New(srv.Client(), up, store, "artifact-bucket", "us-east-1")

	link, err := c.Retrieve(context.Background(), "alice", "mnist-v1", "1.0", srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "mnist-v1", query.Get("name"))
	assert.Equal(t, "1.0", query.Get("version"))
	assert.Equal(t, "latest", query.Get("checkpoint"))

	require.Len(t, up.uploads, 1)
	assert.Equal(t, "artifact-bucket", aws.StringValue(up.uploads[0].Bucket))
	assert.Equal(t, "alicemnist-v11.0/model.pkl", aws.StringValue(up.uploads[0].Key))
	assert.Equal(t, []byte("serialized-weights"), up.bodies[0])

	wantLink := "https://s3.console.aws.amazon.com/s3/object/artifact-bucket" +
		"?region=us-east-1&prefix=" + url.QueryEscape("alicemnist-v11.0/model.pkl")
	assert.Equal(t, wantLink, link)
	assert.Equal(t, wantLink, store.links["mnist-v1"])
}

func TestRetrieveDefaultsToHTTPScheme(t *testing.T) {
	srv, _ := nodeServer(t, http.StatusOK, "weights")
	up := &fakeUploader{}
	c := New(srv.Client(), up, &fakeRecordStore{}, "b", "us-east-1")

	// Node URLs from the record store are bare host:port.
	bare := srv.URL[len("http://"):]
	_, err := c.Retrieve(context.Background(), "alice", "mnist-v1", "1.0", bare)
	require.NoError(t, err)
	require.Len(t, up.uploads, 1)
}

func TestRetrieveIsRepeatable(t *testing.T) {
	srv, _ := nodeServer(t, http.StatusOK, "weights")
	up := &fakeUploader{}
	store := &fakeRecordStore{}
	c := New(srv.Client(), up, store, "b", "us-east-1")

	first, err := c.Retrieve(context.Background(), "alice", "mnist-v1", "1.0", srv.URL)
	require.NoError(t, err)
	second, err := c.Retrieve(context.Background(), "alice", "mnist-v1", "1.0", srv.URL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, up.uploads, 2)
	assert.Equal(t, up.uploads[0].Key, up.uploads[1].Key, "repeat runs rewrite the same object")
}

func TestRetrieveNodeErrorStatus(t *testing.T) {
	srv, _ := nodeServer(t, http.StatusInternalServerError, "boom")
	up := &fakeUploader{}
	store := &fakeRecordStore{}
	c := New(srv.Client(), up, store, "b", "us-east-1")

	_, err := c.Retrieve(context.Background(), "alice", "mnist-v1", "1.0", srv.URL)
	require.ErrorIs(t, err, ErrRetrievalFailed)
	assert.Empty(t, up.uploads, "nothing may be uploaded on a failed fetch")
	assert.Empty(t, store.links)
}

func TestRetrieveEmptyBody(t *testing.T) {
	srv, _ := nodeServer(t, http.StatusOK, "")
	c := New(srv.Client(), &fakeUploader{}, &fakeRecordStore{}, "b", "us-east-1")

	_, err := c.Retrieve(context.Background(), "alice", "mnist-v1", "1.0", srv.URL)
	require.ErrorIs(t, err, ErrRetrievalFailed)
}

func TestRetrieveUploadFailure(t *testing.T) {
	srv, _ := nodeServer(t, http.StatusOK, "weights")
	up := &fakeUploader{err: errors.New("access denied")}
	store := &fakeRecordStore{}
	c := New(srv.Client(), up, store, "b", "us-east-1")

	_, err := c.Retrieve(context.Background(), "alice", "mnist-v1", "1.0", srv.URL)
	require.ErrorIs(t, err, ErrRetrievalFailed)
	assert.Empty(t, store.links, "the record must not claim an artifact that was never stored")
}

func TestRetrieveRecordWriteFailure(t *testing.T) {
	srv, _ := nodeServer(t, http.StatusOK, "weights")
	store := &fakeRecordStore{err: errors.New("table unreachable")}
	c := New(srv.Client(), &fakeUploader{}, store, "b", "us-east-1")

	_, err := c.Retrieve(context.Background(), "alice", "mnist-v1", "1.0", srv.URL)
	require.ErrorIs(t, err, ErrRetrievalFailed)
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "alicemnist-v11.0/model.pkl", StorageKey("alice", "mnist-v1", "1.0"))
}
