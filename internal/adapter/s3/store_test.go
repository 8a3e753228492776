package s3_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3store "github.com/neomorfeo/reportcycle/internal/adapter/s3"
	"github.com/neomorfeo/reportcycle/internal/domain"
)

// fakeS3 is an in-memory bucket honoring MaxKeys and If-None-Match.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	lastMax int32
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.lastMax = aws.ToInt32(in.MaxKeys)

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if int32(len(keys)) > f.lastMax {
		keys = keys[:f.lastMax]
	}

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	key := aws.ToString(in.Key)
	if aws.ToString(in.IfNoneMatch) == "*" {
		if _, ok := f.objects[key]; ok {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = body
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func pdf(name string) domain.Object {
	return domain.Object{Name: name, Content: []byte("%PDF-1.7 " + name), ContentType: "application/pdf"}
}

func TestUpload_Upsert(t *testing.T) {
	api := newFakeS3()
	store := s3store.New(api, "reports", 0)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, pdf("acme-Jane_Doe-März-2024.pdf"), true))

	replacement := pdf("acme-Jane_Doe-März-2024.pdf")
	replacement.Content = []byte("%PDF-1.7 v2")
	require.NoError(t, store.Upload(ctx, replacement, true))

	assert.Equal(t, "%PDF-1.7 v2", string(api.objects["acme-Jane_Doe-März-2024.pdf"]))
	assert.Equal(t, "application/pdf", api.types["acme-Jane_Doe-März-2024.pdf"])
}

func TestUpload_NoUpsertConflict(t *testing.T) {
	api := newFakeS3()
	store := s3store.New(api, "reports", 0)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, pdf("acme-Jane_Doe-Mai-2024-rev1.pdf"), false))

	err := store.Upload(ctx, pdf("acme-Jane_Doe-Mai-2024-rev1.pdf"), false)
	assert.ErrorIs(t, err, domain.ErrObjectExists)
}

func TestUpload_OtherErrorsPassThrough(t *testing.T) {
	api := newFakeS3()
	api.err = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	store := s3store.New(api, "reports", 0)

	err := store.Upload(context.Background(), pdf("x.pdf"), false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrObjectExists))
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestList_FiltersByPrefixWithinLimit(t *testing.T) {
	api := newFakeS3()
	store := s3store.New(api, "reports", 2)
	ctx := context.Background()

	for _, name := range []string{
		"acme-Jane_Doe-Mai-2024-rev1.pdf",
		"acme-Jane_Doe-Mai-2024-rev2.pdf",
		"acme-Jane_Doe-Mai-2024-rev3.pdf",
		"acme-Max-Mai-2024-rev1.pdf",
	} {
		require.NoError(t, store.Upload(ctx, pdf(name), true))
	}

	names, err := store.List(ctx, "acme-Jane_Doe-Mai-2024-rev")
	require.NoError(t, err)
	assert.Equal(t, []string{"acme-Jane_Doe-Mai-2024-rev1.pdf", "acme-Jane_Doe-Mai-2024-rev2.pdf"}, names)
	assert.Equal(t, int32(2), api.lastMax)
}

func TestList_DefaultLimit(t *testing.T) {
	api := newFakeS3()
	store := s3store.New(api, "reports", 5000)

	names, err := store.List(context.Background(), "none-")
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, int32(s3store.DefaultListLimit), api.lastMax)
}

func TestList_Error(t *testing.T) {
	api := newFakeS3()
	api.err = errors.New("network down")
	store := s3store.New(api, "reports", 0)

	_, err := store.List(context.Background(), "acme-")
	assert.ErrorContains(t, err, "network down")
}

func TestNewFromConfig_RequiresBucket(t *testing.T) {
	_, err := s3store.NewFromConfig(context.Background(), s3store.Config{})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "storage.bucket", cfgErr.Field)
}
