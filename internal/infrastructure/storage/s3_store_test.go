package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		data, _ := io.ReadAll(params.Body)
		f.body = string(data)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestS3ProofStore_Put(t *testing.T) {
	putter := &fakePutter{}
	store := storage.NewProofStore(putter, "atelier-proofs", "proofs", discardLogger())

	err := store.Put(context.Background(), "order-1/receipt.pdf", strings.NewReader("%PDF-1.7"), 8, "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "atelier-proofs", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "proofs/order-1/receipt.pdf", aws.ToString(putter.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(putter.input.ContentType))
	assert.Equal(t, int64(8), aws.ToInt64(putter.input.ContentLength))
	assert.Equal(t, "%PDF-1.7", putter.body)
}

func TestS3ProofStore_PutWithoutPrefix(t *testing.T) {
	putter := &fakePutter{}
	store := storage.NewProofStore(putter, "bucket", "", discardLogger())

	require.NoError(t, store.Put(context.Background(), "order-1/a.png", strings.NewReader("png"), 0, "image/png"))
	assert.Equal(t, "order-1/a.png", aws.ToString(putter.input.Key))
	assert.Nil(t, putter.input.ContentLength)
}

func TestS3ProofStore_PutError(t *testing.T) {
	putter := &fakePutter{err: errors.New("AccessDenied")}
	store := storage.NewProofStore(putter, "bucket", "proofs", discardLogger())

	err := store.Put(context.Background(), "order-1/a.png", strings.NewReader("png"), 3, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
	assert.Contains(t, err.Error(), "proofs/order-1/a.png")
}
