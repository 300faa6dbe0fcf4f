package s3client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// TestClient returns a Client for bucket on an in-memory gofakes3 server,
// built through New the same way the runner builds one from config. The
// server stops at test cleanup.
func TestClient(t testing.TB, bucket string) *Client {
	t.Helper()

	srv := httptest.NewServer(gofakes3.New(s3mem.New()).Server())
	t.Cleanup(srv.Close)

	ctx := context.Background()
	c, err := New(ctx, Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "artifacts-test",
		SecretAccessKey: "artifacts-test-secret",
		BucketName:      bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("s3client: build test client: %v", err)
	}
	if _, err := c.s3Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("s3client: create bucket %q: %v", bucket, err)
	}
	return c
}
