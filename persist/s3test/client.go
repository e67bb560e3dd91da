// Package s3test provides an S3 client backed by an in-process gofakes3
// server, for tests.
package s3test

import (
	"fmt"
	"net/http/httptest"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

var buckets atomic.Int64

// Client starts a fake S3 server with a fresh bucket. It returns a client
// for the server, the bucket name, and a func that stops the server.
func Client() (*s3.S3, string, func()) {
	ts := httptest.NewServer(gofakes3.New(s3mem.New()).Server())
	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials("TEST-ACCESSKEYID", "TEST-SECRETACCESSKEY", ""),
		Endpoint:         aws.String(ts.URL),
		Region:           aws.String("ca-west-1"),
		DisableSSL:       aws.Bool(true),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		ts.Close()
		panic(err)
	}
	client := s3.New(sess)
	bucketName := fmt.Sprintf("cowtrie-test-%d", buckets.Add(1))
	_, err = client.CreateBucket(&s3.CreateBucketInput{Bucket: &bucketName})
	if err != nil {
		ts.Close()
		panic(err)
	}
	return client, bucketName, ts.Close
}
