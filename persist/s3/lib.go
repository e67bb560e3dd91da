// Package s3 implements cowtrie.Persist with one S3 object per trie node.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/hashicorp/golang-lru/simplelru"
)

// storedNamesCacheSize is how many recently loaded or stored names are
// remembered to skip redundant puts.
const storedNamesCacheSize = 1000

type S3Interface interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// Persist implements the cowtrie.Persist interface for storing and loading
// nodes from S3 objects.
type Persist struct {
	s3         S3Interface
	BucketName string
	Prefix     string
	// lru is not safe for concurrent use; stores run in parallel.
	mu  sync.Mutex
	lru *simplelru.LRU
}

// Load loads the bytes persisted in the named object.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	input := s3.GetObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
	}
	output, err := p.s3.GetObjectWithContext(ctx, &input)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	defer output.Body.Close()
	b, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	p.remember(name)
	return b, nil
}

// Store persists the given bytes in an object of the given name, if it
// isn't already known to exist.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	p.mu.Lock()
	_, present := p.lru.Get(name)
	p.mu.Unlock()
	if present {
		return nil
	}
	input := s3.PutObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
		Body:   bytes.NewReader(b),
	}
	_, err := p.s3.PutObjectWithContext(ctx, &input)
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	p.remember(name)
	return nil
}

func (p *Persist) remember(name string) {
	p.mu.Lock()
	p.lru.Add(name, nil)
	p.mu.Unlock()
}

// NewPersist returns a Persist that loads and stores nodes as
// objects with the given S3 client, bucket name and key prefix.
func NewPersist(client S3Interface, bucketName, prefix string) *Persist {
	lru, err := simplelru.NewLRU(storedNamesCacheSize, nil)
	if err != nil {
		panic(err)
	}
	return &Persist{s3: client, BucketName: bucketName, Prefix: prefix, lru: lru}
}
