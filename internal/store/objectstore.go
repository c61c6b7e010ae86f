// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig captures configuration for the S3-compatible backend.
type ObjectStoreConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
	UseSSL    bool
	PathStyle bool
}

// ObjectStore persists one JSON object per user in an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	cfg    ObjectStoreConfig
}

// ParseObjectEndpoint splits a configured endpoint into the host[/path] form minio expects
// and the TLS flag implied by its scheme. A bare host defaults to TLS.
func ParseObjectEndpoint(raw string) (string, bool, error) {
	resolved := strings.TrimSpace(raw)
	if resolved == "" {
		return "", false, fmt.Errorf("object store: endpoint is required")
	}
	useSSL := true
	if strings.Contains(resolved, "://") {
		parsed, err := url.Parse(resolved)
		if err != nil {
			return "", false, fmt.Errorf("object store: parse endpoint %q: %w", raw, err)
		}
		switch strings.ToLower(parsed.Scheme) {
		case "http":
			useSSL = false
		case "https":
			useSSL = true
		default:
			return "", false, fmt.Errorf("object store: unsupported scheme %q (only http and https are allowed)", parsed.Scheme)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("object store: endpoint %q is missing host information", raw)
		}
		resolved = parsed.Host
		if parsed.Path != "" && parsed.Path != "/" {
			resolved = strings.TrimSuffix(parsed.Host+parsed.Path, "/")
		}
	}
	return strings.TrimRight(resolved, "/"), useSSL, nil
}

// NewObjectStore connects to the bucket and creates it when missing.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("object store: bucket is required")
	}
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("object store: create client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("object store: check bucket: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("object store: create bucket: %w", err)
		}
	}
	return &ObjectStore{client: client, cfg: cfg}, nil
}

func (s *ObjectStore) objectKey(userID string) string {
	return objectKey(s.cfg.Prefix, userID)
}

func objectKey(prefix, userID string) string {
	name := hashedKey(userID) + ".json"
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func (s *ObjectStore) Get(ctx context.Context, userID string) ([]string, bool, error) {
	if err := checkUserID(userID); err != nil {
		return nil, false, err
	}
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, s.objectKey(userID), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("object store: get object: %w", err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("object store: read object: %w", err)
	}
	var rec Record
	if err = json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("object store: decode record: %w", err)
	}
	if rec.Ingredients == nil {
		rec.Ingredients = []string{}
	}
	return rec.Ingredients, true, nil
}

func (s *ObjectStore) Upsert(ctx context.Context, userID string, ingredients []string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	data, err := json.Marshal(Record{
		UserID:      userID,
		Ingredients: cloneList(ingredients),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("object store: encode record: %w", err)
	}
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, s.objectKey(userID), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("object store: put object: %w", err)
	}
	return nil
}

func (s *ObjectStore) Name() string { return "object" }

func (s *ObjectStore) Close() error { return nil }

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
