package casestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fpang/case-insights/internal/retry"
)

// DefaultSnapshotKey is the S3 object key for the daily account snapshot.
const DefaultSnapshotKey = "active_accounts.json"

// Account is one entry in the daily snapshot.
type Account struct {
	ID   string `json:"accountId"`
	Name string `json:"accountName"`
}

// AccountSnapshot is the immutable daily record of active accounts. It is
// fully replaced on each enumeration run, never merged.
type AccountSnapshot struct {
	Accounts  []Account `json:"accounts"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// SnapshotStore reads and writes the account snapshot in its own bucket,
// separate from the case namespaces.
type SnapshotStore struct {
	client *s3.Client
	bucket string
	key    string
	policy retry.Policy
}

// NewSnapshotStore creates a SnapshotStore for the given bucket, using
// DefaultSnapshotKey as the object key.
func NewSnapshotStore(client *s3.Client, bucket string) *SnapshotStore {
	return &SnapshotStore{
		client: client,
		bucket: bucket,
		key:    DefaultSnapshotKey,
		policy: retry.Default,
	}
}

// Write atomically replaces the snapshot object.
func (s *SnapshotStore) Write(ctx context.Context, snap *AccountSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	err = s.policy.Do(ctx, "s3:PutObject", func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("write snapshot %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// Read loads the snapshot from the given bucket and key. The key is passed
// explicitly because the reader Lambda receives it from the S3 event record.
func (s *SnapshotStore) Read(ctx context.Context, bucket, key string) (*AccountSnapshot, error) {
	var body []byte
	err := s.policy.Do(ctx, "s3:GetObject", func(ctx context.Context) error {
		result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer result.Body.Close()
		body, err = io.ReadAll(result.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s/%s: %w", bucket, key, err)
	}

	var snap AccountSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s/%s: %w", bucket, key, err)
	}
	return &snap, nil
}
