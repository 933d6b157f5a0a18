package casestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/retry"
)

// maxDeleteBatch is the S3 DeleteObjects limit per call.
const maxDeleteBatch = 1000

// S3Store implements Store over two S3 buckets: one for the raw namespace,
// one for the processed namespace.
type S3Store struct {
	client          *s3.Client
	rawBucket       string
	processedBucket string
	policy          retry.Policy
}

// Compile-time interface check.
var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3Store over the given raw and processed buckets.
// The client should be initialized from the shared AWS config.
func NewS3Store(client *s3.Client, rawBucket, processedBucket string) *S3Store {
	return &S3Store{
		client:          client,
		rawBucket:       rawBucket,
		processedBucket: processedBucket,
		policy:          retry.Default,
	}
}

// --- Internal helpers ---

// getJSON reads and unmarshals an S3 object into out. Returns false with a
// nil error when the object does not exist.
func (s *S3Store) getJSON(ctx context.Context, bucket, key string, out interface{}) (bool, error) {
	var body []byte
	err := s.policy.Do(ctx, "s3:GetObject", func(ctx context.Context) error {
		result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var nsk *types.NoSuchKey
			if errors.As(err, &nsk) {
				return retry.Abort(err)
			}
			return err
		}
		defer result.Body.Close()
		body, err = io.ReadAll(result.Body)
		return err
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return false, nil
		}
		return false, fmt.Errorf("S3 GetObject %s/%s: %w", bucket, key, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("unmarshal %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// putJSON marshals v and writes it to an S3 object.
func (s *S3Store) putJSON(ctx context.Context, bucket, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}
	err = s.policy.Do(ctx, "s3:PutObject", func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s/%s: %w", bucket, key, err)
	}
	return nil
}

// listCommonPrefixes returns the folder names directly under prefix.
func (s *S3Store) listCommonPrefixes(ctx context.Context, bucket, prefix string) ([]string, error) {
	var folders []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("S3 ListObjectsV2 %s/%s: %w", bucket, prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			folders = append(folders, aws.ToString(cp.Prefix))
		}
	}
	return folders, nil
}

// listObjectKeys returns every object key under prefix.
func (s *S3Store) listObjectKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("S3 ListObjectsV2 %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// deleteKeys removes the given object keys from a bucket in batches.
func (s *S3Store) deleteKeys(ctx context.Context, bucket string, keys []string) (int, error) {
	deleted := 0
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		batch := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			batch = append(batch, types.ObjectIdentifier{Key: aws.String(k)})
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: batch},
		})
		if err != nil {
			return deleted, fmt.Errorf("S3 DeleteObjects %s: %w", bucket, err)
		}
		for _, e := range result.Errors {
			log.Error().
				Str("bucket", bucket).
				Str("key", aws.ToString(e.Key)).
				Str("code", aws.ToString(e.Code)).
				Str("message", aws.ToString(e.Message)).
				Msg("Failed to delete object")
		}
		if len(result.Errors) > 0 {
			return deleted, fmt.Errorf("S3 DeleteObjects %s: %d objects failed", bucket, len(result.Errors))
		}
		deleted += end - start
	}
	return deleted, nil
}

// caseIDsFromFolders parses case folder prefixes into sorted case IDs,
// skipping malformed entries.
func caseIDsFromFolders(folders []string) []string {
	ids := make([]string, 0, len(folders))
	for _, folder := range folders {
		key, err := ParseCaseFolder(folder)
		if err != nil {
			log.Warn().Str("folder", folder).Msg("Skipping malformed case folder")
			continue
		}
		ids = append(ids, key.CaseID)
	}
	sort.Strings(ids)
	return ids
}

// --- Raw namespace ---

func (s *S3Store) GetRaw(ctx context.Context, key Key) (*RawCase, error) {
	var rc RawCase
	found, err := s.getJSON(ctx, s.rawBucket, DataKey(key), &rc)
	if err != nil || !found {
		return nil, err
	}
	return &rc, nil
}

func (s *S3Store) PutRaw(ctx context.Context, key Key, rc *RawCase) error {
	return s.putJSON(ctx, s.rawBucket, DataKey(key), rc)
}

func (s *S3Store) GetAnnotation(ctx context.Context, key Key) (*Annotation, error) {
	var a Annotation
	found, err := s.getJSON(ctx, s.rawBucket, AnnotationKey(key), &a)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

func (s *S3Store) PutAnnotation(ctx context.Context, key Key, a *Annotation) error {
	return s.putJSON(ctx, s.rawBucket, AnnotationKey(key), a)
}

func (s *S3Store) ListRawAccounts(ctx context.Context) ([]string, error) {
	folders, err := s.listCommonPrefixes(ctx, s.rawBucket, accountPrefix)
	if err != nil {
		return nil, err
	}
	accounts := make([]string, 0, len(folders))
	for _, folder := range folders {
		name := strings.Trim(strings.TrimPrefix(folder, accountPrefix), "/")
		if name != "" {
			accounts = append(accounts, name)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

func (s *S3Store) ListRawCaseIDs(ctx context.Context, accountID string) ([]string, error) {
	folders, err := s.listCommonPrefixes(ctx, s.rawBucket, AccountPrefix(accountID))
	if err != nil {
		return nil, err
	}
	return caseIDsFromFolders(folders), nil
}

// --- Processed namespace ---

func (s *S3Store) GetProcessed(ctx context.Context, key Key) (*ProcessedCase, error) {
	var pc ProcessedCase
	found, err := s.getJSON(ctx, s.processedBucket, DataKey(key), &pc)
	if err != nil || !found {
		return nil, err
	}
	return &pc, nil
}

func (s *S3Store) PutProcessed(ctx context.Context, key Key, pc *ProcessedCase) error {
	return s.putJSON(ctx, s.processedBucket, DataKey(key), pc)
}

func (s *S3Store) ListProcessedCaseIDs(ctx context.Context, accountID string) (map[string]bool, error) {
	keys, err := s.listObjectKeys(ctx, s.processedBucket, AccountPrefix(accountID))
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool)
	for _, k := range keys {
		if !strings.HasSuffix(k, "/"+dataObject) {
			continue
		}
		key, err := ParseCaseFolder(strings.TrimSuffix(k, dataObject))
		if err != nil {
			continue
		}
		ids[key.CaseID] = true
	}
	return ids, nil
}

// --- Cleanup ---

func (s *S3Store) DeleteCase(ctx context.Context, key Key) (int, error) {
	folder := CaseFolder(key)

	rawKeys, err := s.listObjectKeys(ctx, s.rawBucket, folder)
	if err != nil {
		return 0, err
	}
	processedKeys, err := s.listObjectKeys(ctx, s.processedBucket, folder)
	if err != nil {
		return 0, err
	}

	deleted := 0
	if len(rawKeys) > 0 {
		n, err := s.deleteKeys(ctx, s.rawBucket, rawKeys)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	if len(processedKeys) > 0 {
		n, err := s.deleteKeys(ctx, s.processedBucket, processedKeys)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}
