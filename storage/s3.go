package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/ruteri/split-session-service/interfaces"
)

// S3Store implements a session store using Amazon S3 or compatible services.
// Each snapshot is a private JSON object under <prefix>/sessions/.
//
// Existence checks and writes are separate requests, so S3Store relies on
// the coordinator's per-session lock and is not safe for several writers.
type S3Store struct {
	client      s3iface.S3API
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Store creates a new S3 session store.
// If accessKey and secretKey are empty, the default AWS credential chain is used.
func NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	// Format the URI for tracking
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if accessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", accessKey, bucketName, prefix, region)
	}
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}

	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3StoreWithClient(s3.New(sess), bucketName, prefix, uri, log), nil
}

// NewS3StoreWithClient creates an S3 session store on an existing client.
func NewS3StoreWithClient(client s3iface.S3API, bucketName, prefix, locationURI string, log *slog.Logger) *S3Store {
	return &S3Store{
		client:      client,
		bucketName:  bucketName,
		prefix:      strings.Trim(prefix, "/"),
		log:         log,
		locationURI: locationURI,
	}
}

// Create uploads a new snapshot. Returns ErrSessionExists if the object exists.
func (b *S3Store) Create(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	key, err := b.getObjectKey(snapshot.ID)
	if err != nil {
		return err
	}

	exists, err := b.exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return interfaces.ErrSessionExists
	}
	return b.put(ctx, key, data)
}

// Fetch retrieves a snapshot object. Returns ErrSessionNotFound if it doesn't exist.
func (b *S3Store) Fetch(ctx context.Context, id interfaces.SessionID) (*interfaces.SessionSnapshot, error) {
	start := time.Now()
	key, err := b.getObjectKey(id)
	if err != nil {
		return nil, interfaces.ErrSessionNotFound
	}

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			b.log.Debug("Session not found in S3",
				slog.String("bucket", b.bucketName),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrSessionNotFound
		}

		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Fetched session from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return decodeSnapshot(id, data)
}

// Update overwrites an existing snapshot object.
func (b *S3Store) Update(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	key, err := b.getObjectKey(snapshot.ID)
	if err != nil {
		return err
	}

	exists, err := b.exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return interfaces.ErrSessionNotFound
	}
	return b.put(ctx, key, data)
}

// Delete removes a snapshot object.
func (b *S3Store) Delete(ctx context.Context, id interfaces.SessionID) error {
	key, err := b.getObjectKey(id)
	if err != nil {
		return interfaces.ErrSessionNotFound
	}

	exists, err := b.exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return interfaces.ErrSessionNotFound
	}

	_, err = b.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

// Available checks if the S3 store is accessible by attempting to head the bucket.
func (b *S3Store) Available(ctx context.Context) bool {
	start := time.Now()

	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 store unavailable",
			slog.String("bucket", b.bucketName),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}

	return true
}

// Name returns a unique identifier for this store.
func (b *S3Store) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this store.
func (b *S3Store) LocationURI() string {
	return b.locationURI
}

func (b *S3Store) put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		ACL:         aws.String(s3.ObjectCannedACLPrivate),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored session in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key))
	return nil
}

func (b *S3Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
}

// getObjectKey generates the S3 object key of a session snapshot.
func (b *S3Store) getObjectKey(id interfaces.SessionID) (string, error) {
	if err := validKey(id); err != nil {
		return "", err
	}
	return path.Join(b.prefix, "sessions", string(id)+".json"), nil
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
