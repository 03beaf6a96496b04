package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/logtab/logtab/pkg/errors"
)

// S3Config configures the S3 checkpoint backend.
type S3Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the default endpoint for S3-compatible stores.
	Endpoint string

	// Static credentials; the default chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// UsePathStyle is needed for MinIO and LocalStack.
	UsePathStyle bool

	Timeout time.Duration
}

// DefaultS3Config returns defaults for a bucket.
func DefaultS3Config(bucket string) S3Config {
	return S3Config{
		Bucket:  bucket,
		Prefix:  "logtab/jobs/",
		Timeout: 30 * time.Second,
	}
}

// S3Backend stores job state as JSON objects in S3.
type S3Backend struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Backend builds the AWS client from config.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to load AWS config")
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Backend{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
	}, nil
}

func (b *S3Backend) key(id string) string {
	return b.cfg.Prefix + id + ".json"
}

// Save uploads the job as a JSON object.
func (b *S3Backend) Save(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.CodeCheckpoint, "failed to marshal job")
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(b.key(job.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeCheckpoint, "failed to save job to S3").
			WithContext("id", job.ID)
	}
	return nil
}

// Load retrieves a job by id.
func (b *S3Backend) Load(ctx context.Context, id string) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to load job from S3").
			WithContext("id", id)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to read job body")
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to parse job").
			WithContext("id", id)
	}
	return &job, nil
}

// Delete removes a job object.
func (b *S3Backend) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id)),
	})
	return err
}

// FindByInput scans stored jobs for one matching the input path.
func (b *S3Backend) FindByInput(ctx context.Context, inputPath string) (*Job, error) {
	var found *Job
	var token *string

	for {
		listCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
		out, err := b.client.ListObjectsV2(listCtx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.cfg.Bucket),
			Prefix:            aws.String(b.cfg.Prefix),
			ContinuationToken: token,
		})
		cancel()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeCheckpoint, "failed to list jobs")
		}

		for _, obj := range out.Contents {
			id := strings.TrimPrefix(aws.ToString(obj.Key), b.cfg.Prefix)
			id = strings.TrimSuffix(id, ".json")
			job, err := b.Load(ctx, id)
			if err != nil {
				continue
			}
			if job.InputPath != inputPath {
				continue
			}
			if found == nil || job.UpdatedAt.After(found.UpdatedAt) {
				found = job
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return found, nil
}

// Name returns "s3".
func (b *S3Backend) Name() string {
	return "s3"
}
