package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// ArchiveConfig configures the S3 archive.
type ArchiveConfig struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint selects an S3-compatible service (MinIO, R2). Empty uses AWS.
	Endpoint  string
	AccessKey string
	SecretKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveSink stores every document in an S3 bucket under prefix/YYYY/MM/DD/run_id.json.
type ArchiveSink struct {
	client objectPutter
	bucket string
	prefix string
}

// NewArchiveSink creates an S3 client from cfg.
func NewArchiveSink(ctx context.Context, cfg ArchiveConfig) (*ArchiveSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newArchiveSink(client, cfg.Bucket, cfg.Prefix), nil
}

func newArchiveSink(client objectPutter, bucket, prefix string) *ArchiveSink {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ArchiveSink{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for doc.
func (s *ArchiveSink) Key(doc *types.Document) string {
	return s.prefix + doc.StartedAt.UTC().Format("2006/01/02") + "/" + doc.RunID + ".json"
}

// Deliver implements Sink.
func (s *ArchiveSink) Deliver(ctx context.Context, doc *types.Document) error {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.Key(doc)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive run %s: %w", doc.RunID, err)
	}
	return nil
}
