package results

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/leapstack-labs/zeus/internal/api"
)

// DefaultExportName is used when the server names no file.
const DefaultExportName = "query_results.csv"

// FilenameFromDisposition extracts the filename of a Content-Disposition
// header, falling back to DefaultExportName.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return DefaultExportName
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return DefaultExportName
	}
	name := filepath.Base(strings.TrimSpace(params["filename"]))
	if name == "" || name == "." || name == "/" || name == ".." {
		return DefaultExportName
	}
	return name
}

// Sink stores an exported file and returns where it went.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Exporter downloads results files.
type Exporter interface {
	Export(ctx context.Context, executionID string) (*api.ExportFile, error)
}

// Export downloads the results of executionID and stores them in sink.
func Export(ctx context.Context, exp Exporter, executionID string, sink Sink) (string, error) {
	file, err := exp.Export(ctx, executionID)
	if err != nil {
		return "", fmt.Errorf("failed to export results: %w", err)
	}
	ct := file.ContentType
	if ct == "" {
		ct = "text/csv"
	}
	return sink.Put(ctx, FilenameFromDisposition(file.ContentDisposition), ct, file.Data)
}

// FileSink writes exports into a local directory.
type FileSink struct {
	Dir string
}

// Put writes data to Dir/name, creating Dir when needed.
func (s FileSink) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// S3Config configures an S3Sink.
type S3Config struct {
	// Bucket and Prefix locate the exports, see ParseS3URL.
	Bucket          string
	Prefix          string
	Region          string
	EndpointURL     string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
}

// ParseS3URL splits s3://bucket/prefix.
func ParseS3URL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 url %q: expected s3://bucket[/prefix]", raw)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// S3Sink uploads exports to S3-compatible storage.
type S3Sink struct {
	cfg    S3Config
	client *s3.Client
	logger *slog.Logger
}

// NewS3Sink creates an S3 sink. Without static keys requests are sent
// unsigned.
func NewS3Sink(cfg S3Config, logger *slog.Logger) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = cfg.Region
		if o.Region == "" {
			o.Region = "us-east-1"
		}
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.ForcePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		}
	})

	return &S3Sink{
		cfg:    cfg,
		client: client,
		logger: logger.With(slog.String("component", "s3-sink")),
	}, nil
}

// Key returns the object key for name.
func (s *S3Sink) Key(name string) string {
	if s.cfg.Prefix == "" {
		return name
	}
	return strings.TrimRight(s.cfg.Prefix, "/") + "/" + name
}

// Put uploads data and returns its s3:// location.
func (s *S3Sink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.Key(name)
	s.logger.Debug("uploading export", slog.String("bucket", s.cfg.Bucket), slog.String("key", key))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key), nil
}
