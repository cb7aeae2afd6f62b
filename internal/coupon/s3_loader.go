package coupon

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// objectGetter is the subset of the S3 client the loader needs.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader reads gzipped coupon books stored as objects in one bucket.
type s3Loader struct {
	client objectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates a coupon loader for bucket using the default AWS
// credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().Str("bucket", bucket).Str("region", region).Msg("coupon books will be read from S3")
	return newS3Loader(s3.NewFromConfig(awsCfg), bucket, logger), nil
}

func newS3Loader(client objectGetter, bucket string, logger zerolog.Logger) *s3Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "coupon-s3").Logger(),
	}
}

// Load fetches the object at key and parses it as a coupon book.
func (l *s3Loader) Load(ctx context.Context, key string) (Book, error) {
	obj, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", l.bucket, key, err)
	}
	defer obj.Body.Close()

	book, err := readGzipBook(ctx, obj.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", l.bucket, key, err)
	}

	l.logger.Info().Str("key", key).Int("coupons", book.Size()).Msg("coupon book loaded")
	return book, nil
}

// fallbackLoader prefers the S3 copy of a coupon book and reads the local
// file when S3 is disabled or the fetch fails.
type fallbackLoader struct {
	remote Loader
	local  Loader
	prefix string
	logger zerolog.Logger
}

// NewFallbackLoader combines an S3 loader and a file loader. The S3 key is
// prefix joined with the requested path; the local path is used as given.
// A nil s3Loader or s3Enabled=false reads local files only.
func NewFallbackLoader(s3Loader, fileLoader Loader, prefix string, s3Enabled bool, logger zerolog.Logger) Loader {
	if !s3Enabled {
		s3Loader = nil
	}
	return &fallbackLoader{
		remote: s3Loader,
		local:  fileLoader,
		prefix: prefix,
		logger: logger.With().Str("component", "coupon-fallback").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, path string) (Book, error) {
	if l.remote != nil {
		key := l.prefix + strings.TrimPrefix(path, "/")
		book, err := l.remote.Load(ctx, key)
		if err == nil {
			return book, nil
		}
		l.logger.Warn().Err(err).Str("key", key).Str("path", path).Msg("S3 coupon book unavailable, reading local copy")
	}

	return l.local.Load(ctx, path)
}
