package s3

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/Abra-CatAbra/foodsync-ai/internal/transform"
)

// Config holds S3-compatible source configuration.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string // target folder inside the bucket, optional
	Region    string
	PublicURL string // URL prefix for photo references, optional
}

// Adapter lists and downloads photos from an S3-compatible bucket.
// The bucket is read-only from the pipeline's point of view.
type Adapter struct {
	client    *awss3.Client
	bucket    string
	prefix    string
	endpoint  string
	useSSL    bool
	publicURL string
}

// NewAdapter creates a new S3 source adapter.
func NewAdapter(cfg *Config) (*Adapter, error) {
	endpoint := normalizeEndpoint(cfg.Endpoint)

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true // path-style for S3-compatible services
	})

	return &Adapter{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.TrimPrefix(cfg.Prefix, "/"),
		endpoint:  endpoint,
		useSSL:    cfg.UseSSL,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimSuffix(endpoint, "/")
}

// SourceID returns the stable identifier for this source.
func (a *Adapter) SourceID() string {
	return "s3:" + a.bucket
}

// ListRecent enumerates bucket objects modified after since, filtered to
// supported image types and ordered by modification time ascending.
func (a *Adapter) ListRecent(ctx context.Context, since time.Time) ([]domain.PhotoCandidate, error) {
	var candidates []domain.PhotoCandidate

	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
	}
	if a.prefix != "" {
		input.Prefix = aws.String(a.prefix)
	}

	paginator := awss3.NewListObjectsV2Paginator(a.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", a.bucket, err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			key := *obj.Key
			if strings.HasSuffix(key, "/") {
				continue // folder marker
			}
			if !obj.LastModified.After(since) {
				continue
			}
			name := key
			if idx := strings.LastIndex(key, "/"); idx != -1 {
				name = key[idx+1:]
			}
			if !transform.IsSupportedName(name) {
				continue
			}

			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			candidates = append(candidates, domain.PhotoCandidate{
				ID:           key,
				Name:         name,
				MimeType:     transform.MimeTypeFromName(name),
				ModifiedTime: *obj.LastModified,
				Size:         size,
				DownloadRef:  key,
			})
		}
	}

	// Oldest first: earlier uploads are logged before later ones
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ModifiedTime.Before(candidates[j].ModifiedTime)
	})

	return candidates, nil
}

// Download fetches the raw bytes of a candidate object.
func (a *Adapter) Download(ctx context.Context, candidate domain.PhotoCandidate) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(candidate.DownloadRef),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", candidate.DownloadRef, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", candidate.DownloadRef, err)
	}
	return data, nil
}

// PhotoURL returns a reference URL for a candidate, used in log entries.
func (a *Adapter) PhotoURL(candidate domain.PhotoCandidate) string {
	if a.publicURL != "" {
		return fmt.Sprintf("%s/%s", a.publicURL, candidate.DownloadRef)
	}
	scheme := "http"
	if a.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, a.endpoint, a.bucket, candidate.DownloadRef)
}
