// Script sources and result sinks on local disk, HTTP and S3.
package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds optional S3 credentials. Empty fields fall back to the
// default AWS credential chain.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // S3-compatible endpoint, addressed path-style
}

type locationKind int

const (
	localLocation locationKind = iota
	httpLocation
	s3Location
)

// location is a parsed script source or result sink.
type location struct {
	kind   locationKind
	raw    string
	path   string // local path
	bucket string
	key    string
}

func parseLocation(raw string) (location, error) {
	loc := location{raw: raw, path: raw}

	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return loc, nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		loc.path = rest
	case "http", "https":
		loc.kind = httpLocation
	case "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return location{}, fmt.Errorf("invalid S3 URL %q: want s3://bucket/key", raw)
		}
		loc.kind, loc.bucket, loc.key = s3Location, bucket, key
	default:
		return location{}, fmt.Errorf("unsupported URL scheme %q", scheme)
	}
	return loc, nil
}

// OpenSource opens a statement script at a local path, file://, http(s):// or
// s3://bucket/key URL.
func OpenSource(ctx context.Context, raw string, cfg *S3Config) (io.ReadCloser, error) {
	loc, err := parseLocation(raw)
	if err != nil {
		return nil, err
	}

	switch loc.kind {
	case httpLocation:
		return httpGet(ctx, loc.raw)
	case s3Location:
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.bucket),
			Key:    aws.String(loc.key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get s3://%s/%s: %w", loc.bucket, loc.key, err)
		}
		return out.Body, nil
	}
	return openLocal(loc.path)
}

// CreateSink opens a writer for results at a local path, file:// or
// s3://bucket/key URL. S3 objects are uploaded on Close.
func CreateSink(ctx context.Context, raw string, cfg *S3Config) (io.WriteCloser, error) {
	loc, err := parseLocation(raw)
	if err != nil {
		return nil, err
	}

	switch loc.kind {
	case httpLocation:
		return nil, errors.New("cannot write results to an HTTP URL")
	case s3Location:
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &s3Upload{ctx: ctx, client: client, bucket: loc.bucket, key: loc.key}, nil
	}
	return createLocal(loc.path)
}

var httpClient = &http.Client{Timeout: time.Minute}

func httpGet(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

func newS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	if cfg == nil {
		cfg = &S3Config{}
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// s3Upload buffers the results and puts the object on Close.
type s3Upload struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buf    bytes.Buffer
	done   bool
}

func (u *s3Upload) Write(p []byte) (int, error) {
	if u.done {
		return 0, os.ErrClosed
	}
	return u.buf.Write(p)
}

func (u *s3Upload) Close() error {
	if u.done {
		return nil
	}
	u.done = true

	_, err := u.client.PutObject(u.ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(u.key),
		Body:   bytes.NewReader(u.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", u.bucket, u.key, err)
	}
	return nil
}

// Swapped in tests.
var (
	openLocal = func(path string) (io.ReadCloser, error) { return os.Open(path) }

	createLocal = func(path string) (io.WriteCloser, error) { return os.Create(path) }
)
