/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package source implements the URL resolver boundary (§4.6.1, §6 item 4):
// a primary resolver, an optional secondary "recovery" resolver used when
// the primary's URL carries a trial-version marker, and a production
// S3-backed primary grounded on internal/media's aws-sdk-go-v2 client.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
)

// trialMarker is the magic substring the spec treats as an external
// policy constant identifying a trial-version download URL.
const trialMarker = "/trial/"

// Resolver resolves a song id to a downloadable URL and reports whether it
// is a trial-version URL, per hostapi.Resolver.
type Resolver interface {
	hostapi.Resolver
	IsTrialURL(url string) bool
}

// S3Config configures S3Resolver, mirroring internal/media.S3Config's
// fields relevant to presigned-URL generation.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Bucket          string
	Endpoint        string
	UsePathStyle    bool
	PresignedExpiry time.Duration
	KeyPrefix       string // e.g. "media/"
}

// S3Resolver is the production primary resolver: it presigns a GET URL for
// songID's object key.
type S3Resolver struct {
	client *s3.Client
	cfg    S3Config
	logger zerolog.Logger
}

// NewS3Resolver constructs an S3Resolver, loading AWS credentials the same
// way internal/media.NewS3Storage does.
func NewS3Resolver(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Resolver, error) {
	var awsCfg aws.Config
	var err error

	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true, SigningRegion: cfg.Region}, nil
			}
			return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
		})
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithEndpointResolverWithOptions(resolver),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("source: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	if cfg.PresignedExpiry == 0 {
		cfg.PresignedExpiry = 15 * time.Minute
	}

	return &S3Resolver{client: client, cfg: cfg, logger: logger.With().Str("component", "automix.source").Logger()}, nil
}

// ResolveURL presigns a GET URL for the song's object key.
func (r *S3Resolver) ResolveURL(ctx context.Context, songID string) (string, bool, error) {
	key := r.cfg.KeyPrefix + songID
	presign := s3.NewPresignClient(r.client)
	req, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = r.cfg.PresignedExpiry
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("song_id", songID).Msg("resolve failed")
		return "", false, fmt.Errorf("source: presign object: %w", err)
	}
	return req.URL, r.IsTrialURL(req.URL), nil
}

// IsTrialURL reports whether url carries the trial-version marker.
func (r *S3Resolver) IsTrialURL(url string) bool {
	return strings.Contains(url, trialMarker)
}

// HTTPDownloader implements hostapi.Downloader over plain net/http, used
// for both S3 presigned URLs and arbitrary secondary-resolver URLs.
type HTTPDownloader struct {
	Client *http.Client
}

// NewHTTPDownloader constructs a downloader with a 30s client timeout,
// matching the spec's load-timeout cap.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Download fetches the full response body at url.
func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: download: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Chained tries the primary resolver, and falls back to secondary when the
// primary succeeds but its URL is a trial-version URL.
type Chained struct {
	Primary   Resolver
	Secondary Resolver // may be nil
}

// ResolveURL implements Resolver by preferring Secondary's result whenever
// Primary's URL is flagged as a trial version.
func (c *Chained) ResolveURL(ctx context.Context, songID string) (string, bool, error) {
	url, isTrial, err := c.Primary.ResolveURL(ctx, songID)
	if err != nil {
		return "", false, err
	}
	if isTrial && c.Secondary != nil {
		if sURL, sTrial, sErr := c.Secondary.ResolveURL(ctx, songID); sErr == nil {
			return sURL, sTrial, nil
		}
	}
	return url, isTrial, nil
}

// IsTrialURL delegates to the primary's marker detection.
func (c *Chained) IsTrialURL(url string) bool {
	return c.Primary.IsTrialURL(url)
}
