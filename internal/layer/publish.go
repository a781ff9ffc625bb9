// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	lambdav2 "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/dustin/go-humanize"

	"github.com/staranto/layerctl/internal/fault"
)

const (
	// MaxDirectUploadSize is the largest zip Lambda accepts inline.
	MaxDirectUploadSize int64 = 50 * 1024 * 1024
	// MaxUnzippedSize is Lambda's ceiling on a layer's extracted size.
	MaxUnzippedSize int64 = 250 * 1024 * 1024
)

// LambdaAPI is the subset of the Lambda client used for publishing.
type LambdaAPI interface {
	PublishLayerVersion(ctx context.Context, params *lambdav2.PublishLayerVersionInput, optFns ...func(*lambdav2.Options)) (*lambdav2.PublishLayerVersionOutput, error)
}

// S3API is the subset of the S3 client used to stage large archives.
type S3API interface {
	PutObject(ctx context.Context, params *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
}

var (
	_ LambdaAPI = (*lambdav2.Client)(nil)
	_ S3API     = (*s3v2.Client)(nil)
)

// PublishRequest is everything needed to publish one layer version.
type PublishRequest struct {
	LayerName    string
	Description  string
	License      string
	Runtime      string
	Architecture string
	Region       string
	ArchivePath  string
	S3Bucket     string
	S3Key        string
}

// Publication is the remote result of a publish.
type Publication struct {
	LayerArn        string
	LayerVersionArn string
	Version         int64
	CodeSize        int64
	CodeSha256      string
	CreatedDate     string
}

// Publisher publishes an archive as a new layer version.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*Publication, error)
}

// AWSPublisher publishes through Lambda, staging in S3 when the request names
// a bucket.
type AWSPublisher struct {
	Lambda LambdaAPI
	S3     S3API
}

var _ Publisher = (*AWSPublisher)(nil)

func (p *AWSPublisher) Publish(ctx context.Context, req PublishRequest) (*Publication, error) {
	content := &lambdatypes.LayerVersionContentInput{}

	if req.S3Bucket != "" {
		version, err := p.stage(ctx, req)
		if err != nil {
			return nil, err
		}
		content.S3Bucket = awsv2.String(req.S3Bucket)
		content.S3Key = awsv2.String(req.S3Key)
		content.S3ObjectVersion = version
	} else {
		data, err := os.ReadFile(req.ArchivePath)
		if err != nil {
			return nil, fault.Newf(fault.Publish, "publish", "failed to read archive: %w", err)
		}
		content.ZipFile = data
	}

	input := &lambdav2.PublishLayerVersionInput{
		LayerName:               awsv2.String(req.LayerName),
		Content:                 content,
		CompatibleRuntimes:      []lambdatypes.Runtime{lambdatypes.Runtime(req.Runtime)},
		CompatibleArchitectures: []lambdatypes.Architecture{lambdatypes.Architecture(req.Architecture)},
	}
	if req.Description != "" {
		input.Description = awsv2.String(req.Description)
	}
	if req.License != "" {
		input.LicenseInfo = awsv2.String(req.License)
	}

	out, err := p.Lambda.PublishLayerVersion(ctx, input)
	if err != nil {
		return nil, classifyRemote("publish", "PublishLayerVersion", err)
	}

	pub := &Publication{
		LayerArn:        awsv2.ToString(out.LayerArn),
		LayerVersionArn: awsv2.ToString(out.LayerVersionArn),
		Version:         out.Version,
		CreatedDate:     awsv2.ToString(out.CreatedDate),
	}
	if out.Content != nil {
		pub.CodeSize = out.Content.CodeSize
		pub.CodeSha256 = awsv2.ToString(out.Content.CodeSha256)
	}
	return pub, nil
}

// stage uploads the archive and returns the object version, if the bucket is
// versioned.
func (p *AWSPublisher) stage(ctx context.Context, req PublishRequest) (*string, error) {
	if p.S3 == nil {
		return nil, fault.Newf(fault.Publish, "publish", "S3 staging requested but no S3 client is available")
	}

	f, err := os.Open(req.ArchivePath)
	if err != nil {
		return nil, fault.Newf(fault.Publish, "publish", "failed to open archive: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fault.Newf(fault.Publish, "publish", "failed to stat archive: %w", err)
	}

	log.WithFields(log.Fields{
		"bucket": req.S3Bucket,
		"key":    req.S3Key,
		"size":   humanize.IBytes(uint64(fi.Size())),
	}).Info("staging archive in S3")

	out, err := p.S3.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:        awsv2.String(req.S3Bucket),
		Key:           awsv2.String(req.S3Key),
		Body:          f,
		ContentLength: awsv2.Int64(fi.Size()),
		ContentType:   awsv2.String("application/zip"),
	})
	if err != nil {
		return nil, classifyRemote("publish", "PutObject", err)
	}
	return out.VersionId, nil
}

// checkLimits fails fast on archives Lambda is certain to reject.
func checkLimits(info ArchiveInfo, staged bool) error {
	if info.UncompressedSize > MaxUnzippedSize {
		return fault.Newf(fault.Publish, "publish",
			"layer unzips to %s, above the %s Lambda limit",
			humanize.IBytes(uint64(info.UncompressedSize)), humanize.IBytes(uint64(MaxUnzippedSize)))
	}
	if !staged && info.Size > MaxDirectUploadSize {
		return fault.Newf(fault.Publish, "publish",
			"archive is %s, above the %s direct upload limit; configure an S3 bucket to stage it",
			humanize.IBytes(uint64(info.Size)), humanize.IBytes(uint64(MaxDirectUploadSize)))
	}
	return nil
}

// classifyRemote maps an AWS failure onto the fault taxonomy, keeping the
// remote error code visible.
func classifyRemote(stage, op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fault.New(fault.Publish, stage,
			fmt.Errorf("%s rejected (%s: %s): %w", op, apiErr.ErrorCode(), apiErr.ErrorMessage(), err))
	}

	var sendErr *smithyhttp.RequestSendError
	var netErr net.Error
	if errors.As(err, &sendErr) || errors.As(err, &netErr) {
		return fault.Newf(fault.Network, stage, "%s could not reach AWS: %w", op, err)
	}

	return fault.Newf(fault.Publish, stage, "%s failed: %w", op, err)
}
