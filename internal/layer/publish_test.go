// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	lambdav2 "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/layerctl/internal/fault"
)

type fakeLambda struct {
	input *lambdav2.PublishLayerVersionInput
	err   error
}

func (f *fakeLambda) PublishLayerVersion(ctx context.Context, params *lambdav2.PublishLayerVersionInput, optFns ...func(*lambdav2.Options)) (*lambdav2.PublishLayerVersionOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &lambdav2.PublishLayerVersionOutput{
		LayerArn:        awsv2.String("arn:aws:lambda:sa-east-1:123456789012:layer:" + awsv2.ToString(params.LayerName)),
		LayerVersionArn: awsv2.String("arn:aws:lambda:sa-east-1:123456789012:layer:" + awsv2.ToString(params.LayerName) + ":7"),
		Version:         7,
		CreatedDate:     awsv2.String("2026-10-17T12:00:00.000+0000"),
		Content: &lambdatypes.LayerVersionContentOutput{
			CodeSize:   int64(len(params.Content.ZipFile)),
			CodeSha256: awsv2.String("sha"),
		},
	}, nil
}

type fakeS3 struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = awsv2.ToString(params.Bucket)
	f.key = awsv2.ToString(params.Key)
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3v2.PutObjectOutput{VersionId: awsv2.String("v1")}, nil
}

func archiveFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "deps.zip")
	require.NoError(t, os.WriteFile(p, []byte("PK-zip-bytes"), 0o644))
	return p
}

func TestAWSPublisher_Inline(t *testing.T) {
	lambda := &fakeLambda{}
	p := &AWSPublisher{Lambda: lambda}

	pub, err := p.Publish(context.Background(), PublishRequest{
		LayerName:    "deps",
		Description:  "Dependencies from requirements.txt",
		Runtime:      "python3.13",
		Architecture: ArchX86_64,
		ArchivePath:  archiveFile(t),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), pub.Version)
	assert.Equal(t, "arn:aws:lambda:sa-east-1:123456789012:layer:deps:7", pub.LayerVersionArn)
	assert.Equal(t, int64(len("PK-zip-bytes")), pub.CodeSize)

	in := lambda.input
	require.NotNil(t, in)
	assert.Equal(t, "deps", awsv2.ToString(in.LayerName))
	assert.Equal(t, []byte("PK-zip-bytes"), in.Content.ZipFile)
	assert.Nil(t, in.Content.S3Bucket)
	assert.Equal(t, []lambdatypes.Runtime{lambdatypes.RuntimePython313}, in.CompatibleRuntimes)
	assert.Equal(t, []lambdatypes.Architecture{lambdatypes.ArchitectureX8664}, in.CompatibleArchitectures)
	assert.Equal(t, "Dependencies from requirements.txt", awsv2.ToString(in.Description))
	assert.Nil(t, in.LicenseInfo)
}

func TestAWSPublisher_S3Staging(t *testing.T) {
	lambda := &fakeLambda{}
	s3 := &fakeS3{}
	p := &AWSPublisher{Lambda: lambda, S3: s3}

	_, err := p.Publish(context.Background(), PublishRequest{
		LayerName:    "deps",
		Runtime:      "python3.12",
		Architecture: ArchARM64,
		License:      "MIT",
		ArchivePath:  archiveFile(t),
		S3Bucket:     "artifacts",
		S3Key:        "layers/deps.zip",
	})
	require.NoError(t, err)

	assert.Equal(t, "artifacts", s3.bucket)
	assert.Equal(t, "layers/deps.zip", s3.key)
	assert.Equal(t, []byte("PK-zip-bytes"), s3.body)

	in := lambda.input
	assert.Nil(t, in.Content.ZipFile)
	assert.Equal(t, "artifacts", awsv2.ToString(in.Content.S3Bucket))
	assert.Equal(t, "layers/deps.zip", awsv2.ToString(in.Content.S3Key))
	assert.Equal(t, "v1", awsv2.ToString(in.Content.S3ObjectVersion))
	assert.Equal(t, "MIT", awsv2.ToString(in.LicenseInfo))
}

func TestAWSPublisher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		lambda  error
		s3      error
		bucket  string
		want    fault.Kind
		wantMsg string
	}{
		{
			name:    "size limit",
			lambda:  &smithy.GenericAPIError{Code: "RequestEntityTooLargeException", Message: "Request must be smaller than 69905067 bytes"},
			want:    fault.Publish,
			wantMsg: "RequestEntityTooLargeException",
		},
		{
			name:    "quota",
			lambda:  &smithy.GenericAPIError{Code: "CodeStorageExceededException", Message: "Code storage limit exceeded"},
			want:    fault.Publish,
			wantMsg: "CodeStorageExceededException",
		},
		{
			name:    "network",
			lambda:  &smithyhttp.RequestSendError{Err: errors.New("connection reset by peer")},
			want:    fault.Network,
			wantMsg: "could not reach AWS",
		},
		{
			name:    "staging denied",
			s3:      &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"},
			bucket:  "artifacts",
			want:    fault.Publish,
			wantMsg: "PutObject rejected (AccessDenied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lambda := &fakeLambda{err: tt.lambda}
			p := &AWSPublisher{Lambda: lambda, S3: &fakeS3{err: tt.s3}}

			_, err := p.Publish(context.Background(), PublishRequest{
				LayerName:    "deps",
				Runtime:      "python3.13",
				Architecture: ArchX86_64,
				ArchivePath:  archiveFile(t),
				S3Bucket:     tt.bucket,
				S3Key:        "deps.zip",
			})
			require.Error(t, err)
			assert.Equal(t, tt.want, fault.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAWSPublisher_StagingWithoutClient(t *testing.T) {
	p := &AWSPublisher{Lambda: &fakeLambda{}}
	_, err := p.Publish(context.Background(), PublishRequest{
		LayerName:   "deps",
		ArchivePath: archiveFile(t),
		S3Bucket:    "artifacts",
	})
	assert.Equal(t, fault.Publish, fault.KindOf(err))
}

func TestCheckLimits(t *testing.T) {
	assert.NoError(t, checkLimits(ArchiveInfo{Size: 1024, UncompressedSize: 4096}, false))
	assert.NoError(t, checkLimits(ArchiveInfo{Size: MaxDirectUploadSize + 1, UncompressedSize: MaxDirectUploadSize + 1}, true))

	err := checkLimits(ArchiveInfo{Size: MaxDirectUploadSize + 1, UncompressedSize: MaxDirectUploadSize + 1}, false)
	assert.Equal(t, fault.Publish, fault.KindOf(err))
	assert.Contains(t, err.Error(), "direct upload limit")

	err = checkLimits(ArchiveInfo{Size: 1024, UncompressedSize: MaxUnzippedSize + 1}, true)
	assert.Equal(t, fault.Publish, fault.KindOf(err))
	assert.Contains(t, err.Error(), "Lambda limit")
}
