// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	lambdav2 "github.com/aws/aws-sdk-go-v2/service/lambda"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"

	awsx "github.com/staranto/layerctl/internal/aws"
)

// Identity is the principal behind the validated credentials.
type Identity struct {
	Account string `json:"account" yaml:"account"`
	Arn     string `json:"arn" yaml:"arn"`
	UserID  string `json:"user_id" yaml:"user_id"`
}

// Handle is the authenticated capability produced by Session.Validate. It
// is the only source of AWS clients.
type Handle struct {
	cfg      awsv2.Config
	region   string
	identity Identity
}

func (h *Handle) Region() string {
	return h.region
}

func (h *Handle) Identity() Identity {
	return h.identity
}

// Lambda returns a Lambda client bound to the handle's region and
// credentials.
func (h *Handle) Lambda() *lambdav2.Client {
	return awsx.NewLambda(h.cfg)
}

// S3 returns an S3 client bound to the handle's region and credentials.
func (h *Handle) S3() *s3v2.Client {
	return awsx.NewS3(h.cfg)
}
