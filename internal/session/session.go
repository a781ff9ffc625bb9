// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	stsv2 "github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	awsx "github.com/staranto/layerctl/internal/aws"
	"github.com/staranto/layerctl/internal/fault"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "sa-east-1"

// DefaultEnvFile is the env file read when none is configured.
const DefaultEnvFile = ".env"

// STSAPI is the subset of the STS client used to validate credentials.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *stsv2.GetCallerIdentityInput, optFns ...func(*stsv2.Options)) (*stsv2.GetCallerIdentityOutput, error)
}

var _ STSAPI = (*stsv2.Client)(nil)

// Session loads and validates credentials. The zero value is not usable;
// construct with New.
type Session struct {
	region  string
	envFile string
	lookup  func(string) (string, bool)
	newSTS  func(awsv2.Config) STSAPI

	creds  CredentialSet
	loaded bool
}

// Option customizes a Session.
type Option func(*Session)

// WithRegion binds the session to region.
func WithRegion(region string) Option {
	return func(s *Session) { s.region = region }
}

// WithEnvFile sets the env file credentials are read from.
func WithEnvFile(path string) Option {
	return func(s *Session) { s.envFile = path }
}

// WithLookup replaces the process environment lookup.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(s *Session) { s.lookup = lookup }
}

// WithSTS replaces the STS client factory.
func WithSTS(newSTS func(awsv2.Config) STSAPI) Option {
	return func(s *Session) { s.newSTS = newSTS }
}

func New(opts ...Option) *Session {
	s := &Session{
		region:  DefaultRegion,
		envFile: DefaultEnvFile,
		lookup:  os.LookupEnv,
		newSTS:  func(cfg awsv2.Config) STSAPI { return awsx.NewSTS(cfg) },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.region == "" {
		s.region = DefaultRegion
	}
	return s
}

// Region returns the region the session is bound to.
func (s *Session) Region() string {
	return s.region
}

// Load reads the credential set. It fails with a Configuration fault when
// the required keys are absent or empty.
func (s *Session) Load() error {
	creds, err := loadCredentials(s.envFile, s.lookup)
	if err != nil {
		return err
	}
	s.creds = creds
	s.loaded = true
	log.WithField("temporary", creds.HasSessionToken()).Debug("credentials loaded")
	return nil
}

// Validate exercises STS GetCallerIdentity with the loaded credentials and
// returns a Handle bound to the session region. Rejected credentials yield an
// Authentication fault; an unreachable service yields a Network fault.
func (s *Session) Validate(ctx context.Context) (*Handle, error) {
	if !s.loaded {
		return nil, fault.Newf(fault.Configuration, "validate", "credentials have not been loaded")
	}

	cfg, err := awsx.LoadAWSConfig(ctx,
		awsx.WithRegion(s.region),
		awsx.WithoutRetries(),
		awsx.WithStaticCredentials(s.creds.AccessKeyID, s.creds.SecretAccessKey, s.creds.SessionToken),
	)
	if err != nil {
		return nil, fault.Newf(fault.Configuration, "validate", "failed to load AWS config: %w", err)
	}

	out, err := s.newSTS(cfg).GetCallerIdentity(ctx, &stsv2.GetCallerIdentityInput{})
	if err != nil {
		return nil, classify(err)
	}

	h := &Handle{
		cfg:    cfg,
		region: s.region,
		identity: Identity{
			Account: awsv2.ToString(out.Account),
			Arn:     awsv2.ToString(out.Arn),
			UserID:  awsv2.ToString(out.UserId),
		},
	}
	log.WithFields(log.Fields{
		"account": h.identity.Account,
		"arn":     h.identity.Arn,
		"region":  s.region,
	}).Info("credentials validated")

	return h, nil
}

// classify maps an STS failure onto the fault taxonomy. Anything the service
// answered is a rejection; anything that never got an answer is a network
// problem.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fault.Newf(fault.Authentication, "validate",
			"credentials rejected (%s), refresh them and retry: %w", apiErr.ErrorCode(), err)
	}

	var sendErr *smithyhttp.RequestSendError
	var netErr net.Error
	if errors.As(err, &sendErr) || errors.As(err, &netErr) {
		return fault.Newf(fault.Network, "validate", "unable to reach STS: %w", err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fault.Newf(fault.Network, "validate", "identity check interrupted: %w", err)
	}

	return fault.Newf(fault.Authentication, "validate", "identity check failed: %w", err)
}
