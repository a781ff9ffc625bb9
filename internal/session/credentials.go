// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/subosito/gotenv"

	"github.com/staranto/layerctl/internal/fault"
)

const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvSessionToken    = "AWS_SESSION_TOKEN"
)

// CredentialSet holds raw credential material. It formats itself redacted so
// it is safe to hand to loggers by accident.
type CredentialSet struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func (c CredentialSet) String() string {
	return fmt.Sprintf("CredentialSet{AccessKeyID:%s SecretAccessKey:%s SessionToken:%s}",
		redact(c.AccessKeyID), redact(c.SecretAccessKey), redact(c.SessionToken))
}

func (c CredentialSet) GoString() string {
	return c.String()
}

// HasSessionToken reports whether temporary credentials were supplied.
func (c CredentialSet) HasSessionToken() bool {
	return c.SessionToken != ""
}

func redact(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "<redacted>"
}

// loadCredentials resolves the credential keys. Values already present in the
// process environment win; the env file only fills gaps. A missing env file
// is tolerated, a malformed one is not.
func loadCredentials(envFile string, lookup func(string) (string, bool)) (CredentialSet, error) {
	fileVals := gotenv.Env{}
	if envFile != "" {
		f, err := os.Open(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debugf("env file %s not found, using process environment", envFile)
		case err != nil:
			return CredentialSet{}, fault.Newf(fault.Configuration, "load", "failed to open env file %s: %w", envFile, err)
		default:
			defer f.Close()
			fileVals, err = gotenv.StrictParse(f)
			if err != nil {
				return CredentialSet{}, fault.Newf(fault.Configuration, "load", "failed to parse env file %s: %w", envFile, err)
			}
		}
	}

	get := func(key string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(fileVals[key])
	}

	creds := CredentialSet{
		AccessKeyID:     get(EnvAccessKeyID),
		SecretAccessKey: get(EnvSecretAccessKey),
		SessionToken:    get(EnvSessionToken),
	}

	var missing []string
	if creds.AccessKeyID == "" {
		missing = append(missing, EnvAccessKeyID)
	}
	if creds.SecretAccessKey == "" {
		missing = append(missing, EnvSecretAccessKey)
	}
	if len(missing) > 0 {
		return CredentialSet{}, fault.Newf(fault.Configuration, "load",
			"missing or empty credential keys: %s", strings.Join(missing, ", "))
	}

	return creds, nil
}
