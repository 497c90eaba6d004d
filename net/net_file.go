/*
 * Copyright 2020 Guardtime, Inc.
 *
 * This file is part of the Guardtime client SDK.
 *
 * Licensed under the Apache License, Version 2.0 (the "License").
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES, CONDITIONS, OR OTHER LICENSES OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 * "Guardtime" and "KSI" are trademarks or registered trademarks of
 * Guardtime, Inc., and no license to trademarks is granted; Guardtime
 * reserves and retains all trademark rights.
 */

package net

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
)

type fileClient struct {
	path      string
	readLimit uint32
	verifier  ResponseVerifierFunc
}

func newFileClient(path string) *fileClient {
	return &fileClient{path: path}
}

// Receive implements Client.Receive(). The context is only checked before the file is opened.
func (c *fileClient) Receive(ctx context.Context) ([]byte, error) {
	if c == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.KsiIoError).SetExtError(err)
		}
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, errors.New(errors.KsiIoError).SetExtError(err).
			AppendMessage(fmt.Sprintf("Unable to open file '%s'.", c.path))
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error("Failed to close file: ", err)
		}
	}()

	reader := io.Reader(f)
	if c.readLimit > 0 {
		reader = io.LimitReader(f, int64(c.readLimit))
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.New(errors.KsiIoError).SetExtError(err).
			AppendMessage(fmt.Sprintf("Unable to read file '%s'.", c.path))
	}
	if err := verifyResponse(c.verifier, c.path, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// URI implements Client.URI().
func (c *fileClient) URI() string {
	if c == nil {
		return ""
	}
	return c.path
}

// SetReadLimit implements ReadLimiter interface.
func (c *fileClient) SetReadLimit(limit uint32) error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	c.readLimit = limit
	return nil
}

// SetVerifier implements ResponseVerifier interface.
func (c *fileClient) SetVerifier(v ResponseVerifierFunc) error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	c.verifier = v
	return nil
}
