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
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
)

type httpClient struct {
	url       string
	timeout   time.Duration
	readLimit uint32
	verifier  ResponseVerifierFunc
}

func newHTTPClient(url string) *httpClient {
	return &httpClient{
		url:     url,
		timeout: defaultRequestTimeout * time.Second,
	}
}

// setupClient returns a new HTTP Client.
//
// ## Proxy Configuration ##
// To use a proxy, configure it via the system environment variable: `http_proxy=user:pass@server:port`.
func (c *httpClient) setupClient() *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{},
		},
	}
}

// Receive implements Client.Receive().
func (c *httpClient) Receive(ctx context.Context) (b []byte, e error) {
	if c == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var reqCancel context.CancelFunc
			ctx, reqCancel = context.WithTimeout(ctx, c.timeout)
			defer reqCancel()
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.New(errors.KsiNetworkError).SetExtError(err)
	}
	httpReq.Close = true

	resp, err := c.setupClient().Do(httpReq)
	if err != nil {
		return nil, errors.New(errors.KsiNetworkError).SetExtError(err).
			AppendMessage(fmt.Sprintf("HTTP request to '%s' failed.", c.url))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error("Closing HTTP response body returned error: ", err)
		}
	}()

	if resp.StatusCode >= 400 && resp.StatusCode < 600 {
		return nil, errors.New(errors.KsiHttpError).SetExtErrorCode(resp.StatusCode).
			AppendMessage(resp.Status)
	}

	// (Buffer).ReadFrom can panic if the amount of data gets to large.
	defer func() {
		if r := recover(); r != nil {
			ksiErr := errors.New(errors.KsiNetworkError).AppendMessage("Panic while reading HTTP response.")
			if err, ok := r.(error); ok {
				e = ksiErr.SetExtError(err)
			} else {
				e = ksiErr.AppendMessage(fmt.Sprintf("%s", r))
			}
		}
	}()
	var (
		buf    bytes.Buffer
		reader = io.Reader(resp.Body)
	)
	if c.readLimit > 0 {
		reader = io.LimitReader(resp.Body, int64(c.readLimit))
	}
	if _, err = buf.ReadFrom(reader); err != nil {
		return nil, errors.New(errors.KsiNetworkError).SetExtError(err).
			AppendMessage("Failed to read response body")
	}
	if err := verifyResponse(c.verifier, c.url, buf.Bytes()); err != nil {
		return nil, err
	}
	log.Debug(fmt.Sprintf("HTTP received (%s): %d bytes", c.url, buf.Len()))
	return buf.Bytes(), nil
}

// URI implements Client.URI().
func (c *httpClient) URI() string {
	if c == nil {
		return ""
	}
	return c.url
}

// SetReadLimit implements ReadLimiter interface.
func (c *httpClient) SetReadLimit(limit uint32) error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	c.readLimit = limit
	return nil
}

// SetTimeout implements RequestTimeouter interface.
func (c *httpClient) SetTimeout(d byte) error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	c.timeout = time.Duration(d) * time.Second
	return nil
}

// SetVerifier implements ResponseVerifier interface.
func (c *httpClient) SetVerifier(v ResponseVerifierFunc) error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	c.verifier = v
	return nil
}
