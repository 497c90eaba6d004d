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
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guardtime/ksicore/errors"
)

func TestUnitNetClientSchemes(t *testing.T) {
	tests := []struct {
		uri  string
		http bool
	}{
		{"http://some.url/pubfile", true},
		{"https://some.url/pubfile", true},
		{"file:///tmp/pubfile.bin", false},
		{"pubfile.bin", false},
	}
	for _, tc := range tests {
		client, err := NewClient(tc.uri)
		if err != nil {
			t.Fatalf("Failed to create client for %s: %v", tc.uri, err)
		}
		if _, ok := client.(*httpClient); ok != tc.http {
			t.Errorf("Wrong client type for %s: %T", tc.uri, client)
		}
	}

	if _, err := NewClient("tcp://some.url:1234"); errors.CodeOf(err) != errors.KsiInvalidFormatError {
		t.Fatal("Unknown scheme must be rejected: ", err)
	}
	if _, err := NewClient(""); err == nil {
		t.Fatal("Empty URI must be rejected.")
	}
}

func TestUnitNetClientOptions(t *testing.T) {
	client, err := NewClient("http://some.url", ClientOptReadLimit(4000), ClientOptRequestTimeout(3))
	if err != nil {
		t.Fatal("Failed to create network client: ", err)
	}
	c := client.(*httpClient)
	if c.readLimit != 4000 || c.timeout != 3*time.Second {
		t.Fatal("Options not applied: ", c.readLimit, c.timeout)
	}

	if _, err := NewClient("file:///tmp/x", ClientOptRequestTimeout(3)); errors.CodeOf(err) != errors.KsiNotImplemented {
		t.Fatal("File client does not support timeout: ", err)
	}
	if _, err := NewClient("http://some.url", nil); err == nil {
		t.Fatal("Nil option must be rejected.")
	}
}

func TestUnitHTTPClientReceive(t *testing.T) {
	payload := []byte("KSIPUBLF-payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL + "/ok")
	raw, err := client.Receive(context.Background())
	if err != nil || !bytes.Equal(raw, payload) {
		t.Fatal("Unexpected response: ", raw, err)
	}

	client, _ = NewClient(srv.URL+"/missing", ClientOptRequestTimeout(1))
	_, err = client.Receive(context.Background())
	if errors.CodeOf(err) != errors.KsiHttpError {
		t.Fatal("HTTP error must be returned: ", err)
	}
	var ksiErr *errors.KsiError
	if !stderrors.As(err, &ksiErr) || ksiErr.ExtCode() != http.StatusNotFound {
		t.Fatal("HTTP status must be kept: ", err)
	}

	client, _ = NewClient(srv.URL+"/ok", ClientOptResponseVerifier(func(b []byte) (bool, error) {
		return bytes.HasPrefix(b, []byte("XYZ")), stderrors.New("bad magic")
	}))
	if _, err := client.Receive(context.Background()); errors.CodeOf(err) != errors.KsiNetworkError {
		t.Fatal("Verifier failure must be a network error: ", err)
	}

	client, _ = NewClient(srv.URL+"/ok", ClientOptReadLimit(3))
	if raw, err := client.Receive(context.Background()); err != nil || len(raw) != 3 {
		t.Fatal("Read limit not applied: ", raw, err)
	}
}

func TestUnitHTTPClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, _ := NewClient(url)
	if _, err := client.Receive(context.Background()); errors.CodeOf(err) != errors.KsiNetworkError {
		t.Fatal("Connection failure must be a network error: ", err)
	}
}

func TestUnitFileClientReceive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubfile.bin")
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatal("Failed to write test file: ", err)
	}

	client, _ := NewClient(path)
	raw, err := client.Receive(context.Background())
	if err != nil || string(raw) != "content" {
		t.Fatal("Unexpected file content: ", raw, err)
	}

	client, _ = NewClient(filepath.Join(t.TempDir(), "missing.bin"))
	if _, err := client.Receive(context.Background()); errors.CodeOf(err) != errors.KsiIoError {
		t.Fatal("Missing file must be an IO error: ", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client, _ = NewClient(path)
	if _, err := client.Receive(ctx); err == nil {
		t.Fatal("Cancelled context must be honored.")
	}
}
