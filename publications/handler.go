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

package publications

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fullsailor/pkcs7"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/net"
)

// FileHandler is publications file (see File) processor. It downloads the file, verifies its PKI signature and
// keeps the verified file for the configured TTL. Optionally the raw file is shared via a FileCache.
//
// FileHandler is safe for concurrent use.
type FileHandler struct {
	// Download URI.
	uri     string
	netOpts []net.ClientOpt

	// Publications file.
	file         *File
	fileTTL      time.Duration
	fileCachedAt time.Time
	fileCnstr    []pkix.AttributeTypeAndValue

	// Shared raw file cache.
	cache    FileCache
	cacheKey string

	// Cert trust store.
	trustedCertificates *x509.CertPool

	now func() time.Time

	// Receive guard.
	rxMutex sync.Mutex
}

const (
	defaultPubFileTTL     = time.Hour * 8
	defaultCacheKeyPrefix = "ksi:pubfile:"
)

// NewFileHandler returns a new publications file handler instance.
func NewFileHandler(settings ...FileHandlerSetting) (*FileHandler, error) {
	tmp := fileHandler{obj: FileHandler{
		fileTTL: defaultPubFileTTL,
		now:     time.Now,
	}}
	for _, setter := range settings {
		if setter == nil {
			return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Setting is a nil pointer.")
		}
		if err := setter(&tmp); err != nil {
			return nil, err
		}
	}
	if tmp.obj.cache != nil && tmp.obj.cacheKey == "" {
		tmp.obj.cacheKey = defaultCacheKeyPrefix + tmp.obj.uri
	}
	return &tmp.obj, nil
}

// FileHandlerSetting is handler initialization option.
type (
	FileHandlerSetting func(*fileHandler) error
	fileHandler        struct {
		obj FileHandler
	}
)

// FileHandlerUseSystemCertStore initializes the trust store with a copy of the system cert pool.
func FileHandlerUseSystemCertStore() FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			return errors.New(errors.KsiCryptoFailure).SetExtError(err).
				AppendMessage("Unable to set system cert pool.")
		}
		h.obj.trustedCertificates = pool
		return nil
	}
}

// FileHandlerSetTrustedCertificateDir loads all files with 'crt' extension from the directory as trusted
// certificates.
func FileHandlerSetTrustedCertificateDir(path string) FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return errors.New(errors.KsiIoError).SetExtError(err).
				AppendMessage(fmt.Sprintf("Unable to load certificate directory '%s'.", path))
		}

		hasCerts := false
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".crt") {
				continue
			}
			hasCerts = true
			certPath := filepath.Join(path, e.Name())
			if err := FileHandlerSetTrustedCertificateFromFilePem(certPath)(h); err != nil {
				return errors.KsiErr(err).
					AppendMessage(fmt.Sprintf("Unable to add certificate '%s' to trusted certificates.", certPath))
			}
		}
		if !hasCerts {
			log.Info(fmt.Sprintf("No certificates added from directory '%s'.", path))
		}
		return nil
	}
}

// FileHandlerSetTrustedCertificate appends certificate to pool of trusted certificates.
func FileHandlerSetTrustedCertificate(certificate *x509.Certificate) FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		if certificate == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		h.obj.certPool().AddCert(certificate)
		return nil
	}
}

// FileHandlerSetTrustedCertificateFromFilePem appends certificate(s) from pem encoded file to pool of trusted
// certificates.
func FileHandlerSetTrustedCertificateFromFilePem(fname string) FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		dat, err := os.ReadFile(fname)
		if err != nil {
			return errors.New(errors.KsiIoError).SetExtError(err).
				AppendMessage(fmt.Sprintf("Unable to open file '%s'!", fname))
		}
		if !h.obj.certPool().AppendCertsFromPEM(dat) {
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Unable to append certificates from file '%s'!", fname))
		}
		return nil
	}
}

func (h *FileHandler) certPool() *x509.CertPool {
	if h.trustedCertificates == nil {
		h.trustedCertificates = x509.NewCertPool()
	}
	return h.trustedCertificates
}

// FileHandlerSetPublicationsURL is configuration method for the publications file URL.
func FileHandlerSetPublicationsURL(url string, options ...net.ClientOpt) FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		h.obj.uri = url
		h.obj.netOpts = options
		return nil
	}
}

// FileHandlerSetFileCertConstraint specifies the constraints for verifying the publications file PKI certificate.
//
// Can be called multiple times in order to apply different X.509 distinguished names.
func FileHandlerSetFileCertConstraint(oid OID, value string) FileHandlerSetting {
	return func(h *fileHandler) error {
		if oid == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		h.obj.fileCnstr = append(h.obj.fileCnstr, pkix.AttributeTypeAndValue{
			Type:  asn1.ObjectIdentifier(oid),
			Value: value,
		})
		return nil
	}
}

// FileHandlerSetFileCertConstraints see description of FileHandlerSetFileCertConstraint.
func FileHandlerSetFileCertConstraints(cnstrs []pkix.AttributeTypeAndValue) FileHandlerSetting {
	return func(h *fileHandler) error {
		if len(cnstrs) == 0 {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		h.obj.fileCnstr = append(h.obj.fileCnstr, cnstrs...)
		return nil
	}
}

// FileHandlerSetFile publications file setter. The file is used as is until the publications URL is configured,
// in which case the first call to ReceiveFile() triggers a download.
func FileHandlerSetFile(p *File) FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		if p == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		h.obj.file = p
		h.obj.fileCachedAt = time.Time{}
		return nil
	}
}

// FileHandlerSetFileTTL specifies the downloaded publications file cache timeout.
//
// After the timeout expires, a call to the ReceiveFile() will trigger a new publications file download.
// In order to disable the timeout, set the duration to 0.
func FileHandlerSetFileTTL(d time.Duration) FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		if d < 0 {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Duration can not be negative.")
		}
		h.obj.fileTTL = d
		return nil
	}
}

// FileHandlerSetCache shares the downloaded raw publications file via the cache. If key is empty, a key derived
// from the publications URL is used.
func FileHandlerSetCache(c FileCache, key string) FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing file handler base object.")
		}
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing cache.")
		}
		h.obj.cache = c
		h.obj.cacheKey = key
		return nil
	}
}

// FileHandlerSetClock overrides the clock used for the TTL and certificate validity checks.
func FileHandlerSetClock(now func() time.Time) FileHandlerSetting {
	return func(h *fileHandler) error {
		if h == nil || now == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		h.obj.now = now
		return nil
	}
}

// ReceiveFile is ReceiveFileContext with a background context.
func (h *FileHandler) ReceiveFile() (*File, error) {
	return h.ReceiveFileContext(context.Background())
}

// ReceiveFileContext returns a verified publications file.
//
// If a publications URL is configured, the file is obtained from the shared cache or downloaded, then verified
// (see Verify) and kept until the TTL set by FileHandlerSetFileTTL expires. Otherwise the file set by
// FileHandlerSetFile is returned; it is verified on first use.
func (h *FileHandler) ReceiveFileContext(ctx context.Context) (*File, error) {
	if h == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	if h.uri == "" && h.file == nil {
		return nil, errors.New(errors.KsiInvalidStateError).AppendMessage("Publications file URL not configured.")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.rxMutex.Lock()
	defer h.rxMutex.Unlock()

	now := h.now()
	if h.uri == "" {
		if h.fileCachedAt.IsZero() {
			if err := h.Verify(h.file); err != nil {
				return nil, err
			}
			h.fileCachedAt = now
		}
		return h.file, nil
	}

	if h.file != nil && !h.fileCachedAt.IsZero() && (h.fileTTL == 0 || now.Sub(h.fileCachedAt) < h.fileTTL) {
		return h.file, nil
	}

	if f := h.fromCache(ctx); f != nil {
		h.file = f
		h.fileCachedAt = now
		return f, nil
	}

	raw, err := download(ctx, h.uri, h.netOpts...)
	if err != nil {
		return nil, err
	}
	f, err := NewFile(FileFromBytes(raw))
	if err != nil {
		return nil, err
	}
	if err := h.Verify(f); err != nil {
		return nil, err
	}
	h.file = f
	h.fileCachedAt = now
	log.Info(fmt.Sprintf("Publications file downloaded from '%s'.", h.uri))

	if h.cache != nil {
		if err := h.cache.Set(ctx, h.cacheKey, raw, h.fileTTL); err != nil {
			log.Warning("Unable to store publications file in cache: ", err)
		}
	}
	return f, nil
}

// fromCache returns the cached file, or nil if it is missing or not acceptable.
func (h *FileHandler) fromCache(ctx context.Context) *File {
	if h.cache == nil {
		return nil
	}
	raw, err := h.cache.Get(ctx, h.cacheKey)
	if err != nil {
		log.Warning("Publications file cache lookup failed: ", err)
		return nil
	}
	if raw == nil {
		return nil
	}
	f, err := NewFile(FileFromBytes(raw))
	if err == nil {
		err = h.Verify(f)
	}
	if err != nil {
		log.Warning("Ignoring cached publications file: ", err)
		return nil
	}
	log.Debug(fmt.Sprintf("Publications file restored from cache key '%s'.", h.cacheKey))
	return f
}

// FileTTL returns downloaded publications file cache timeout.
func (h *FileHandler) FileTTL() (time.Duration, error) {
	if h == nil {
		return 0, errors.New(errors.KsiInvalidArgumentError)
	}
	return h.fileTTL, nil
}

// Verify verifies the PKI signature of the publications file: the PKCS#7 signature must cover the file content,
// have exactly one signer whose certificate chains to a trusted root and matches the certificate constraints.
func (h *FileHandler) Verify(p *File) error {
	if h == nil || p == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	if len(p.raw) == 0 {
		return errors.New(errors.KsiInvalidFormatError).AppendMessage("Missing raw data.")
	}
	if len(p.signature) == 0 {
		return errors.New(errors.KsiPublicationsFileNotSignedWithPki)
	}

	pkcs7Sig, err := pkcs7.Parse(p.signature)
	if err != nil {
		return errors.New(errors.KsiInvalidPkiSignature).SetExtError(err).
			AppendMessage("Unable to parse publications file PKCS7 signature.")
	}
	pkcs7Sig.Content = p.SignedBytes()
	if err = pkcs7Sig.Verify(); err != nil {
		return errors.New(errors.KsiInvalidPkiSignature).SetExtError(err).
			AppendMessage("Unable to verify publications file signature.")
	}

	signCertCount := len(pkcs7Sig.Signers)
	if signCertCount == 0 {
		return errors.New(errors.KsiInvalidPkiSignature).
			AppendMessage("There is no signer info embedded into PKCS7 signature.")
	}
	// Note that nil is returned if there is more than 1 signer.
	signerCertificate := pkcs7Sig.GetOnlySigner()
	if signerCertificate == nil {
		return errors.New(errors.KsiInvalidPkiSignature).
			AppendMessage(fmt.Sprintf("There are %v signer certificate for PKCS7 signature but only 1 is expected.", signCertCount))
	}

	verifyOp := x509.VerifyOptions{
		Intermediates: x509.NewCertPool(),
		Roots:         h.trustedCertificates,
		CurrentTime:   h.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	for _, interCert := range pkcs7Sig.Certificates {
		verifyOp.Intermediates.AddCert(interCert)
	}
	chains, err := signerCertificate.Verify(verifyOp)
	if err != nil {
		return errors.New(errors.KsiPkiCertificateNotTrusted).SetExtError(err).
			AppendMessage("Unable to verify PKCS7 signatures signing certificate.")
	}
	if len(chains) == 0 {
		return errors.New(errors.KsiPkiCertificateNotTrusted).
			AppendMessage("Empty chain is returned without error.")
	}
	log.Debug(CertChainToString(chains[0]))

	return checkCertConstraints(h.fileCnstr, signerCertificate.Subject.Names)
}
