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

package errors

// ErrorCode represent the error code value.
type ErrorCode uint16

const (
	// KsiNoError represent a successful result.
	KsiNoError = ErrorCode(0)

	/*
		Syntax errors
	*/

	// KsiInvalidArgumentError is in case of invalid function input argument (eg. nil pointer).
	KsiInvalidArgumentError = ErrorCode(0x100)
	// KsiInvalidFormatError the provided value is invalid (eg. out of range, malformed TLV).
	KsiInvalidFormatError = ErrorCode(0x101)
	// KsiBufferOverflow is set in case of buffer or value overflow.
	KsiBufferOverflow = ErrorCode(0x104)
	// KsiInvalidSignature is set in case the signature structure is inconsistent and can not be constructed.
	KsiInvalidSignature = ErrorCode(0x107)
	// KsiInvalidPkiSignature is set in case of invalid PKI signature.
	KsiInvalidPkiSignature = ErrorCode(0x108)
	// KsiPkiCertificateNotTrusted is set in case the PKI signature is not trusted by the API.
	KsiPkiCertificateNotTrusted = ErrorCode(0x109)
	// KsiInvalidStateError is set in case the objects used are in an invalid state (eg. missing mandatory member value).
	KsiInvalidStateError = ErrorCode(0x10a)
	// KsiUnknownHashAlgorithm is set in case the hash algorithm ID is invalid or unknown to the API.
	KsiUnknownHashAlgorithm = ErrorCode(0x10b)
	// KsiHashAlgorithmNotImplemented is set in case there is no implementation available for a known hash algorithm.
	KsiHashAlgorithmNotImplemented = ErrorCode(0x10c)
	// KsiHashAlgorithmNotTrusted is set in case the hash algorithm is known but must not be used.
	KsiHashAlgorithmNotTrusted = ErrorCode(0x10d)

	/*
		System errors
	*/

	// KsiNetworkError is set in case a network error occurred.
	KsiNetworkError = ErrorCode(0x200)
	// KsiHttpError is set in case an HTTP error has been received.
	KsiHttpError = ErrorCode(0x201)
	// KsiIoError is set in case IO error occurred.
	KsiIoError = ErrorCode(0x202)
	// KsiVerificationFailure is a common signature verification failure.
	KsiVerificationFailure = ErrorCode(0x20a)
	// KsiPublicationsFileNotSignedWithPki is set in case the publications file is not signed.
	KsiPublicationsFileNotSignedWithPki = ErrorCode(0x20c)
	// KsiCryptoFailure is set in case cryptographic operation could not be performed. Likely causes are unsupported
	// cryptographic algorithms, invalid keys and lack of resources.
	KsiCryptoFailure = ErrorCode(0x20d)
	// KsiIncompatibleHashChain is set in case of incompatibility of calendar hash chains.
	KsiIncompatibleHashChain = ErrorCode(0x213)
	// KsiExternalError is set in case external error from 3rd party API (eg std library) is returned and wrapped
	// automatically inside KsiError.
	KsiExternalError = ErrorCode(0x214)
	// KsiExtenderError is set in case the extender collaborator failed to return a calendar hash chain.
	KsiExtenderError = ErrorCode(0x215)
	// KsiCacheError is set in case the publications file cache backend failed.
	KsiCacheError = ErrorCode(0x216)

	// KsiNotImplemented indicates an invalid API state.
	KsiNotImplemented = ErrorCode(0xffff)
)

var errStrings = map[ErrorCode]string{
	KsiNoError: "No Error",

	KsiInvalidArgumentError:        "Invalid Argument",
	KsiInvalidFormatError:          "Invalid Format",
	KsiBufferOverflow:              "Buffer overflow",
	KsiInvalidSignature:            "Invalid KSI signature",
	KsiInvalidPkiSignature:         "Invalid PKI signature",
	KsiPkiCertificateNotTrusted:    "The PKI certificate is not trusted",
	KsiInvalidStateError:           "Invalid State",
	KsiUnknownHashAlgorithm:        "Unknown Hash Algorithm",
	KsiHashAlgorithmNotImplemented: "Hash algorithm not implemented",
	KsiHashAlgorithmNotTrusted:     "Hash algorithm not trusted",

	KsiNetworkError:                     "Network Error",
	KsiHttpError:                        "HTTP error",
	KsiIoError:                          "IO Error",
	KsiVerificationFailure:              "Verification failed",
	KsiPublicationsFileNotSignedWithPki: "The publications file is not signed",
	KsiCryptoFailure:                    "Cryptographic failure",
	KsiIncompatibleHashChain:            "Incompatible calendar hash chain",
	KsiExternalError:                    "Common external error from 3rd party API",
	KsiExtenderError:                    "Extender failure",
	KsiCacheError:                       "Cache backend failure",

	KsiNotImplemented: "Not Implemented",
}

func (c ErrorCode) String() string {
	if s, ok := errStrings[c]; ok {
		return s
	}
	return "Unknown error"
}
