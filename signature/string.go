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

package signature

import (
	"strconv"
	"strings"
)

// TrustAnchor returns a human readable name of the element the signature is anchored to.
func (s *Signature) TrustAnchor() string {
	switch {
	case s == nil:
		return "N/A"
	case s.calAuthRec != nil:
		return "Calendar Authentication Record"
	case s.pubRec != nil:
		return "Publication Record"
	case s.calChain != nil:
		return "Calendar Blockchain"
	default:
		return "N/A"
	}
}

// String implements fmt.(Stringer) interface.
func (s *Signature) String() string {
	var b strings.Builder

	b.WriteString("KSI Signature:\n")
	if s == nil {
		return "(null)\n"
	}

	b.WriteString("Document hash: ")
	b.WriteString(s.DocumentHash().String())
	b.WriteString("\n")

	b.WriteString("Signing time: (")
	st := s.SigningTime()
	b.WriteString(strconv.FormatInt(st.Unix(), 10))
	b.WriteString(") ")
	b.WriteString(st.UTC().String())
	b.WriteString("\n")

	if s.identity != "" {
		b.WriteString("Identity: '")
		b.WriteString(s.identity)
		b.WriteString("'\n")
	}

	b.WriteString("Trust anchor: '")
	b.WriteString(s.TrustAnchor())
	b.WriteString("'.\n")

	if s.pubRec != nil {
		b.WriteString("Publication: ")
		b.WriteString(s.pubRec.PublicationData().Base32())
		b.WriteString("\n")
	}

	b.WriteString("-------------------------------------------\n")
	for i, chain := range s.aggrChains {
		b.WriteString(strconv.Itoa(i))
		b.WriteString(". Aggregation hash chain:\n")
		b.WriteString(chain.String())
		b.WriteString("\n")
	}

	b.WriteString("-------------------------------------------\n")
	if s.calChain != nil {
		b.WriteString("Calendar hash chain:\n")
		b.WriteString(s.calChain.String())
		b.WriteString("\n")
	}
	return b.String()
}
