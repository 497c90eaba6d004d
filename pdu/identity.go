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

package pdu

import (
	"fmt"
	"strings"
)

// IdentityType is hash chain link identity type.
type IdentityType byte

const (
	// IdentityTypeUnknown is invalid type.
	IdentityTypeUnknown IdentityType = iota
	// IdentityTypeLegacyID is a client identifier converted from a legacy signature.
	IdentityTypeLegacyID
	// IdentityTypeMetadata is a client identity from the link metadata.
	IdentityTypeMetadata
)

// Identity is the client identity embedded into an aggregation hash chain link.
type Identity struct {
	Type        IdentityType
	ClientID    string
	MachineID   string
	SequenceNr  uint64
	RequestTime uint64
}

// String implements fmt.(Stringer) interface.
func (id *Identity) String() string {
	if id == nil {
		return ""
	}
	switch id.Type {
	case IdentityTypeLegacyID:
		return fmt.Sprintf("'%s' (legacy)", id.ClientID)
	case IdentityTypeMetadata:
		return fmt.Sprintf("Client ID: '%s'; Machine ID: '%s'; Sequence number: %d; Request time: %d",
			id.ClientID, id.MachineID, id.SequenceNr, id.RequestTime)
	default:
		return "Unknown"
	}
}

// IdentityList is an ordered list of link identities.
type IdentityList []*Identity

// String returns the non-empty client identifiers joined with " :: ".
func (l IdentityList) String() string {
	ids := make([]string, 0, len(l))
	for _, id := range l {
		if id != nil && id.ClientID != "" {
			ids = append(ids, id.ClientID)
		}
	}
	return strings.Join(ids, " :: ")
}
