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

package templates

import (
	"strings"
	"testing"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/tlv"
)

func TestEmptyRegistry(t *testing.T) {
	if len(GetAll()) != 0 {
		t.Fatal("TLV registry must be empty.")
	}
	if _, err := Get("anything"); errors.KsiErr(err).Code() != errors.KsiInvalidStateError {
		t.Fatal("Must fail on empty registry: ", err)
	}
}

func TestRegistryWithTemplates(t *testing.T) {
	type registryStruct struct {
		value *uint64 `tlv:"1,int"`
	}
	testObject := &registryStruct{}

	before := len(GetAll())
	if err := Register(testObject, "", 0x01); err != nil {
		t.Fatal("Failed to initialize templates:\n", err)
	}
	if err := Register(testObject, "registryDummy", 0x01, 0x02); err != nil {
		t.Fatal("Failed to initialize templates:\n", err)
	}
	if len(GetAll()) != before+2 {
		t.Fatal("TLV registry must contain two more templates.")
	}

	tmpl, err := Get("registryStruct")
	if err != nil {
		t.Fatal("Failed to get template:\n", err)
	}
	if tmpl.Path() != "registryStruct" || !tmpl.Matches(0x01) || tmpl.Matches(0x02) {
		t.Fatal("Template mismatch.")
	}
	if tmpl, err = Get("registryDummy"); err != nil || !tmpl.Matches(0x02) {
		t.Fatal("Template must match all registered tags: ", err)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	type (
		duplicateStruct struct {
			value *uint64 `tlv:"1,int"`
		}
		duplicateStruct2 struct {
			value *string `tlv:"1,utf8"`
		}
	)
	assertDuplicate := func(err error) bool {
		ksiErr := errors.KsiErr(err)
		return ksiErr.Code() == errors.KsiInvalidStateError &&
			strings.HasPrefix(ksiErr.Message()[0], "TLV Template already exists")
	}

	if err := Register(&duplicateStruct{}, "", 0x01); err != nil {
		t.Fatal("Failed to initialize templates:\n", err)
	}
	if !assertDuplicate(Register(&duplicateStruct{}, "", 0x01)) {
		t.Fatal("Must return error for duplicate name (obj type is already registered).")
	}
	if !assertDuplicate(Register(&duplicateStruct2{}, "duplicateStruct", 0x01)) {
		t.Fatal("Must return error for duplicate name (name is already registered).")
	}
}

func TestRegisterInvalid(t *testing.T) {
	type (
		invalidType struct {
			value *string `tlv:"1,int"`
		}
		validStruct struct {
			value *uint64 `tlv:"1,int"`
		}
	)

	if err := Register(nil, "", 0x01); errors.KsiErr(err).Code() != errors.KsiInvalidArgumentError {
		t.Fatal("Must fail with nil object: ", err)
	}
	if err := Register(validStruct{}, "", 0x01); errors.KsiErr(err).Code() != errors.KsiInvalidFormatError {
		t.Fatal("Must fail with non pointer object: ", err)
	}
	if err := Register(&invalidType{}, "", 0x01); err == nil {
		t.Fatal("Must fail with mismatching field type.")
	}
	if _, err := Get("invalidType"); err == nil {
		t.Fatal("Failed template must not be registered.")
	}
}

func TestDecode(t *testing.T) {
	type decodeStruct struct {
		name *string `tlv:"1,utf8,C1"`
	}
	if err := Register(&decodeStruct{}, "", 0x10); err != nil {
		t.Fatal("Failed to initialize templates:\n", err)
	}

	name, _ := tlv.NewUtf8(0x01, "anon")
	raw, err := tlv.NewNested(0x10, []*tlv.Tlv{name})
	if err != nil {
		t.Fatal("Failed to build TLV: ", err)
	}

	var obj decodeStruct
	if err := Decode("decodeStruct", raw, &obj); err != nil {
		t.Fatal("Failed to decode: ", err)
	}
	if obj.name == nil || *obj.name != "anon" {
		t.Fatal("Name mismatch.")
	}
	if err := Decode("missingTemplate", raw, &obj); errors.KsiErr(err).Code() != errors.KsiInvalidStateError {
		t.Fatal("Must fail with unknown template: ", err)
	}
}
