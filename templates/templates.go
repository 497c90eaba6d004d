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

// Package templates implements the TLV template registry.
package templates

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/tlv"
)

type tlvTemplates map[string]*tlv.Template
type templateRegistry struct {
	sync.RWMutex
	templates tlvTemplates
}

var registry = templateRegistry{templates: make(tlvTemplates)}

// Register registers a new TLV template for an object that must be a pointer to struct.
// If name is empty, the struct type name is used. The template matches a TLV of any of the given tags.
// Returns an error in case the template description is incorrect (see tlv.Template for the field tag format).
func Register(obj interface{}, name string, tags ...uint16) error {
	return registry.addNewTemplate(obj, name, tags)
}

// Get returns a TLV template for a given name.
// Note that the template has to be registered prior via Register().
func Get(name string) (*tlv.Template, error) {
	registry.RLock()
	defer registry.RUnlock()

	if len(registry.templates) == 0 {
		return nil, errors.New(errors.KsiInvalidStateError).AppendMessage("TLV templates are not initialized.")
	}
	template, ok := registry.templates[name]
	if !ok {
		return nil, errors.New(errors.KsiInvalidStateError).
			AppendMessage(fmt.Sprintf("TLV Template does not exist for: '%s'.", name))
	}
	return template, nil
}

// GetAll returns a sorted list of registered TLV template names.
func GetAll() []string {
	registry.RLock()
	defer registry.RUnlock()

	if len(registry.templates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(registry.templates))
	for k := range registry.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Decode decodes t into v with the template registered under name.
func Decode(name string, t *tlv.Tlv, v interface{}) error {
	template, err := Get(name)
	if err != nil {
		return err
	}
	return template.Decode(t, v)
}

func (m *templateRegistry) addNewTemplate(obj interface{}, name string, tags []uint16) error {
	if obj == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	t := reflect.TypeOf(obj)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("Unsupported input type: %v.", t)).
			AppendMessage("Only pointer to struct is supported as input.")
	}
	if name == "" {
		name = t.Elem().Name()
	}

	m.Lock()
	defer m.Unlock()

	if _, alreadyExists := m.templates[name]; alreadyExists {
		return errors.New(errors.KsiInvalidStateError).
			AppendMessage(fmt.Sprintf("TLV Template already exists for: '%s'.", name))
	}
	template, err := tlv.NewTemplate(name, obj, tags...)
	if err != nil {
		return errors.KsiErr(err).AppendMessage(fmt.Sprintf("Failed to construct template for: '%s'.", name))
	}
	m.templates[name] = template
	return nil
}
