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

package tlv

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unsafe"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
)

/*
Template describes how the children of a composite TLV map onto the fields of a Go struct.

Template is compiled from the struct field tags. Only tagged fields take part in decoding, and the fields may be
unexported. The tag format is:

	tlv:"<tags>,<type>,[count],[position],[group],[!group],[&group]"

Where:
	tags     - One or more hexadecimal TLV types separated by '|'. All listed types are collected into the same field.
	type     - Value type of the element:
	             int    - unsigned integer (*uint64, or []uint64 for a list);
	             int8   - unsigned integer in range [0..0xff] (*uint64, or []uint64);
	             imp    - data hash imprint (*hash.DataHash, or []hash.DataHash);
	             utf8   - null terminated UTF-8 string (*string, or []string);
	             bin    - raw octets ([]byte, or [][]byte);
	             tlvobj - the element itself (*tlv.Tlv, or []*tlv.Tlv);
	             nstd   - nested structure with its own template (*T, or []*T).
	count    - Expected element count:
	             C0_1 - zero or one (default for a single value);
	             C0_N - zero or more (default for a list);
	             C1_N - one or more;
	             C<n> - exactly n.
	position - Position of the element within its parent:
	             IF - first;
	             IL - last;
	             IW - anywhere (default).
	group    - G<n> marks the element as a member of group n.
	!group   - !G<n> rejects the element if any member of group n is present.
	&group   - &G<n> rejects the element if no member of group n is present.

The special tag tlv:"basetlv" stores the decoded TLV itself into a *tlv.Tlv field.

Unknown child elements are skipped if they are non-critical, otherwise the whole structure is rejected.
*/
type Template struct {
	path   string
	tags   []uint16
	typ    reflect.Type
	fields []*fieldTemplate
	base   *fieldTemplate
}

type valueType int

const (
	vtInt valueType = iota
	vtInt8
	vtImprint
	vtUtf8
	vtBin
	vtTlvObj
	vtNested
)

var valueTypes = map[string]valueType{
	"int":    vtInt,
	"int8":   vtInt8,
	"imp":    vtImprint,
	"utf8":   vtUtf8,
	"bin":    vtBin,
	"tlvobj": vtTlvObj,
	"nstd":   vtNested,
}

type templateCount int

const (
	count0_1 = templateCount(-3)
	count0_N = templateCount(-2)
	count1_N = templateCount(-1)
)

type templatePosition int

const (
	posWhatever templatePosition = iota
	posFirst
	posLast
)

type templateGroup int

const groupNone = templateGroup(-1)

type fieldTemplate struct {
	name     string
	index    int
	ftype    reflect.Type
	tags     []uint16
	vt       valueType
	list     bool
	count    templateCount
	pos      templatePosition
	group    templateGroup
	conflict []templateGroup
	depend   []templateGroup
	nested   *Template
}

var (
	typeUint64 = reflect.TypeOf(uint64(0))
	typeHash   = reflect.TypeOf(hash.DataHash{})
	typeString = reflect.TypeOf("")
	typeBytes  = reflect.TypeOf([]byte(nil))
	typeTlv    = reflect.TypeOf((*Tlv)(nil))
)

// NewTemplate compiles the template of the struct obj points to. The template matches a TLV of any of the tags.
// The path is used in error messages to identify the structure.
func NewTemplate(path string, obj interface{}, tags ...uint16) (*Template, error) {
	if obj == nil || len(tags) == 0 {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	t := reflect.TypeOf(obj)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, errors.New(errors.KsiInvalidArgumentError).
			AppendMessage(fmt.Sprintf("Template object must be a pointer to struct, got %s.", t))
	}
	return compile(path, t.Elem(), tags)
}

func compile(path string, typ reflect.Type, tags []uint16) (*Template, error) {
	for _, tag := range tags {
		if tag > MaxTagValue {
			return nil, errors.New(errors.KsiInvalidArgumentError).
				AppendMessage(fmt.Sprintf("Template %s tag [%x] is out of range.", path, tag))
		}
	}

	tmpl := &Template{path: path, tags: tags, typ: typ}
	seen := make(map[uint16]string)
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		spec, ok := sf.Tag.Lookup("tlv")
		if !ok {
			continue
		}
		if spec == "basetlv" {
			if sf.Type != typeTlv || tmpl.base != nil {
				return nil, templateError(path, sf.Name, "basetlv must be a single *tlv.Tlv field")
			}
			tmpl.base = &fieldTemplate{name: sf.Name, index: i, ftype: sf.Type}
			continue
		}

		f, err := parseFieldTag(spec)
		if err != nil {
			return nil, templateError(path, sf.Name, err.Error())
		}
		f.name, f.index, f.ftype = sf.Name, i, sf.Type
		if err := f.bindType(path); err != nil {
			return nil, err
		}
		for _, tag := range f.tags {
			if other, dup := seen[tag]; dup {
				return nil, templateError(path, sf.Name, fmt.Sprintf("tag [%x] is already bound to %s", tag, other))
			}
			seen[tag] = sf.Name
		}
		tmpl.fields = append(tmpl.fields, f)
	}
	if len(tmpl.fields) == 0 && tmpl.base == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError).
			AppendMessage(fmt.Sprintf("Template %s has no tagged fields.", path))
	}
	return tmpl, nil
}

func templateError(path, field, msg string) error {
	return errors.New(errors.KsiInvalidArgumentError).
		AppendMessage(fmt.Sprintf("Invalid template %s.%s: %s.", path, field, msg))
}

func parseFieldTag(spec string) (*fieldTemplate, error) {
	parts := strings.Split(spec, ",")
	if len(parts) < 2 {
		return nil, fmt.Errorf("tags and type are mandatory")
	}

	f := &fieldTemplate{count: count0_1, pos: posWhatever, group: groupNone}
	for _, s := range strings.Split(parts[0], "|") {
		tag, err := strconv.ParseUint(s, 16, 16)
		if err != nil || tag > MaxTagValue {
			return nil, fmt.Errorf("invalid tag %q", s)
		}
		f.tags = append(f.tags, uint16(tag))
	}
	vt, ok := valueTypes[parts[1]]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", parts[1])
	}
	f.vt = vt

	for _, opt := range parts[2:] {
		var err error
		switch {
		case opt == "C0_1":
			f.count = count0_1
		case opt == "C0_N":
			f.count = count0_N
		case opt == "C1_N":
			f.count = count1_N
		case strings.HasPrefix(opt, "C"):
			var n int
			if n, err = strconv.Atoi(opt[1:]); err == nil && n < 1 {
				err = fmt.Errorf("count must be positive")
			}
			f.count = templateCount(n)
		case opt == "IF":
			f.pos = posFirst
		case opt == "IL":
			f.pos = posLast
		case opt == "IW":
			f.pos = posWhatever
		case strings.HasPrefix(opt, "!G"):
			var g templateGroup
			if g, err = parseGroup(opt[2:]); err == nil {
				f.conflict = append(f.conflict, g)
			}
		case strings.HasPrefix(opt, "&G"):
			var g templateGroup
			if g, err = parseGroup(opt[2:]); err == nil {
				f.depend = append(f.depend, g)
			}
		case strings.HasPrefix(opt, "G"):
			f.group, err = parseGroup(opt[1:])
		default:
			err = fmt.Errorf("unknown option")
		}
		if err != nil {
			return nil, fmt.Errorf("invalid option %q", opt)
		}
	}
	return f, nil
}

func parseGroup(s string) (templateGroup, error) {
	g, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return groupNone, err
	}
	return templateGroup(g), nil
}

// bindType resolves whether the field holds a single value or a list and checks the Go type against the value type.
func (f *fieldTemplate) bindType(path string) error {
	var elem reflect.Type
	switch f.vt {
	case vtInt, vtInt8:
		elem = typeUint64
	case vtImprint:
		elem = typeHash
	case vtUtf8:
		elem = typeString
	case vtBin:
		elem = typeBytes
	case vtTlvObj:
		elem = typeTlv
	case vtNested:
		elem = f.ftype
		if elem.Kind() == reflect.Slice {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Ptr || elem.Elem().Kind() != reflect.Struct {
			return templateError(path, f.name, "nstd must be a pointer to struct")
		}
	}

	switch {
	case f.ftype.Kind() == reflect.Slice && f.ftype.Elem() == elem:
		f.list = true
	case f.vt == vtInt || f.vt == vtInt8 || f.vt == vtImprint || f.vt == vtUtf8:
		if f.ftype != reflect.PointerTo(elem) {
			return templateError(path, f.name, fmt.Sprintf("expected *%s or []%s, got %s", elem, elem, f.ftype))
		}
		f.list = false
	case f.ftype == elem:
		f.list = false
	default:
		return templateError(path, f.name, fmt.Sprintf("expected %s or []%s, got %s", elem, elem, f.ftype))
	}

	if !f.list && (f.count == count0_N || f.count == count1_N || f.count > 1) {
		return templateError(path, f.name, "a single value field can not hold several elements")
	}
	if f.list && f.count == count0_1 {
		f.count = count0_N
	}
	if f.vt == vtNested {
		nested, err := compile(path+"."+f.name, elem.Elem(), f.tags)
		if err != nil {
			return err
		}
		f.nested = nested
	}
	return nil
}

func (f *fieldTemplate) mandatory() bool {
	return f.count == count1_N || f.count > 0
}

// Decode decodes t into the struct v points to. v must be a pointer to the struct type the template was compiled for.
func (tmpl *Template) Decode(t *Tlv, v interface{}) error {
	if tmpl == nil || t == nil || v == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != reflect.PointerTo(tmpl.typ) || rv.IsNil() {
		return errors.New(errors.KsiInvalidArgumentError).
			AppendMessage(fmt.Sprintf("Template %s can not decode into %T.", tmpl.path, v))
	}
	if !tmpl.Matches(t.Tag) {
		return errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("TLV type mismatch: expected %s, got [%x].", tagList(tmpl.tags), t.Tag))
	}
	return tmpl.decode(t, rv.Elem())
}

// Matches returns true if the template decodes elements of the given type.
func (tmpl *Template) Matches(tag uint16) bool {
	for _, t := range tmpl.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Path returns the name the template was registered with.
func (tmpl *Template) Path() string {
	return tmpl.path
}

func (tmpl *Template) decode(t *Tlv, sv reflect.Value) error {
	children, err := t.Children()
	if err != nil {
		return errors.KsiErr(err).AppendMessage(fmt.Sprintf("Failed to decode %s.", tmpl.path))
	}

	counts := make([]int, len(tmpl.fields))
	for i, c := range children {
		fi := tmpl.fieldOf(c.Tag)
		if fi < 0 {
			if !c.NonCritical {
				return errors.New(errors.KsiInvalidFormatError).
					AppendMessage(fmt.Sprintf("Unknown critical TLV element [%x] in [%x].", c.Tag, t.Tag))
			}
			log.Debug(fmt.Sprintf("Ignoring unknown non-critical TLV element [%x] in [%x].", c.Tag, t.Tag))
			continue
		}

		f := tmpl.fields[fi]
		if (f.pos == posFirst && i != 0) || (f.pos == posLast && i != len(children)-1) {
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("TLV element [%x] at unexpected position %d in [%x].", c.Tag, i, t.Tag))
		}
		if !f.list && counts[fi] > 0 {
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Multiple [%x] elements in [%x].", c.Tag, t.Tag))
		}
		counts[fi]++

		val, err := f.value(c)
		if err != nil {
			return err
		}
		fv := fieldValue(sv, f)
		if f.list {
			fv.Set(reflect.Append(fv, val))
		} else {
			fv.Set(val)
		}
	}
	if tmpl.base != nil {
		fieldValue(sv, tmpl.base).Set(reflect.ValueOf(t))
	}
	return tmpl.check(t.Tag, counts)
}

func (tmpl *Template) fieldOf(tag uint16) int {
	for i, f := range tmpl.fields {
		for _, ft := range f.tags {
			if ft == tag {
				return i
			}
		}
	}
	return -1
}

// check verifies the element counts and the group constraints once all children are decoded.
func (tmpl *Template) check(parent uint16, counts []int) error {
	present := make(map[templateGroup]bool)
	for i, f := range tmpl.fields {
		n := counts[i]
		switch {
		case n == 0 && f.mandatory():
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Mandatory TLV element %s missing in [%x].", tagList(f.tags), parent))
		case f.count > 0 && n != int(f.count):
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Expected %d %s elements in [%x], got %d.", f.count, tagList(f.tags), parent, n))
		}
		if n > 0 && f.group != groupNone {
			present[f.group] = true
		}
	}

	for i, f := range tmpl.fields {
		if counts[i] == 0 {
			continue
		}
		for _, g := range f.conflict {
			if present[g] {
				return errors.New(errors.KsiInvalidFormatError).
					AppendMessage(fmt.Sprintf("TLV element %s and group %d elements can not coexist in [%x].",
						tagList(f.tags), g, parent))
			}
		}
		for _, g := range f.depend {
			if !present[g] {
				return errors.New(errors.KsiInvalidFormatError).
					AppendMessage(fmt.Sprintf("TLV element %s requires group %d elements in [%x].",
						tagList(f.tags), g, parent))
			}
		}
	}
	return nil
}

// value decodes a single child. The result has the field type for single values and the element type for lists.
func (f *fieldTemplate) value(c *Tlv) (reflect.Value, error) {
	switch f.vt {
	case vtInt, vtInt8:
		u, err := c.Uint64()
		if err != nil {
			return reflect.Value{}, err
		}
		if f.vt == vtInt8 && u > 0xff {
			return reflect.Value{}, errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("TLV element [%x] value does not fit into 8 bits.", c.Tag))
		}
		if f.list {
			return reflect.ValueOf(u), nil
		}
		return reflect.ValueOf(&u), nil
	case vtImprint:
		h, err := c.DataHash()
		if err != nil {
			return reflect.Value{}, err
		}
		if f.list {
			return reflect.ValueOf(h), nil
		}
		return reflect.ValueOf(&h), nil
	case vtUtf8:
		s, err := c.Utf8()
		if err != nil {
			return reflect.Value{}, err
		}
		if f.list {
			return reflect.ValueOf(s), nil
		}
		return reflect.ValueOf(&s), nil
	case vtBin:
		return reflect.ValueOf(c.Value()), nil
	case vtTlvObj:
		return reflect.ValueOf(c), nil
	default:
		nv := reflect.New(f.nested.typ)
		if err := f.nested.decode(c, nv.Elem()); err != nil {
			return reflect.Value{}, err
		}
		return nv, nil
	}
}

// fieldValue returns a settable view of the field, unexported fields included.
func fieldValue(sv reflect.Value, f *fieldTemplate) reflect.Value {
	return reflect.NewAt(f.ftype, unsafe.Pointer(sv.Field(f.index).UnsafeAddr())).Elem()
}

func tagList(tags []uint16) string {
	s := make([]string, len(tags))
	for i, t := range tags {
		s[i] = strconv.FormatUint(uint64(t), 16)
	}
	return "[" + strings.Join(s, "|") + "]"
}
