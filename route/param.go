// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package route

import (
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sosodev/duration"
)

// ParamType is the declared type of a path parameter.
type ParamType uint8

const (
	TypeString ParamType = iota
	TypeInt
	TypeFloat
	TypeUUID
	TypeDecimal
	TypeDate     // full-date, 2006-01-02
	TypeDateTime // RFC 3339 date-time, zone optional
	TypeTime     // 15:04:05 with optional fraction and zone
	TypeTimeDelta
	TypePath // catch-all, must be last
)

// typeTags maps template type tags to parameter types.
var typeTags = map[string]ParamType{
	"str":       TypeString,
	"string":    TypeString,
	"int":       TypeInt,
	"integer":   TypeInt,
	"float":     TypeFloat,
	"uuid":      TypeUUID,
	"decimal":   TypeDecimal,
	"date":      TypeDate,
	"datetime":  TypeDateTime,
	"time":      TypeTime,
	"timedelta": TypeTimeDelta,
	"path":      TypePath,
}

var typeNames = [...]string{
	TypeString:    "str",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeUUID:      "uuid",
	TypeDecimal:   "decimal",
	TypeDate:      "date",
	TypeDateTime:  "datetime",
	TypeTime:      "time",
	TypeTimeDelta: "timedelta",
	TypePath:      "path",
}

// LookupType returns the parameter type for a template type tag.
func LookupType(tag string) (ParamType, bool) {
	t, ok := typeTags[tag]
	return t, ok
}

// String returns the canonical type tag.
func (t ParamType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

// OpenAPI returns the OpenAPI schema type and format for the parameter type.
func (t ParamType) OpenAPI() (typ, format string) {
	switch t {
	case TypeInt:
		return "integer", "int64"
	case TypeFloat:
		return "number", "double"
	case TypeUUID:
		return "string", "uuid"
	case TypeDecimal:
		return "number", ""
	case TypeDate:
		return "string", "date"
	case TypeDateTime:
		return "string", "date-time"
	case TypeTime:
		return "string", "time"
	case TypeTimeDelta:
		return "string", "duration"
	default:
		return "string", ""
	}
}

var (
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999",
	}
	timeLayouts = []string{
		"15:04:05.999999999Z07:00",
		"15:04:05.999999999",
		"15:04Z07:00",
		"15:04",
	}
)

// Parse converts a raw path value into the Go value for the type.
//
// Returned types: string (str, path), int64, float64, uuid.UUID,
// decimal.Decimal, time.Time (date, datetime, time) and time.Duration.
// Failures wrap ErrInvalidParam.
func (t ParamType) Parse(raw string) (any, error) {
	switch t {
	case TypeString:
		return raw, nil
	case TypePath:
		return path.Clean("/" + raw), nil
	case TypeInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalidParam(t, raw)
		}
		return v, nil
	case TypeFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, invalidParam(t, raw)
		}
		return v, nil
	case TypeUUID:
		v, err := uuid.Parse(raw)
		if err != nil {
			return nil, invalidParam(t, raw)
		}
		return v, nil
	case TypeDecimal:
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, invalidParam(t, raw)
		}
		return v, nil
	case TypeDate:
		v, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, invalidParam(t, raw)
		}
		return v, nil
	case TypeDateTime:
		return parseLayouts(t, raw, dateTimeLayouts)
	case TypeTime:
		return parseLayouts(t, raw, timeLayouts)
	case TypeTimeDelta:
		return parseTimeDelta(raw)
	}
	return nil, invalidParam(t, raw)
}

func parseLayouts(t ParamType, raw string, layouts []string) (any, error) {
	for _, layout := range layouts {
		if v, err := time.Parse(layout, raw); err == nil {
			return v, nil
		}
	}
	return nil, invalidParam(t, raw)
}

// parseTimeDelta accepts ISO 8601 durations (P1DT2H), Go durations (1h30m)
// and plain seconds, truncated to whole seconds.
func parseTimeDelta(raw string) (any, error) {
	if d, err := duration.Parse(raw); err == nil {
		return d.ToTimeDuration(), nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(int64(secs)) * time.Second, nil
	}
	return nil, invalidParam(TypeTimeDelta, raw)
}

func invalidParam(t ParamType, raw string) error {
	return fmt.Errorf("%w: %q is not a valid %s", ErrInvalidParam, raw, t)
}
