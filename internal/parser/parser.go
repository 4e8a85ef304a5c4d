// Package parser turns loosely-typed JSON payloads from the host into core
// values. Every parser is tolerant: a field that cannot be read keeps its
// previous or default value and never fails the surrounding payload.
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/gearxr/gear/pkg/core"
)

// Parser converts raw payloads, logging the fields it had to skip.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// FieldError names a field that was skipped during a tolerant parse.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e FieldError) Unwrap() error { return e.Err }

// parseNumber accepts a JSON number or a numeric string.
func parseNumber(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not finite")
		}
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(raw))
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return f, nil
}

// parseIntFromFloat accepts integers written as JSON numbers, floats with no
// fractional part, or numeric strings.
func parseIntFromFloat(raw json.RawMessage) (int, error) {
	f, err := parseNumber(raw)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("parseIntFromFloat: %v is not an integer", f)
	}
	return int(f), nil
}

// readXYZ fills the three axes from an object that uses either plain keys
// (x, y, z) or the underscored keys of a serialized Euler (_x, _y, _z).
func readXYZ(raw string, into [3]*float64) []error {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []error{FieldError{Field: "*", Err: fmt.Errorf("empty payload")}}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return []error{FieldError{Field: "*", Err: err}}
	}

	var errs []error
	for i, key := range [3]string{"x", "y", "z"} {
		v, ok := obj[key]
		if !ok {
			v, ok = obj["_"+key]
		}
		if !ok {
			errs = append(errs, FieldError{Field: key, Err: fmt.Errorf("missing")})
			continue
		}
		f, err := parseNumber(v)
		if err != nil {
			errs = append(errs, FieldError{Field: key, Err: err})
			continue
		}
		*into[i] = f
	}
	return errs
}

// ParseVec3 reads a position, starting from last and overwriting only the
// axes that parse.
func (p *Parser) ParseVec3(raw string, last core.Vec3) (core.Vec3, []error) {
	v := last
	errs := readXYZ(raw, [3]*float64{&v.X, &v.Y, &v.Z})
	if len(errs) > 0 {
		p.logger.Debug("Skipped position fields", "payload", raw, "errors", errs)
	}
	return v, errs
}

// ParseEuler reads a rotation the same way as ParseVec3.
func (p *Parser) ParseEuler(raw string, last core.Euler) (core.Euler, []error) {
	e := last
	errs := readXYZ(raw, [3]*float64{&e.X, &e.Y, &e.Z})
	if len(errs) > 0 {
		p.logger.Debug("Skipped rotation fields", "payload", raw, "errors", errs)
	}
	return e, errs
}

// ParsePose reads both halves of a participant pose independently.
func (p *Parser) ParsePose(position, rotation string, last core.Pose) core.Pose {
	pose := last
	pose.Position, _ = p.ParseVec3(position, last.Position)
	pose.Rotation, _ = p.ParseEuler(rotation, last.Rotation)
	return pose
}
