// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varmatch

import (
	"errors"
	"fmt"
)

// SchemaError reports a required field that is missing from a table,
// or present with a kind that cannot serve the requested purpose.
type SchemaError struct {
	Table string // file name or label, if known
	Field string
	Msg   string
}

func (e *SchemaError) Error() string {
	where := e.Table
	if where == "" {
		where = "table"
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: missing field %q", where, e.Field)
	}
	return fmt.Sprintf("%s: field %q: %s", where, e.Field, e.Msg)
}

// NotFoundError reports a dataset file, registry key or glob pattern
// that does not resolve to anything.
type NotFoundError struct {
	What string // "file", "dataset", ...
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not found: %s: %s", e.What, e.Name, e.Err)
	}
	return fmt.Sprintf("%s not found: %s", e.What, e.Name)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func IsSchemaError(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// withTable fills in the table name of a SchemaError that was raised
// by an in-memory operation, so the caller sees the offending file.
func withTable(err error, name string) error {
	var e *SchemaError
	if errors.As(err, &e) && e.Table == "" {
		e.Table = name
	}
	return err
}
