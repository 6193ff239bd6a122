// Extensions to the go-check unittest framework.
//
// NOTE: see https://github.com/go-check/check/pull/6 for reasons why these
// checkers live here.
package gocheck2

import (
	"fmt"
	"reflect"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
	. "gopkg.in/check.v1"
)

// -----------------------------------------------------------------------
// IsTrue / IsFalse checker.

type isBoolValueChecker struct {
	*CheckerInfo
	expected bool
}

func (checker *isBoolValueChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	obtained, ok := params[0].(bool)
	if !ok {
		return false, "Argument to " + checker.Name + " must be bool"
	}

	return obtained == checker.expected, ""
}

// The IsTrue checker verifies that the obtained value is true.
//
// For example:
//
//     c.Assert(value, IsTrue)
//
var IsTrue Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"obtained"}},
	true,
}

// The IsFalse checker verifies that the obtained value is false.
//
// For example:
//
//     c.Assert(value, IsFalse)
//
var IsFalse Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"obtained"}},
	false,
}

// -----------------------------------------------------------------------
// DeepEqualsPretty checker.

type deepEqualsChecker struct {
	*CheckerInfo
}

func (checker *deepEqualsChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	if reflect.DeepEqual(params[0], params[1]) {
		return true, ""
	}

	obtainedDump := spew.Sdump(params[0])
	expectedDump := spew.Sdump(params[1])

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expectedDump),
		B:        difflib.SplitLines(obtainedDump),
		FromFile: "expected",
		ToFile:   "obtained",
		Context:  3,
	})
	if err != nil {
		return false, fmt.Sprintf("failed to diff values: %v", err)
	}
	return false, "Difference:\n" + diff
}

// The DeepEqualsPretty checker verifies that the obtained value is deep-equal
// to the expected value, and renders a unified diff of the two values when
// they differ.  Prefer this over DeepEquals for large nested structures.
//
// For example:
//
//     c.Assert(value, DeepEqualsPretty, expected)
//
var DeepEqualsPretty Checker = &deepEqualsChecker{
	&CheckerInfo{
		Name:   "DeepEqualsPretty",
		Params: []string{"obtained", "expected"},
	},
}

// -----------------------------------------------------------------------
// HasKey checker.

type hasKeyChecker struct {
	*CheckerInfo
}

func (checker *hasKeyChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	switch m := params[0].(type) {
	case map[string]struct{}:
		key, ok := params[1].(string)
		if !ok {
			return false, "Key must be a string"
		}
		_, found := m[key]
		return found, ""
	case map[string]string:
		key, ok := params[1].(string)
		if !ok {
			return false, "Key must be a string"
		}
		_, found := m[key]
		return found, ""
	default:
		return false, fmt.Sprintf("Unsupported map type %T", params[0])
	}
}

// The HasKey checker verifies that the obtained map contains the given key.
//
// For example:
//
//     c.Assert(myMap, HasKey, "foo")
//
var HasKey Checker = &hasKeyChecker{
	&CheckerInfo{Name: "HasKey", Params: []string{"obtained", "key"}},
}
