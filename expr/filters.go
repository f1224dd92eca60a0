// Copyright 2025 AxonFlow
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

package expr

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"axonflow/workflowengine/value"
)

// NowFunc returns the current time in epoch milliseconds; overridable in
// tests so expressions using `now()` stay deterministic.
var NowFunc = func() float64 { return float64(time.Now().UnixMilli()) }

func evalFilterCall(t *FilterCall, ctx map[string]value.Value) (value.Value, error) {
	args := make([]value.Value, len(t.Args))
	for i, a := range t.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if t.Target == nil {
		// Global function, e.g. now().
		switch t.Name {
		case "now":
			return NowFunc(), nil
		}
		return nil, newError(t.Name, "unknown global function", nil)
	}

	target, err := Eval(t.Target, ctx)
	if err != nil {
		return nil, err
	}

	fn, ok := filterTable[t.Name]
	if !ok {
		return nil, newError(t.Name, "unknown filter", nil)
	}
	out, err := fn(target, args)
	if err != nil {
		return nil, newError(t.Name, "filter failed", err)
	}
	return out, nil
}

type filterFunc func(target value.Value, args []value.Value) (value.Value, error)

var filterTable map[string]filterFunc

func init() {
	filterTable = map[string]filterFunc{
		// String
		"split":     fSplit,
		"slugify":   fSlugify,
		"prefix":    fPrefix,
		"suffix":    fSuffix,
		"truncate":  fTruncate,
		"substring": fSubstring,
		"contains":  fContains,
		"upper":     fUpper,
		"lower":     fLower,
		"trim":      fTrim,
		"join":      fJoin,

		// Regex
		"match":        fMatch,
		"notMatch":     fNotMatch,
		"regexReplace": fRegexReplace,

		// Object
		"path":    fPath,
		"keys":    fKeys,
		"values":  fValues,
		"entries": fEntries,
		"pick":    fPick,
		"omit":    fOmit,
		"merge":   fMerge,

		// Sequence
		"nth":     fNth,
		"count":   fCount,
		"sum":     fSum,
		"unique":  fUnique,
		"flatten": fFlatten,
		"first":   fFirst,
		"last":    fLast,

		// Date
		"format_date":   fFormatDate,
		"add_days":      fAddDays,
		"subtract_days": fSubtractDays,
		"diff_days":     fDiffDays,

		// JSON
		"parse_json": fParseJSON,
		"to_json":    fToJSON,

		// Type predicates
		"is_array":  fIsArray,
		"is_object": fIsObject,
		"is_string": fIsString,
		"is_number": fIsNumber,
		"is_empty":  fIsEmptyFilter,
		"is_null":   fIsNull,

		// Logic
		"ternary": fTernary,
		"and":     fAnd,
		"or":      fOr,
		"not":     fNot,
		"default": fDefault,

		// Math
		"round": fRound,
		"floor": fFloor,
		"ceil":  fCeil,
		"min":   fMin,
		"max":   fMax,
	}
}

func argString(args []value.Value, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func argNumber(args []value.Value, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	f, ok := asNumber(args[i])
	return f, ok
}

// --- String filters ---

func fSplit(target value.Value, args []value.Value) (value.Value, error) {
	s, _ := target.(string)
	sep, _ := argString(args, 0)
	parts := strings.Split(s, sep)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func fJoin(target value.Value, args []value.Value) (value.Value, error) {
	seq, ok := target.([]value.Value)
	if !ok {
		return nil, fmt.Errorf("join: target is not a sequence")
	}
	sep, _ := argString(args, 0)
	parts := make([]string, len(seq))
	for i, e := range seq {
		parts[i] = value.AsString(e)
	}
	return strings.Join(parts, sep), nil
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func fSlugify(target value.Value, _ []value.Value) (value.Value, error) {
	s, _ := target.(string)
	s = strings.ToLower(s)
	s = slugNonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-"), nil
}

func fPrefix(target value.Value, args []value.Value) (value.Value, error) {
	s, _ := target.(string)
	p, _ := argString(args, 0)
	return p + s, nil
}

func fSuffix(target value.Value, args []value.Value) (value.Value, error) {
	s, _ := target.(string)
	suf, _ := argString(args, 0)
	return s + suf, nil
}

func fTruncate(target value.Value, args []value.Value) (value.Value, error) {
	s, _ := target.(string)
	n, _ := argNumber(args, 0)
	limit := int(n)
	if len(s) <= limit {
		return s, nil
	}
	if limit < 0 {
		limit = 0
	}
	return s[:limit] + "…", nil
}

func fSubstring(target value.Value, args []value.Value) (value.Value, error) {
	s, _ := target.(string)
	start, _ := argNumber(args, 0)
	end := float64(len(s))
	if len(args) > 1 {
		end, _ = argNumber(args, 1)
	}
	si, ei := clampRange(int(start), int(end), len(s))
	return s[si:ei], nil
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

func fContains(target value.Value, args []value.Value) (value.Value, error) {
	switch t := target.(type) {
	case string:
		sub, _ := argString(args, 0)
		return strings.Contains(t, sub), nil
	case []value.Value:
		if len(args) == 0 {
			return false, nil
		}
		for _, e := range t {
			if value.Equal(e, args[0]) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func fUpper(target value.Value, _ []value.Value) (value.Value, error) {
	s, _ := target.(string)
	return strings.ToUpper(s), nil
}

func fLower(target value.Value, _ []value.Value) (value.Value, error) {
	s, _ := target.(string)
	return strings.ToLower(s), nil
}

func fTrim(target value.Value, _ []value.Value) (value.Value, error) {
	s, _ := target.(string)
	return strings.TrimSpace(s), nil
}

// --- Regex filters: pattern syntax is /pattern/flags ---

func parsePatternLiteral(lit string) (*regexp.Regexp, error) {
	if len(lit) < 2 || lit[0] != '/' {
		return regexp.Compile(lit)
	}
	end := strings.LastIndexByte(lit, '/')
	if end <= 0 {
		return regexp.Compile(lit)
	}
	pattern := lit[1:end]
	flags := lit[end+1:]
	inline := ""
	if strings.Contains(flags, "i") {
		inline += "i"
	}
	if strings.Contains(flags, "s") {
		inline += "s"
	}
	if inline != "" {
		pattern = "(?" + inline + ")" + pattern
	}
	return regexp.Compile(pattern)
}

func fMatch(target value.Value, args []value.Value) (value.Value, error) {
	s, _ := target.(string)
	patStr, _ := argString(args, 0)
	re, err := parsePatternLiteral(patStr)
	if err != nil {
		return nil, err
	}
	groupIdx := 0
	if len(args) > 1 {
		if n, ok := argNumber(args, 1); ok {
			groupIdx = int(n)
		}
	}
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil, nil
	}
	if groupIdx >= len(m) {
		return nil, nil
	}
	return m[groupIdx], nil
}

func fNotMatch(target value.Value, args []value.Value) (value.Value, error) {
	m, err := fMatch(target, args)
	if err != nil {
		return nil, err
	}
	return m == nil, nil
}

func fRegexReplace(target value.Value, args []value.Value) (value.Value, error) {
	s, _ := target.(string)
	patStr, _ := argString(args, 0)
	repl, _ := argString(args, 1)
	re, err := parsePatternLiteral(patStr)
	if err != nil {
		return nil, err
	}
	return re.ReplaceAllString(s, repl), nil
}

// --- Object filters ---

func fPath(target value.Value, args []value.Value) (value.Value, error) {
	p, _ := argString(args, 0)
	return value.Get(target, p), nil
}

func fKeys(target value.Value, _ []value.Value) (value.Value, error) {
	m, ok := target.(map[string]value.Value)
	if !ok {
		return []value.Value{}, nil
	}
	keys := value.SortedKeys(m)
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out, nil
}

func fValues(target value.Value, _ []value.Value) (value.Value, error) {
	m, ok := target.(map[string]value.Value)
	if !ok {
		return []value.Value{}, nil
	}
	keys := value.SortedKeys(m)
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out, nil
}

func fEntries(target value.Value, _ []value.Value) (value.Value, error) {
	m, ok := target.(map[string]value.Value)
	if !ok {
		return []value.Value{}, nil
	}
	keys := value.SortedKeys(m)
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = map[string]value.Value{"key": k, "value": m[k]}
	}
	return out, nil
}

func fPick(target value.Value, args []value.Value) (value.Value, error) {
	m, ok := target.(map[string]value.Value)
	if !ok {
		return map[string]value.Value{}, nil
	}
	out := map[string]value.Value{}
	for _, a := range args {
		if k, ok := a.(string); ok {
			if v, exists := m[k]; exists {
				out[k] = v
			}
		}
	}
	return out, nil
}

func fOmit(target value.Value, args []value.Value) (value.Value, error) {
	m, ok := target.(map[string]value.Value)
	if !ok {
		return map[string]value.Value{}, nil
	}
	omitSet := map[string]bool{}
	for _, a := range args {
		if k, ok := a.(string); ok {
			omitSet[k] = true
		}
	}
	out := map[string]value.Value{}
	for k, v := range m {
		if !omitSet[k] {
			out[k] = v
		}
	}
	return out, nil
}

func fMerge(target value.Value, args []value.Value) (value.Value, error) {
	m, ok := target.(map[string]value.Value)
	if !ok {
		m = map[string]value.Value{}
	}
	out := map[string]value.Value{}
	for k, v := range m {
		out[k] = v
	}
	if len(args) > 0 {
		if other, ok := args[0].(map[string]value.Value); ok {
			for k, v := range other {
				out[k] = v
			}
		}
	}
	return out, nil
}

// --- Sequence filters ---

func fNth(target value.Value, args []value.Value) (value.Value, error) {
	seq, ok := target.([]value.Value)
	if !ok {
		return nil, nil
	}
	n, _ := argNumber(args, 0)
	i := int(n)
	if i < 0 || i >= len(seq) {
		return nil, nil
	}
	return seq[i], nil
}

func fCount(target value.Value, _ []value.Value) (value.Value, error) {
	switch t := target.(type) {
	case []value.Value:
		return float64(len(t)), nil
	case map[string]value.Value:
		return float64(len(t)), nil
	case string:
		return float64(len(t)), nil
	default:
		return float64(0), nil
	}
}

func fSum(target value.Value, _ []value.Value) (value.Value, error) {
	seq, ok := target.([]value.Value)
	if !ok {
		return float64(0), nil
	}
	total := 0.0
	for _, e := range seq {
		if f, ok := asNumber(e); ok {
			total += f
		}
	}
	return total, nil
}

func fUnique(target value.Value, _ []value.Value) (value.Value, error) {
	seq, ok := target.([]value.Value)
	if !ok {
		return []value.Value{}, nil
	}
	var out []value.Value
	for _, e := range seq {
		dup := false
		for _, o := range out {
			if value.Equal(e, o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	if out == nil {
		out = []value.Value{}
	}
	return out, nil
}

func fFlatten(target value.Value, _ []value.Value) (value.Value, error) {
	seq, ok := target.([]value.Value)
	if !ok {
		return []value.Value{}, nil
	}
	var out []value.Value
	for _, e := range seq {
		if inner, ok := e.([]value.Value); ok {
			out = append(out, inner...)
		} else {
			out = append(out, e)
		}
	}
	if out == nil {
		out = []value.Value{}
	}
	return out, nil
}

func fFirst(target value.Value, _ []value.Value) (value.Value, error) {
	seq, ok := target.([]value.Value)
	if !ok || len(seq) == 0 {
		return nil, nil
	}
	return seq[0], nil
}

func fLast(target value.Value, _ []value.Value) (value.Value, error) {
	seq, ok := target.([]value.Value)
	if !ok || len(seq) == 0 {
		return nil, nil
	}
	return seq[len(seq)-1], nil
}

// --- Date filters: values are epoch-ms integers ---

func epochMsToTime(v value.Value) (time.Time, bool) {
	f, ok := asNumber(v)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(f)).UTC(), true
}

var dateTokenRepl = strings.NewReplacer(
	"YYYY", "2006",
	"MM", "01",
	"DD", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
)

func fFormatDate(target value.Value, args []value.Value) (value.Value, error) {
	t, ok := epochMsToTime(target)
	if !ok {
		return nil, fmt.Errorf("format_date: target is not an epoch-ms number")
	}
	layout, _ := argString(args, 0)
	goLayout := dateTokenRepl.Replace(layout)
	return t.Format(goLayout), nil
}

func fAddDays(target value.Value, args []value.Value) (value.Value, error) {
	t, ok := epochMsToTime(target)
	if !ok {
		return nil, fmt.Errorf("add_days: target is not an epoch-ms number")
	}
	n, _ := argNumber(args, 0)
	return float64(t.AddDate(0, 0, int(n)).UnixMilli()), nil
}

func fSubtractDays(target value.Value, args []value.Value) (value.Value, error) {
	t, ok := epochMsToTime(target)
	if !ok {
		return nil, fmt.Errorf("subtract_days: target is not an epoch-ms number")
	}
	n, _ := argNumber(args, 0)
	return float64(t.AddDate(0, 0, -int(n)).UnixMilli()), nil
}

func fDiffDays(target value.Value, args []value.Value) (value.Value, error) {
	t, ok := epochMsToTime(target)
	if !ok {
		return nil, fmt.Errorf("diff_days: target is not an epoch-ms number")
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("diff_days: missing comparison argument")
	}
	other, ok := epochMsToTime(args[0])
	if !ok {
		return nil, fmt.Errorf("diff_days: argument is not an epoch-ms number")
	}
	return float64(int(t.Sub(other).Hours() / 24)), nil
}

// --- JSON filters ---

func fParseJSON(target value.Value, _ []value.Value) (value.Value, error) {
	s, ok := target.(string)
	if !ok {
		return nil, fmt.Errorf("parse_json: target is not a string")
	}
	return value.FromJSON(s)
}

func fToJSON(target value.Value, _ []value.Value) (value.Value, error) {
	return value.ToJSON(target)
}

// --- Type predicates ---

func fIsArray(target value.Value, _ []value.Value) (value.Value, error) {
	_, ok := target.([]value.Value)
	return ok, nil
}

func fIsObject(target value.Value, _ []value.Value) (value.Value, error) {
	_, ok := target.(map[string]value.Value)
	return ok, nil
}

func fIsString(target value.Value, _ []value.Value) (value.Value, error) {
	_, ok := target.(string)
	return ok, nil
}

func fIsNumber(target value.Value, _ []value.Value) (value.Value, error) {
	_, ok := asNumber(target)
	return ok, nil
}

func fIsEmptyFilter(target value.Value, _ []value.Value) (value.Value, error) {
	return value.IsEmpty(target), nil
}

func fIsNull(target value.Value, _ []value.Value) (value.Value, error) {
	return value.IsNull(target), nil
}

// --- Logic filters ---

func fTernary(target value.Value, args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("ternary: requires two arguments")
	}
	if value.Truthy(target) {
		return args[0], nil
	}
	return args[1], nil
}

func fAnd(target value.Value, args []value.Value) (value.Value, error) {
	if !value.Truthy(target) {
		return false, nil
	}
	if len(args) == 0 {
		return true, nil
	}
	return value.Truthy(args[0]), nil
}

func fOr(target value.Value, args []value.Value) (value.Value, error) {
	if value.Truthy(target) {
		return true, nil
	}
	if len(args) == 0 {
		return false, nil
	}
	return value.Truthy(args[0]), nil
}

func fNot(target value.Value, _ []value.Value) (value.Value, error) {
	return !value.Truthy(target), nil
}

func fDefault(target value.Value, args []value.Value) (value.Value, error) {
	if value.IsNull(target) {
		if len(args) > 0 {
			return args[0], nil
		}
		return nil, nil
	}
	return target, nil
}

// --- Math filters ---

func fRound(target value.Value, args []value.Value) (value.Value, error) {
	f, ok := asNumber(target)
	if !ok {
		return nil, fmt.Errorf("round: target is not a number")
	}
	digits := 0
	if len(args) > 0 {
		if n, ok := argNumber(args, 0); ok {
			digits = int(n)
		}
	}
	mult := math.Pow(10, float64(digits))
	return math.Round(f*mult) / mult, nil
}

func fFloor(target value.Value, _ []value.Value) (value.Value, error) {
	f, ok := asNumber(target)
	if !ok {
		return nil, fmt.Errorf("floor: target is not a number")
	}
	return math.Floor(f), nil
}

func fCeil(target value.Value, _ []value.Value) (value.Value, error) {
	f, ok := asNumber(target)
	if !ok {
		return nil, fmt.Errorf("ceil: target is not a number")
	}
	return math.Ceil(f), nil
}

func fMin(target value.Value, args []value.Value) (value.Value, error) {
	nums, err := numericOperands(target, args)
	if err != nil {
		return nil, err
	}
	sort.Float64s(nums)
	return nums[0], nil
}

func fMax(target value.Value, args []value.Value) (value.Value, error) {
	nums, err := numericOperands(target, args)
	if err != nil {
		return nil, err
	}
	sort.Float64s(nums)
	return nums[len(nums)-1], nil
}

func numericOperands(target value.Value, args []value.Value) ([]float64, error) {
	var nums []float64
	if seq, ok := target.([]value.Value); ok {
		for _, e := range seq {
			f, ok := asNumber(e)
			if !ok {
				return nil, fmt.Errorf("min/max: sequence element is not a number")
			}
			nums = append(nums, f)
		}
	} else if f, ok := asNumber(target); ok {
		nums = append(nums, f)
	}
	for _, a := range args {
		f, ok := asNumber(a)
		if !ok {
			return nil, fmt.Errorf("min/max: argument is not a number")
		}
		nums = append(nums, f)
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("min/max: no numeric operands")
	}
	return nums, nil
}
