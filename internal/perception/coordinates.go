package perception

import (
	"fmt"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"math"
	"regexp"
	"strings"
)

var numpyPrefix = regexp.MustCompile(`\b(?:np|numpy)\.`)

// predeclared covers the numpy reprs the parser service emits, e.g.
// array([0.1, 0.2, 0.3, 0.4], dtype=float32) or np.float32(0.1).
var predeclared = starlark.StringDict{
	"array":   starlark.NewBuiltin("array", arrayBuiltin),
	"float16": starlark.NewBuiltin("float16", floatBuiltin),
	"float32": starlark.NewBuiltin("float32", floatBuiltin),
	"float64": starlark.NewBuiltin("float64", floatBuiltin),
}

func arrayBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing data", fn.Name())
	}
	return args[0], nil
}

func floatBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s: want 1 argument, got %d", fn.Name(), len(args))
	}
	f, ok := starlark.AsFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: not a number: %s", fn.Name(), args[0].Type())
	}
	return starlark.Float(f), nil
}

// ParseCoordinates evaluates a Python-style dict literal such as {'0': (0.1, 0.2, 0.3, 0.4)}
// into an element map. Keys may be strings or integers; values are four numbers, possibly
// nested one level or wrapped in numpy array reprs.
func ParseCoordinates(literal string) (ElementMap, error) {
	src := strings.TrimSpace(literal)
	if src == "" {
		return nil, &MalformedCoordinatesError{Literal: literal, Err: fmt.Errorf("empty")}
	}
	src = numpyPrefix.ReplaceAllString(src, "")

	thread := &starlark.Thread{Name: "coordinates"}
	v, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "coordinates", src, predeclared)
	if err != nil {
		return nil, &MalformedCoordinatesError{Literal: literal, Err: err}
	}
	dict, ok := v.(*starlark.Dict)
	if !ok {
		return nil, &MalformedCoordinatesError{Literal: literal, Err: fmt.Errorf("got %s, want dict", v.Type())}
	}

	elements := make(ElementMap, dict.Len())
	for _, item := range dict.Items() {
		id, err := elementID(item[0])
		if err != nil {
			return nil, &MalformedCoordinatesError{Literal: literal, Err: err}
		}
		box, err := toBox(item[1])
		if err != nil {
			return nil, &MalformedCoordinatesError{Literal: literal, Err: fmt.Errorf("element %s: %w", id, err)}
		}
		elements[id] = box
	}
	return elements, nil
}

func elementID(v starlark.Value) (string, error) {
	switch k := v.(type) {
	case starlark.String:
		return strings.TrimSpace(string(k)), nil
	case starlark.Int:
		return k.String(), nil
	default:
		return "", fmt.Errorf("unsupported key type %s", v.Type())
	}
}

func toBox(v starlark.Value) (Box, error) {
	var nums []float64
	if err := flatten(v, &nums, 0); err != nil {
		return Box{}, err
	}
	if len(nums) != 4 {
		return Box{}, fmt.Errorf("want 4 numbers, got %d", len(nums))
	}
	for _, n := range nums {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Box{}, fmt.Errorf("not a finite number: %v", n)
		}
	}
	return Box{XMin: nums[0], YMin: nums[1], XMax: nums[2], YMax: nums[3]}, nil
}

func flatten(v starlark.Value, out *[]float64, depth int) error {
	if f, ok := starlark.AsFloat(v); ok {
		*out = append(*out, f)
		return nil
	}
	seq, ok := v.(starlark.Indexable)
	if !ok || depth > 2 {
		return fmt.Errorf("unexpected %s", v.Type())
	}
	if _, isString := v.(starlark.String); isString {
		return fmt.Errorf("unexpected string")
	}
	for i := 0; i < seq.Len(); i++ {
		if err := flatten(seq.Index(i), out, depth+1); err != nil {
			return err
		}
	}
	return nil
}
