package composite

import (
	"fmt"
	"reflect"

	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/tensor"
)

// TypeTag is a symbolic classification of a runtime value used to select
// a dispatch handler.
type TypeTag int

// The closed tag set. TagAny is the generic fallback: classification is
// total, every value the dispatch layer can receive maps to some tag.
const (
	TagNone TypeTag = iota
	TagBool
	TagInt
	TagFloat
	TagNumber
	TagString
	TagTensor
	TagList
	TagTuple
	TagFunction
	TagAny
)

var tagNames = map[TypeTag]string{
	TagNone:     "None",
	TagBool:     "Bool",
	TagInt:      "Int",
	TagFloat:    "Float",
	TagNumber:   "Number",
	TagString:   "String",
	TagTensor:   "Tensor",
	TagList:     "List",
	TagTuple:    "Tuple",
	TagFunction: "Function",
	TagAny:      "Any",
}

// String returns the registration name of the tag.
func (t TypeTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseTag converts a registration name into a TypeTag.
func ParseTag(name string) (TypeTag, error) {
	for tag, n := range tagNames {
		if n == name {
			return tag, nil
		}
	}
	return TagAny, fmt.Errorf("unknown type tag %q", name)
}

// Tuple is the immutable sequence value of the composite layer.
type Tuple []any

// List is the mutable sequence value of the composite layer.
type List []any

// TagOf classifies a runtime value. It never fails: values outside the
// known set classify as TagAny.
func TagOf(v any) TypeTag {
	switch v := v.(type) {
	case nil:
		return TagNone
	case bool:
		return TagBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TagInt
	case float32, float64:
		return TagFloat
	case string:
		return TagString
	case *tensor.RawTensor:
		return TagTensor
	case *graph.Parameter:
		// Parameters dispatch as the tensor they hold.
		return TagTensor
	case Tuple:
		return TagTuple
	case List, []any:
		return TagList
	case *graph.Graph, Applier, Handler:
		return TagFunction
	default:
		if reflect.TypeOf(v).Kind() == reflect.Func {
			return TagFunction
		}
		return TagAny
	}
}

// IsSubtag reports whether a value tagged actual satisfies a handler
// declared for declared. Equal tags always match; every tag is a subtag
// of TagAny; Bool, Int and Float are subtags of Number.
func IsSubtag(actual, declared TypeTag) bool {
	if actual == declared || declared == TagAny {
		return true
	}
	if declared == TagNumber {
		switch actual {
		case TagBool, TagInt, TagFloat:
			return true
		}
	}
	return false
}
