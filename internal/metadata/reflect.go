package metadata

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Reflect builds a type descriptor for T from its Go method set.
//
// Every exported method on *T becomes a public instance operation, in the
// name order Go reports them. Go does not record declaration order, so a
// CaseComparator set with Convention.SetCaseOrder is the only way to run
// cases in another order. A method whose last result is an error reports
// that error as its fault. Instances are created with new(T). Unnamed types
// are marked as synthesized and interfaces carry no operations.
func Reflect[T any](namespace string, tags ...Tag) *Type {
	rt := reflect.TypeOf((*T)(nil)).Elem()

	t := &Type{
		Name:        rt.Name(),
		Namespace:   namespace,
		Tags:        tags,
		Synthesized: rt.Name() == "",
	}
	if t.Synthesized {
		t.Name = rt.String()
	}

	if rt.Kind() == reflect.Interface {
		t.Kind = KindInterface
		return t
	}

	t.Constructor = func() (any, error) {
		return reflect.New(rt).Interface(), nil
	}

	pt := reflect.PointerTo(rt)
	for i := 0; i < pt.NumMethod(); i++ {
		t.Methods = append(t.Methods, reflectMethod(pt.Method(i)))
	}
	return t
}

func reflectMethod(rm reflect.Method) *Method {
	fnType := rm.Type
	params := fnType.NumIn() - 1
	fn := rm.Func

	m := &Method{
		Name:   rm.Name,
		Params: params,
		source: fn.Pointer(),
	}
	m.Func = func(instance any, args []any) error {
		receiver := reflect.ValueOf(instance)
		if !receiver.IsValid() || !receiver.Type().AssignableTo(fnType.In(0)) {
			return fmt.Errorf("cannot invoke %s on %T", rm.Name, instance)
		}

		in := make([]reflect.Value, 0, len(args)+1)
		in = append(in, receiver)
		for i, arg := range args {
			want := fnType.In(i + 1)
			if arg == nil {
				in = append(in, reflect.Zero(want))
				continue
			}
			v := reflect.ValueOf(arg)
			switch {
			case v.Type().AssignableTo(want):
			case v.Type().ConvertibleTo(want) && v.Kind() == want.Kind():
				v = v.Convert(want)
			default:
				return fmt.Errorf("argument %d of %s: cannot use %T as %s", i, rm.Name, arg, want)
			}
			in = append(in, v)
		}

		out := fn.Call(in)
		if n := len(out); n > 0 && fnType.Out(n-1) == errorType {
			if err, _ := out[n-1].Interface().(error); err != nil {
				return err
			}
		}
		return nil
	}
	return m
}
