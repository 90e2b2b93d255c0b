package weave

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/weaveecs/weave/internal/access"
	"github.com/weaveecs/weave/internal/scheduler"
)

// Param is the non-generic face of spec §4.1's SystemParam trait. Every
// valid parameter type is a concrete (non-pointer) struct whose zero value
// implements Param; the type parameter each one closes over internally
// (Res[Position], Query1[Position], ...) never appears in the interface
// itself, which is what lets System(fn) discover parameters purely by
// walking fn's reflected argument list.
type Param interface {
	// paramInit registers this parameter's access footprint into acc and
	// returns the per-run state used to refresh and fetch its value.
	// world is whatever the owning System was initialized against
	// (normally *World, but Extract[P] passes a different world to its
	// wrapped child).
	paramInit(world any, acc *access.Set) (paramState, error)
}

// paramState is the per-run half of a parameter: Update is called once
// per System.Run, before the call, and Value supplies the reflect.Value
// passed as that argument.
type paramState interface {
	update(world any) bool
	value() reflect.Value
	required() bool
}

var paramIfaceType = reflect.TypeOf((*Param)(nil)).Elem()

// isValidParam reports whether t's zero value implements Param directly,
// or — realizing spec §4.1's "tuples of valid params are valid params" —
// t is a struct all of whose exported fields are themselves valid param
// types, in which case it is treated as a composed FromParam type
// (weave's equivalent of the teacher's "system data" struct macro).
func isValidParam(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if reflect.PointerTo(t).Implements(paramIfaceType) || t.Implements(paramIfaceType) {
		return true
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if !isValidParam(f.Type) {
			return false
		}
	}
	return t.NumField() > 0
}

// zeroParam returns a Param built from t's zero value, wrapping composed
// struct types in structParam so both cases present a uniform Param.
func zeroParam(t reflect.Type) Param {
	if t.Implements(paramIfaceType) {
		return reflect.Zero(t).Interface().(Param)
	}
	if reflect.PointerTo(t).Implements(paramIfaceType) {
		return reflect.New(t).Interface().(Param)
	}
	return structParam{typ: t}
}

// structParam composes several already-valid Param fields into one value
// constructed fresh on every Value() call, realizing the tuple/FromParam
// rule of spec §4.1 without requiring a user-declared constructor.
type structParam struct{ typ reflect.Type }

func (s structParam) paramInit(world any, acc *access.Set) (paramState, error) {
	n := s.typ.NumField()
	states := make([]paramState, n)
	for i := 0; i < n; i++ {
		f := s.typ.Field(i)
		if !f.IsExported() {
			continue
		}
		p := zeroParam(f.Type)
		st, err := p.paramInit(world, acc)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", s.typ.Name(), f.Name, err)
		}
		states[i] = st
	}
	return &structParamState{typ: s.typ, fields: states}, nil
}

type structParamState struct {
	typ    reflect.Type
	fields []paramState
}

func (s *structParamState) update(world any) bool {
	ok := true
	for _, f := range s.fields {
		if f == nil {
			continue
		}
		if !f.update(world) && f.required() {
			ok = false
		}
	}
	return ok
}

func (s *structParamState) value() reflect.Value {
	v := reflect.New(s.typ).Elem()
	for i, f := range s.fields {
		if f == nil {
			continue
		}
		v.Field(i).Set(f.value())
	}
	return v
}

func (s *structParamState) required() bool { return true }

// funcSystem is the concrete scheduler.System built by System(fn): it
// reflects fn's parameter list once at construction, and on every
// Initialize/Run drives each parameter's paramInit/update/value in
// declaration order, exactly as spec §4.2 describes.
type funcSystem struct {
	name    string
	fn      reflect.Value
	fnType  reflect.Type
	params  []reflect.Type
	zeros   []Param
	returns bool // true if fn's sole return value is a bool (run-condition)

	meta    *scheduler.Meta
	states  []paramState
	started bool
}

// System builds a type-erased System from any function whose parameters
// are all valid Param types (spec §4.1/§4.2's single static entry point).
// It panics at build time — never at run time — if a parameter type does
// not qualify, per spec §4.2's "a single static entry point ... produces a
// boxed System<Ret>".
func System(fn any) scheduler.System {
	return newFuncSystem(fn, "")
}

// NamedSystem is System with an explicit name override, for the
// `.set_name(str)` builder sugar of spec §6.
func NamedSystem(name string, fn any) scheduler.System {
	return newFuncSystem(fn, name)
}

func newFuncSystem(fn any, name string) *funcSystem {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("weave.System: %v is not a function", t))
	}
	if name == "" {
		name = funcName(v)
	}

	params := make([]reflect.Type, t.NumIn())
	zeros := make([]Param, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		pt := t.In(i)
		if !isValidParam(pt) {
			panic(fmt.Sprintf("weave.System(%s): parameter %d (%v) is not a valid SystemParam", name, i, pt))
		}
		params[i] = pt
		zeros[i] = zeroParam(pt)
	}

	returnsBool := t.NumOut() == 1 && t.Out(0).Kind() == reflect.Bool
	if t.NumOut() > 1 || (t.NumOut() == 1 && !returnsBool) {
		panic(fmt.Sprintf("weave.System(%s): functions may return nothing or a single bool (run-condition)", name))
	}

	return &funcSystem{
		name:    name,
		fn:      v,
		fnType:  t,
		params:  params,
		zeros:   zeros,
		returns: returnsBool,
	}
}

func funcName(v reflect.Value) string {
	pc := v.Pointer()
	if fn := runtime.FuncForPC(pc); fn != nil {
		return fn.Name()
	}
	return "anonymous"
}

func (s *funcSystem) Name() string { return s.name }

func (s *funcSystem) Initialize(world any) error {
	if s.started {
		return nil
	}
	acc := access.Set{}
	states := make([]paramState, len(s.zeros))
	for i, z := range s.zeros {
		st, err := z.paramInit(world, &acc)
		if err != nil {
			return err
		}
		states[i] = st
	}
	s.states = states
	s.meta = &scheduler.Meta{Access: acc, World: world}
	s.started = true
	return nil
}

func (s *funcSystem) Meta() *scheduler.Meta { return s.meta }

func (s *funcSystem) DataType() reflect.Type { return s.fnType }

func (s *funcSystem) Clone() scheduler.System {
	return newFuncSystem(s.fn.Interface(), s.name)
}

func (s *funcSystem) Run(world any) error {
	if !s.started {
		return &scheduler.RunError{Kind: scheduler.NotInitialized, System: s.name}
	}
	args, failErr := s.resolveArgs(world)
	if failErr != nil {
		return failErr
	}
	_, err := s.invoke(args)
	return err
}

// RunBool runs a boolean-returning system (a run-condition) and reports
// its result. Per spec §4.6, run-conditions are evaluated single-threaded
// on the schedule-walking goroutine, never checked against `running`.
func (s *funcSystem) RunBool(world any) (bool, error) {
	if !s.returns {
		return false, fmt.Errorf("weave: %s is not a bool-returning system", s.name)
	}
	if !s.started {
		return false, &scheduler.RunError{Kind: scheduler.NotInitialized, System: s.name}
	}
	args, failErr := s.resolveArgs(world)
	if failErr != nil {
		return false, failErr
	}
	out, err := s.invoke(args)
	if err != nil {
		return false, err
	}
	return out[0].Bool(), nil
}

func (s *funcSystem) resolveArgs(world any) ([]reflect.Value, error) {
	var failed []reflect.Type
	for i, st := range s.states {
		if !st.update(world) && st.required() {
			failed = append(failed, s.params[i])
		}
	}
	if len(failed) > 0 {
		return nil, &scheduler.RunError{Kind: scheduler.UpdateStateFailed, System: s.name, Failed: failed}
	}
	args := make([]reflect.Value, len(s.states))
	for i, st := range s.states {
		args[i] = st.value()
	}
	return args, nil
}

func (s *funcSystem) invoke(args []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &scheduler.RunError{Kind: scheduler.Panicked, System: s.name, Recovered: r}
		}
	}()
	out = s.fn.Call(args)
	return out, nil
}
