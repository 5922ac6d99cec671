// Package eval is the tree-walking evaluator. It enforces the same effect,
// exhaustiveness and contract rules the checker reports statically, through
// capability objects supplied by the host.
package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
	"github.com/vito/warden/pkg/value"
)

const (
	DefaultMaxDepth     = 1000
	DefaultPropertyRuns = 100
)

// Options configures an Interpreter. The zero value gives a pure
// interpreter: no capabilities and the embedded standard library.
type Options struct {
	Capabilities *effects.Capabilities
	Loader       *Loader
	MaxDepth     int
	PropertyRuns int
}

// Interpreter evaluates modules. Loaded modules are cached for the
// Interpreter's lifetime; independent Interpreters share nothing.
type Interpreter struct {
	caps         *effects.Capabilities
	loader       *Loader
	maxDepth     int
	propertyRuns int

	depth   int
	globals *value.Env
	types   *registry
	modules map[string]*value.Env
	sources map[string]*ast.Module
	loading map[string]bool
}

// registry holds the declarations of every module loaded so far.
type registry struct {
	records map[string]*ast.TypeDecl
	aliases map[string]*ast.TypeDecl
	enums   map[string]*ast.EnumDecl
	effects map[string]*ast.EffectDecl
	impls   map[string]map[string]*value.Closure
	// scopes maps each type declaration to the env of its module, where its
	// invariant is evaluated.
	scopes map[*ast.TypeDecl]*value.Env
}

func newRegistry() *registry {
	return &registry{
		records: map[string]*ast.TypeDecl{},
		aliases: map[string]*ast.TypeDecl{},
		enums:   map[string]*ast.EnumDecl{},
		effects: map[string]*ast.EffectDecl{},
		impls:   map[string]map[string]*value.Closure{},
		scopes:  map[*ast.TypeDecl]*value.Env{},
	}
}

func New(opts Options) *Interpreter {
	i := &Interpreter{
		caps:         opts.Capabilities,
		loader:       opts.Loader,
		maxDepth:     opts.MaxDepth,
		propertyRuns: opts.PropertyRuns,
		types:        newRegistry(),
		modules:      map[string]*value.Env{},
		sources:      map[string]*ast.Module{},
		loading:      map[string]bool{},
	}
	if i.caps == nil {
		i.caps = &effects.Capabilities{}
	}
	if i.loader == nil {
		i.loader = NewLoader()
	}
	if i.maxDepth <= 0 {
		i.maxDepth = DefaultMaxDepth
	}
	if i.propertyRuns <= 0 {
		i.propertyRuns = DefaultPropertyRuns
	}
	i.globals = i.prelude()
	return i
}

// EvalModule loads mod and its imports, then runs its zero-argument `main`
// if it has one. Without a main the result is unit. Any error is a
// *RuntimeError.
func (i *Interpreter) EvalModule(ctx context.Context, mod *ast.Module) (result value.Value, err error) {
	defer i.recoverInternal(&err)

	env, err := i.define(ctx, mod)
	if err != nil {
		return nil, asRuntimeError(err)
	}

	main, ok := env.LookupLocal("main")
	if !ok {
		slog.Debug("module has no main", "module", mod.Name())
		return value.Unit, nil
	}
	fn, ok := main.(*value.Closure)
	if !ok || len(fn.Params) != 0 {
		slog.Debug("main is not a zero-argument function", "module", mod.Name())
		return value.Unit, nil
	}

	slog.Debug("running main", "module", mod.Name())
	v, err := i.invoke(ctx, fn, nil, fn.Body.GetSpan())
	if err != nil {
		return nil, asRuntimeError(err)
	}
	return i.await(ctx, v, fn.Body.GetSpan())
}

// recoverInternal converts a host panic into E4000.
func (i *Interpreter) recoverInternal(err *error) {
	if r := recover(); r != nil {
		slog.Debug("recovered internal fault", "panic", r)
		*err = fault(diag.Internal, "internal error: %v", r)
	}
	i.depth = 0
}

// define loads a module's imports and binds its definitions into a fresh
// environment under the prelude. A module is defined once per path; passing
// a different *ast.Module under a known path defines it again.
func (i *Interpreter) define(ctx context.Context, mod *ast.Module) (*value.Env, error) {
	name := mod.Name()
	if env, ok := i.modules[name]; ok && name != "" && i.sources[name] == mod {
		return env, nil
	}
	if i.loading[name] && name != "" {
		return nil, fault(diag.CircularImport, "circular import of module %s", name)
	}
	i.loading[name] = true
	defer delete(i.loading, name)

	slog.Debug("defining module", "module", name, "items", len(mod.Items))

	env := i.globals.Child()
	for _, item := range mod.Items {
		if imp, ok := item.(*ast.ImportDecl); ok {
			if err := i.bindImport(ctx, env, imp); err != nil {
				return nil, err
			}
		}
	}
	for _, item := range mod.Items {
		if err := i.defineItem(env, item); err != nil {
			return nil, err
		}
	}
	if name != "" {
		i.modules[name] = env
		i.sources[name] = mod
	}
	return env, nil
}

func (i *Interpreter) defineItem(env *value.Env, item ast.Item) error {
	switch d := item.(type) {
	case *ast.FnDecl:
		env.Define(d.Name, closureFor(d, env))
	case *ast.TypeDecl:
		i.types.scopes[d] = env
		if d.IsRecord() {
			i.types.records[d.Name] = d
		} else {
			i.types.aliases[d.Name] = d
			env.Define(d.Name, i.aliasConstructor(d))
		}
	case *ast.EnumDecl:
		i.types.enums[d.Name] = d
		for _, v := range d.Variants {
			env.Define(v.Name, variantValue(d.Name, v))
		}
	case *ast.EffectDecl:
		i.types.effects[d.Name] = d
	case *ast.ImplDecl:
		methods := i.types.impls[d.Target]
		if methods == nil {
			methods = map[string]*value.Closure{}
			i.types.impls[d.Target] = methods
		}
		for _, m := range d.Methods {
			methods[m.Name] = closureFor(m, env)
		}
	}
	return nil
}

func closureFor(fn *ast.FnDecl, env *value.Env) *value.Closure {
	body := fn.Body
	if body == nil {
		body = &ast.Block{Span: fn.Span}
	}
	return &value.Closure{
		Name:     fn.Name,
		Params:   fn.Params,
		Return:   fn.Return,
		Body:     &ast.BlockExpr{Span: body.Span, Block: body},
		Env:      env,
		Requires: fn.Requires,
		Ensures:  fn.Ensures,
		Async:    fn.Async,
	}
}

// variantValue is what a variant's name evaluates to: the variant itself,
// or a constructor when it carries fields.
func variantValue(enum string, v ast.Variant) value.Value {
	if len(v.Fields) == 0 {
		return value.VariantValue{Enum: enum, Variant: v.Name}
	}
	names := make([]string, len(v.Fields))
	for idx, f := range v.Fields {
		names[idx] = f.Name
	}
	return &value.VariantConstructor{Enum: enum, Variant: v.Name, Fields: names}
}

// aliasConstructor lets an alias type name be called to check a value
// against the alias's invariant.
func (i *Interpreter) aliasConstructor(d *ast.TypeDecl) value.Value {
	return &value.BuiltinFunction{
		Name:  d.Name,
		Arity: 1,
		Impl: func(ctx context.Context, args []value.Value) (value.Value, error) {
			if err := i.checkInvariant(ctx, d, args[0]); err != nil {
				return nil, err
			}
			return args[0], nil
		},
	}
}

// checkInvariant evaluates a type's invariant with self bound to v.
func (i *Interpreter) checkInvariant(ctx context.Context, d *ast.TypeDecl, v value.Value) error {
	if d.Invariant == nil {
		return nil
	}
	scope, found := i.types.scopes[d]
	if !found {
		scope = i.globals
	}
	env := scope.Child()
	env.Define("self", v)
	ok, err := i.eval(ctx, env, d.Invariant)
	if err != nil {
		return err
	}
	b, isBool := ok.(value.BoolValue)
	if !isBool {
		return faultAt(d.Invariant.GetSpan(), diag.RuntimeType,
			"invariant of %s must be Bool, got %s", d.Name, value.Describe(ok))
	}
	if !b.Val {
		return faultAt(d.Invariant.GetSpan(), diag.InvariantViolated,
			"invariant of %s violated by %s: %s", d.Name, value.Repr(v), ast.Format(d.Invariant))
	}
	return nil
}

func (i *Interpreter) bindImport(ctx context.Context, env *value.Env, imp *ast.ImportDecl) error {
	target, err := i.importModule(ctx, imp)
	if err != nil {
		return err
	}
	if len(imp.Names) == 0 {
		fields := map[string]value.Value{}
		for _, name := range target.Names() {
			v, _ := target.LookupLocal(name)
			fields[name] = v
		}
		env.Define(imp.Binding(), value.RecordValue{Fields: fields})
		return nil
	}
	for _, name := range imp.Names {
		v, ok := target.LookupLocal(name)
		if !ok {
			return faultAt(imp.Span, diag.MissingImport, "module %s has no definition `%s`", imp.PathString(), name)
		}
		env.Define(name, v)
	}
	return nil
}

func (i *Interpreter) importModule(ctx context.Context, imp *ast.ImportDecl) (*value.Env, error) {
	path := imp.PathString()
	if env, ok := i.modules[path]; ok {
		return env, nil
	}
	if i.loading[path] {
		return nil, faultAt(imp.Span, diag.CircularImport, "circular import of module %s", path)
	}
	mod, err := i.loader.Load(imp.Path)
	if err != nil {
		return nil, locate(err, imp.Span)
	}
	if mod.Name() != path {
		// Registered under the requested path, whatever the file says.
		mod = &ast.Module{Span: mod.Span, Path: imp.Path, Items: mod.Items}
	}
	return i.define(ctx, mod)
}

// Globals lists the names every module can see without importing.
func (i *Interpreter) Globals() []string {
	return i.globals.Names()
}

func (i *Interpreter) String() string {
	return fmt.Sprintf("interpreter (%d modules, capabilities %s)", len(i.modules), i.caps.Available())
}
