// Package wasmcalc runs the adder and accumulator WebAssembly guests on the
// wazero runtime.
//
// The guests are built from cmd/adder and cmd/accumulator with GOOS=wasip1.
// Modules built by emscripten from equivalent C sources work too, as long as
// the only "env" functions they import are the ones wazero's emscripten
// package defines: the invoke_* trampolines and
// emscripten_notify_memory_growth. Standalone builds (-sSTANDALONE_WASM)
// usually qualify. The "env" module is instantiated once per Runtime, from
// the first guest that imports it, so later guests may only import what that
// guest did.
//
// Ex.
//
//	rt, err := wasmcalc.NewRuntime(ctx, wasmcalc.NewConfig())
//	if err != nil {
//		log.Panicln(err)
//	}
//	defer rt.Close(ctx)
//
//	a, err := rt.InstantiateAdder(ctx, adderWasm)
//	if err != nil {
//		log.Panicln(err)
//	}
//	sum, err := a.AddNums(ctx, 10, 13)
package wasmcalc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/emscripten"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

var (
	// ErrMissingExport is returned when a guest doesn't export a function
	// an operation needs.
	ErrMissingExport = errors.New("missing export")

	// ErrOutOfBounds is returned when a count is negative or larger than the
	// array it counts.
	ErrOutOfBounds = errors.New("count out of bounds")
)

// emscriptenModuleName is the import module of functions emscripten expects
// the host to provide.
const emscriptenModuleName = "env"

// Runtime compiles and instantiates guests. It is safe for concurrent use,
// though each Adder or Accumulator it returns is not.
type Runtime struct {
	config *config
	r      wazero.Runtime
	cache  wazero.CompilationCache

	// mux guards instantiating the emscripten host module, which may only
	// happen once per runtime, and checking what it defines.
	mux sync.Mutex
}

// NewRuntime returns a Runtime configured by c, with WASI already
// instantiated. Call Runtime.Close to release it.
func NewRuntime(ctx context.Context, c Config) (*Runtime, error) {
	cfg, ok := c.(*config)
	if !ok || cfg == nil {
		cfg = NewConfig().(*config)
	}
	ctx = cfg.withListeners(ctx)

	rc := cfg.runtimeConfig()
	var cache wazero.CompilationCache
	if dir := cfg.cacheDir; dir != "" {
		var err error
		if cache, err = wazero.NewCompilationCacheWithDir(dir); err != nil {
			return nil, fmt.Errorf("invalid compilation cache dir: %w", err)
		}
		rc = rc.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rc)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		if cache != nil {
			_ = cache.Close(ctx)
		}
		return nil, fmt.Errorf("error instantiating %s: %w", wasi_snapshot_preview1.ModuleName, err)
	}
	return &Runtime{config: cfg, r: r, cache: cache}, nil
}

// Close closes every module instantiated by this runtime, then the
// compilation cache if any.
func (rt *Runtime) Close(ctx context.Context) error {
	err := rt.r.Close(ctx)
	if rt.cache != nil {
		if cerr := rt.cache.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

// Compile compiles wasm and instantiates the host modules it imports. The
// caller closes the result.
func (rt *Runtime) Compile(ctx context.Context, wasm []byte) (wazero.CompiledModule, error) {
	ctx = rt.config.withListeners(ctx)

	compiled, err := rt.r.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("error compiling wasm binary: %w", err)
	}
	if err = rt.instantiateImports(ctx, compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	return compiled, nil
}

// instantiateImports instantiates the emscripten "env" module when compiled
// imports from it, then checks "env" defines every function compiled needs.
// WASI is always present.
func (rt *Runtime) instantiateImports(ctx context.Context, compiled wazero.CompiledModule) error {
	names := importedNames(compiled.ImportedFunctions(), emscriptenModuleName)
	if len(names) == 0 {
		return nil
	}

	rt.mux.Lock()
	defer rt.mux.Unlock()

	env := rt.r.Module(emscriptenModuleName)
	if env == nil {
		if _, err := emscripten.InstantiateForModule(ctx, rt.r, compiled); err != nil {
			return fmt.Errorf("error instantiating emscripten functions: %w", err)
		}
		env = rt.r.Module(emscriptenModuleName)
	}
	defined := env.ExportedFunctionDefinitions()
	for _, name := range names {
		if _, ok := defined[name]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingExport, emscriptenModuleName+"."+name)
		}
	}
	return nil
}

// importedNames returns the names of functions imported from moduleName.
func importedNames(imports []api.FunctionDefinition, moduleName string) (names []string) {
	for _, f := range imports {
		if m, name, _ := f.Import(); m == moduleName {
			names = append(names, name)
		}
	}
	return
}

// requireExports returns ErrMissingExport naming the first function in names
// that compiled doesn't export.
func requireExports(compiled wazero.CompiledModule, names ...string) error {
	exports := compiled.ExportedFunctions()
	for _, name := range names {
		if _, ok := exports[name]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingExport, name)
		}
	}
	return nil
}

// reactor is a guest instantiated as a WASI reactor: its exports are called
// after _initialize, and it never runs its entry routine.
type reactor struct {
	compiled wazero.CompiledModule
	mod      api.Module
}

// instantiateReactor compiles wasm, checks it exports names and instantiates
// it. The module is anonymous, so a runtime can hold several at once.
func (rt *Runtime) instantiateReactor(ctx context.Context, wasm []byte, names ...string) (*reactor, error) {
	compiled, err := rt.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}
	if err = requireExports(compiled, names...); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	conf := rt.config.moduleConfig().WithName("").WithStartFunctions("_initialize")
	mod, err := rt.r.InstantiateModule(rt.config.withListeners(ctx), compiled, conf)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("error instantiating wasm binary: %w", err)
	}
	return &reactor{compiled: compiled, mod: mod}, nil
}

// function returns the exported function or nil.
func (g *reactor) function(name string) api.Function {
	return g.mod.ExportedFunction(name)
}

// Close closes the module, then its compiled code.
func (g *reactor) Close(ctx context.Context) error {
	err := g.mod.Close(ctx)
	if cerr := g.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
