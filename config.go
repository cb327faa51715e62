package wasmcalc

import (
	"context"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/experimental/logging"
)

// Config controls how a Runtime compiles and runs guests. Each With method
// returns a copy, so a Config can be shared and specialized.
//
// Ex.
//
//	cfg := wasmcalc.NewConfig().WithStdout(os.Stdout)
//	rt, err := wasmcalc.NewRuntime(ctx, cfg.WithInterpreter(true))
type Config interface {
	// WithInterpreter interprets guests instead of compiling them to native
	// code. Defaults to false, though wazero interprets anyway on platforms
	// its compiler doesn't support.
	WithInterpreter(bool) Config

	// WithCompilationCacheDir keeps native code compiled from guests in dir,
	// so later runtimes skip compilation. Defaults to no cache.
	WithCompilationCacheDir(dir string) Config

	// WithCloseOnContextDone interrupts running guests when the context
	// passed to a call is done. Defaults to false.
	WithCloseOnContextDone(bool) Config

	// WithStdout sets where guests write standard output. Defaults to
	// io.Discard.
	WithStdout(io.Writer) Config

	// WithStderr sets where guests write standard error. Defaults to
	// io.Discard.
	WithStderr(io.Writer) Config

	// WithArgs sets the guest's command line arguments, starting with the
	// program name. Defaults to none.
	WithArgs(...string) Config

	// WithHostLogging logs calls to host functions in the given scopes, such
	// as WASI's fd_fdstat_get, to w. LogScopeNone disables it. wazero doesn't
	// log reads and writes of stdio.
	WithHostLogging(w logging.Writer, scopes logging.LogScopes) Config

	// WithCallTracing logs every function call, guest and host, to w. This is
	// very verbose and meant for debugging. nil disables it.
	WithCallTracing(w logging.Writer) Config
}

type config struct {
	interpreter        bool
	cacheDir           string
	closeOnContextDone bool
	stdout, stderr     io.Writer
	args               []string
	hostLogWriter      logging.Writer
	hostLogScopes      logging.LogScopes
	traceWriter        logging.Writer
}

// NewConfig returns a Config with the defaults documented on each method.
func NewConfig() Config {
	return &config{}
}

// clone makes a deep copy of this config.
func (c *config) clone() *config {
	ret := *c
	ret.args = append([]string(nil), c.args...)
	return &ret
}

// WithInterpreter implements Config.WithInterpreter
func (c *config) WithInterpreter(interpreter bool) Config {
	ret := c.clone()
	ret.interpreter = interpreter
	return ret
}

// WithCompilationCacheDir implements Config.WithCompilationCacheDir
func (c *config) WithCompilationCacheDir(dir string) Config {
	ret := c.clone()
	ret.cacheDir = dir
	return ret
}

// WithCloseOnContextDone implements Config.WithCloseOnContextDone
func (c *config) WithCloseOnContextDone(closeOnContextDone bool) Config {
	ret := c.clone()
	ret.closeOnContextDone = closeOnContextDone
	return ret
}

// WithStdout implements Config.WithStdout
func (c *config) WithStdout(stdout io.Writer) Config {
	ret := c.clone()
	ret.stdout = stdout
	return ret
}

// WithStderr implements Config.WithStderr
func (c *config) WithStderr(stderr io.Writer) Config {
	ret := c.clone()
	ret.stderr = stderr
	return ret
}

// WithArgs implements Config.WithArgs
func (c *config) WithArgs(args ...string) Config {
	ret := c.clone()
	ret.args = append([]string(nil), args...)
	return ret
}

// WithHostLogging implements Config.WithHostLogging
func (c *config) WithHostLogging(w logging.Writer, scopes logging.LogScopes) Config {
	ret := c.clone()
	ret.hostLogWriter, ret.hostLogScopes = w, scopes
	return ret
}

// WithCallTracing implements Config.WithCallTracing
func (c *config) WithCallTracing(w logging.Writer) Config {
	ret := c.clone()
	ret.traceWriter = w
	return ret
}

// runtimeConfig returns the wazero configuration for a new runtime.
func (c *config) runtimeConfig() wazero.RuntimeConfig {
	var rc wazero.RuntimeConfig
	if c.interpreter {
		rc = wazero.NewRuntimeConfigInterpreter()
	} else {
		rc = wazero.NewRuntimeConfig()
	}
	return rc.WithCloseOnContextDone(c.closeOnContextDone)
}

// moduleConfig returns the wazero configuration to instantiate a guest.
func (c *config) moduleConfig() wazero.ModuleConfig {
	mc := wazero.NewModuleConfig()
	if c.stdout != nil {
		mc = mc.WithStdout(c.stdout)
	}
	if c.stderr != nil {
		mc = mc.WithStderr(c.stderr)
	}
	if len(c.args) > 0 {
		mc = mc.WithArgs(c.args...)
	}
	return mc
}

// listenerFactory returns the function listeners to install, or nil.
//
// Call tracing logs host functions too, so it wins over host logging.
func (c *config) listenerFactory() experimental.FunctionListenerFactory {
	if c.traceWriter != nil {
		return logging.NewLoggingListenerFactory(c.traceWriter)
	}
	if c.hostLogWriter != nil && c.hostLogScopes != logging.LogScopeNone {
		return logging.NewHostLoggingListenerFactory(c.hostLogWriter, c.hostLogScopes)
	}
	return nil
}

// withListeners adds any function listeners to ctx. wazero reads them when
// a module is compiled, so every compilation must use the returned context.
func (c *config) withListeners(ctx context.Context) context.Context {
	if f := c.listenerFactory(); f != nil {
		return experimental.WithFunctionListenerFactory(ctx, f)
	}
	return ctx
}
