package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/eval"
	"github.com/takoeight0821/ember/nameresolve"
	"github.com/takoeight0821/ember/utils"
)

// Runtime compiles and runs scripts against a shared set of native modules, globals and
// customizers. Each run gets its own interpreter, so a Runtime may serve concurrent runs.
type Runtime struct {
	mu          sync.RWMutex
	modules     eval.Catalog
	customizers []Customizer
	passes      []Pass
	globals     map[string]eval.Value

	logger         *slog.Logger
	out            io.Writer
	maxCallDepth   int
	topLevelReturn bool
}

type Option func(*Runtime)

// WithLogger reports phase progress to logger. Nothing is logged by default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// WithOutput is where print statements write.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) { r.out = w }
}

func WithMaxCallDepth(depth int) Option {
	return func(r *Runtime) { r.maxCallDepth = depth }
}

func WithTopLevelReturn(allow bool) Option {
	return func(r *Runtime) { r.topLevelReturn = allow }
}

func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		modules:        make(eval.Catalog),
		customizers:    nil,
		passes:         nil,
		globals:        make(map[string]eval.Value),
		logger:         slog.New(slog.DiscardHandler),
		out:            os.Stdout,
		maxCallDepth:   eval.DefaultMaxCallDepth,
		topLevelReturn: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.passes = []Pass{
		lexPass{},
		parsePass{},
		resolvePass{topLevelReturn: r.topLevelReturn},
		interpretPass{newInterpreter: r.newInterpreter},
	}
	return r
}

// RegisterNativeModule makes m importable by scripts run afterwards.
func (r *Runtime) RegisterNativeModule(m *eval.NativeModule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[m.Name()]; ok {
		return fmt.Errorf("native module %s is already registered", m.Name())
	}
	r.modules[m.Name()] = m
	r.logger.Debug("register native module",
		slog.String("module", m.Name()),
		slog.Any("functions", m.Functions()))
	return nil
}

// RegisterCustomizer appends c to the customizers of its phase.
func (r *Runtime) RegisterCustomizer(c Customizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customizers = append(r.customizers, c)
}

// AddPass inserts p right after the pass of phase after.
func (r *Runtime) AddPass(after utils.Phase, p Pass) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.passes, func(q Pass) bool { return q.Phase() == after })
	if i < 0 {
		return fmt.Errorf("no pass for phase %s", after)
	}
	r.passes = slices.Insert(r.passes, i+1, p)
	return nil
}

// SetGlobal defines a global every script run afterwards can read.
func (r *Runtime) SetGlobal(name string, v eval.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals[name] = v
}

func (r *Runtime) newInterpreter() *eval.Interpreter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	in := eval.NewInterpreter(
		eval.WithOutput(r.out),
		eval.WithMaxCallDepth(r.maxCallDepth),
		eval.WithNativeModules(slices.Collect(maps.Values(r.modules))...),
	)
	for name, v := range r.globals {
		in.SetGlobal(name, v)
	}
	return in
}

func (r *Runtime) newScriptContext(ctx context.Context, source string) *ScriptContext {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sc := newScriptContext(ctx, source)
	sc.Modules = maps.Clone(r.modules)
	for name := range r.globals {
		sc.Globals[name] = false
	}
	return sc
}

// Compile lexes and parses source.
func (r *Runtime) Compile(source string) ([]ast.Stmt, error) {
	sc := newScriptContext(context.Background(), source)
	for _, p := range []Pass{lexPass{}, parsePass{}} {
		if err := p.Run(sc); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Phase(), err)
		}
	}
	return sc.Statements, nil
}

// Resolve checks stmts against the registered modules and globals.
func (r *Runtime) Resolve(stmts []ast.Stmt) (*nameresolve.Bindings, error) {
	sc := r.newScriptContext(context.Background(), "")
	sc.Statements = stmts
	p := resolvePass{topLevelReturn: r.topLevelReturn}
	if err := p.Run(sc); err != nil {
		return nil, fmt.Errorf("%s: %w", p.Phase(), err)
	}
	return sc.Bindings, nil
}

// Interpret runs resolved statements in a fresh interpreter.
func (r *Runtime) Interpret(ctx context.Context, stmts []ast.Stmt, bindings *nameresolve.Bindings) (eval.Value, error) {
	v, err := r.newInterpreter().Interpret(ctx, stmts, bindings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", utils.Interpreting, err)
	}
	return v, nil
}

// Run takes source through every pass and returns the script's result.
func (r *Runtime) Run(ctx context.Context, source string) (eval.Value, error) {
	sc, err := r.Evaluate(ctx, source)
	if err != nil {
		return nil, err
	}
	return sc.Result, nil
}

// Evaluate is Run that also hands back the ScriptContext, artifacts and test results
// included. On failure the context holds whatever the passes before the failing one produced.
func (r *Runtime) Evaluate(ctx context.Context, source string) (*ScriptContext, error) {
	sc := r.newScriptContext(ctx, source)
	return sc, r.execute(sc)
}

func (r *Runtime) execute(sc *ScriptContext) error {
	r.mu.RLock()
	passes := slices.Clone(r.passes)
	customizers := slices.Clone(r.customizers)
	logger := r.logger.With(slog.String("script", sc.ID.String()))
	r.mu.RUnlock()

	for _, p := range passes {
		phase := p.Phase()
		for _, c := range customizers {
			if c.Phase() != phase {
				continue
			}
			if err := c.Customize(sc); err != nil {
				logger.Debug("customizer failed", slog.String("phase", string(phase)), slog.Any("error", err))
				return fmt.Errorf("%s: %w", phase, err)
			}
		}

		start := time.Now()
		logger.Debug("phase start", slog.String("phase", string(phase)))
		if err := p.Run(sc); err != nil {
			logger.Debug("phase failed",
				slog.String("phase", string(phase)),
				slog.Int("error-count", len(utils.Flatten(err))))
			return fmt.Errorf("%s: %w", phase, err)
		}
		logger.Debug("phase finish",
			slog.String("phase", string(phase)),
			slog.Duration("elapsed", time.Since(start)))
	}
	return nil
}

// Session runs scripts one after another in the same global frame, as a REPL does.
// Top-level names defined by one run are visible to, and may be redefined by, later runs.
type Session struct {
	runtime     *Runtime
	interpreter *eval.Interpreter
	globals     map[string]bool
}

func (r *Runtime) NewSession() *Session {
	return &Session{
		runtime:     r,
		interpreter: r.newInterpreter(),
		globals:     make(map[string]bool),
	}
}

func (s *Session) Run(ctx context.Context, source string) (eval.Value, error) {
	sc := s.runtime.newScriptContext(ctx, source)
	maps.Copy(sc.Globals, s.globals)
	sc.Interpreter = s.interpreter

	err := s.runtime.execute(sc)
	if sc.Bindings != nil {
		// names declared by a run that failed while interpreting stay known
		maps.Copy(s.globals, sc.Globals)
	}
	if err != nil {
		return nil, err
	}
	return sc.Result, nil
}

// Results reports every test statement run in the session.
func (s *Session) Results() map[string]bool {
	return s.interpreter.Results()
}
