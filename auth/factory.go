package auth

import (
	"log/slog"

	"github.com/smnsjas/go-msgauth/loader"
)

// Factory creates strategies from plugin modules.
//
// Every failure yields a nil Strategy together with a *PluginError whose Err
// is one of the sentinel errors of this package. Callers that only care
// whether a strategy is available can test the Strategy for nil.
//
// A Factory is safe for concurrent use; module loading is serialized by the
// Registry.
type Factory struct {
	registry    *loader.Registry
	logger      *slog.Logger
	audit       *AuditLogger
	onMalformed func(segment string)
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = l
	}
}

// WithAuditLogger enables audit events for every plugin lifecycle step.
func WithAuditLogger(a *AuditLogger) FactoryOption {
	return func(f *Factory) {
		f.audit = a
	}
}

// WithMalformedParamHook receives every parameter segment dropped while
// parsing a parameter string.
func WithMalformedParamHook(fn func(segment string)) FactoryOption {
	return func(f *Factory) {
		f.onMalformed = fn
	}
}

// NewFactory creates a Factory that loads modules through reg.
func NewFactory(reg *loader.Registry, opts ...FactoryOption) *Factory {
	f := &Factory{registry: reg}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Registry returns the registry the factory loads modules through.
func (f *Factory) Registry() *loader.Registry {
	return f.registry
}

// Disabled returns a fresh disabled strategy.
func (f *Factory) Disabled() Strategy {
	f.audit.Log(EventStrategy, SubtypeDisabled, SeverityInfo, OutcomeSuccess, "", MethodNone, nil)
	return Disabled()
}

// Create loads the module at path and builds a strategy with no parameters.
func (f *Factory) Create(path string) (Strategy, error) {
	return f.CreateFromMap(path, ParamMap{})
}

// CreateFromString loads the module at path and builds a strategy from a
// "key:value,..." parameter string.
//
// The raw string goes to the module's Create entrypoint when it has one.
// Otherwise the string is parsed and the module's CreateFromMap entrypoint
// is used, on the same handle.
func (f *Factory) CreateFromString(path, params string) (Strategy, error) {
	h, err := f.load(path)
	if err != nil {
		return nil, err
	}

	ctor, res := resolveStringConstructor(h)
	switch res {
	case symbolFound:
		return f.build(h, SymbolCreate, func() (Strategy, error) { return ctor(params) })
	case symbolMismatch:
		f.logger.Warn("plugin entrypoint has unsupported signature, using map entrypoint",
			"handle", h, "symbol", SymbolCreate)
		f.audit.Log(EventPluginResolve, SubtypeMismatch, SeverityWarning, OutcomeFailure, path, "",
			map[string]any{"symbol": SymbolCreate})
	}

	f.audit.Log(EventPluginResolve, SubtypeFallback, SeverityInfo, OutcomeSuccess, path, "",
		map[string]any{"symbol": SymbolCreateFromMap})
	return f.fromMap(h, f.parse(path, params))
}

// CreateFromMap loads the module at path and builds a strategy from params.
// A nil params is treated as empty.
func (f *Factory) CreateFromMap(path string, params ParamMap) (Strategy, error) {
	h, err := f.load(path)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = ParamMap{}
	}
	return f.fromMap(h, params)
}

// FromConfig builds the strategy described by cfg. A blank plugin path
// yields the disabled strategy.
func (f *Factory) FromConfig(cfg Config) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case !cfg.Enabled():
		return f.Disabled(), nil
	case cfg.ParamMap != nil:
		return f.CreateFromMap(cfg.PluginPath, cfg.ParamMap)
	case cfg.Params != "":
		return f.CreateFromString(cfg.PluginPath, cfg.Params)
	default:
		return f.Create(cfg.PluginPath)
	}
}

// load ensures the shutdown hook is scheduled, then opens and registers the
// module.
func (f *Factory) load(path string) (*loader.Handle, error) {
	f.registry.Initialize()

	h, err := f.registry.Load(path)
	if err != nil {
		f.logger.Warn("plugin module could not be loaded", "path", path, "error", err)
		f.audit.Log(EventPluginLoad, SubtypeLoadFail, SeverityError, OutcomeFailure, path, "",
			map[string]any{"error": err.Error()})
		return nil, &PluginError{Path: path, Err: joinCause(ErrModuleLoad, err)}
	}

	f.audit.Log(EventPluginLoad, SubtypeLoaded, SeverityInfo, OutcomeSuccess, path, "",
		map[string]any{"handle": h.ID.String()})
	return h, nil
}

func (f *Factory) fromMap(h *loader.Handle, params ParamMap) (Strategy, error) {
	ctor, res := resolveMapConstructor(h)
	switch res {
	case symbolAbsent:
		f.logger.Warn("plugin entrypoint not found", "handle", h, "symbol", SymbolCreateFromMap)
		f.audit.Log(EventPluginResolve, SubtypeMissing, SeverityError, OutcomeFailure, h.Path, "",
			map[string]any{"symbol": SymbolCreateFromMap})
		return nil, &PluginError{Path: h.Path, Symbol: SymbolCreateFromMap, Err: ErrEntrypointMissing}
	case symbolMismatch:
		f.logger.Warn("plugin entrypoint has unsupported signature", "handle", h, "symbol", SymbolCreateFromMap)
		f.audit.Log(EventPluginResolve, SubtypeMismatch, SeverityError, OutcomeFailure, h.Path, "",
			map[string]any{"symbol": SymbolCreateFromMap})
		return nil, &PluginError{Path: h.Path, Symbol: SymbolCreateFromMap, Err: ErrEntrypointSignature}
	}

	return f.build(h, SymbolCreateFromMap, func() (Strategy, error) { return ctor(params) })
}

func (f *Factory) build(h *loader.Handle, symbol string, ctor func() (Strategy, error)) (Strategy, error) {
	s, method, err := invoke(ctor)
	if err != nil {
		f.logger.Warn("plugin constructor failed", "handle", h, "symbol", symbol, "error", err)
		f.audit.Log(EventStrategy, SubtypeRefused, SeverityError, OutcomeFailure, h.Path, "",
			map[string]any{"symbol": symbol, "error": err.Error()})
		return nil, &PluginError{Path: h.Path, Symbol: symbol, Err: err}
	}

	f.logger.Debug("plugin strategy created", "handle", h, "method", method)
	f.audit.Log(EventStrategy, SubtypeCreated, SeverityInfo, OutcomeSuccess, h.Path, method,
		map[string]any{"symbol": symbol})
	return s, nil
}

func (f *Factory) parse(path, params string) ParamMap {
	return ParseParamsFunc(params, func(segment string) {
		f.logger.Debug("dropping malformed plugin parameter", "path", path, "length", len(segment))
		f.audit.Log(EventPluginResolve, SubtypeMalformed, SeverityWarning, OutcomeFailure, path, "", nil)
		if f.onMalformed != nil {
			f.onMalformed(segment)
		}
	})
}
