// Package loader opens native plugin modules and owns their handles for the
// lifetime of the process.
//
// A Registry is created once by the hosting process and shared by every
// auth.Factory. Initialize schedules Shutdown at process exit; Shutdown
// releases each handle exactly once, in the order the handles were loaded.
//
// # Usage
//
//	reg := loader.NewRegistry(loader.WithLogger(logger))
//	defer reg.Shutdown()
//
//	h, err := reg.Load("/usr/lib/msgauth/authtls.so")
//	if err != nil {
//	    return err
//	}
//	sym, ok := h.Lookup("CreateFromMap")
//
// # Go plugins
//
// GoPluginOpener uses the standard library plugin package. The Go runtime
// never unmaps a plugin, so releasing a handle only detaches it: later
// lookups through the handle report every symbol as absent.
package loader
