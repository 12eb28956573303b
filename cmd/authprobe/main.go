// Command authprobe loads an authentication plugin and reports what it
// provides.
//
// Parameters can be provided via:
//   - -params flag ("key:value,key:value")
//   - MSGAUTH_PARAMS environment variable
//   - -prompt <key>, which reads one secret value from the terminal
//
// Usage:
//
//	authprobe -plugin ./authtoken.so -params token:abc123
//
// Examples:
//
//	# Report the channels of a TLS plugin
//	authprobe -plugin ./authtls.so -params tlsCertFile:/etc/c.pem,tlsKeyFile:/etc/k.pem
//
//	# Prompt for the signing key and issue a lookup
//	authprobe -plugin ./authtoken.so -params subject:svc -prompt secretKey \
//	    -url https://broker:8443/admin/v2/clusters
//
//	# Create the strategy from 8 goroutines at once
//	authprobe -plugin ./authtoken.so -params token:abc -concurrency 8
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/tebeka/atexit"
	"golang.org/x/term"

	"github.com/smnsjas/go-msgauth/auth"
	msglog "github.com/smnsjas/go-msgauth/internal/log"
	"github.com/smnsjas/go-msgauth/loader"
	"github.com/smnsjas/go-msgauth/transport"
)

// paramsEnv holds parameters when -params is not given.
const paramsEnv = "MSGAUTH_PARAMS"

type options struct {
	plugin      string
	params      string
	prompt      string
	url         string
	insecure    bool
	timeout     time.Duration
	concurrency int
	logLevel    string
	logFile     string
	audit       bool
}

func main() {
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("authprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.plugin, "plugin", "", "Path of the plugin module (empty = authentication disabled)")
	fs.StringVar(&o.params, "params", "", "Plugin parameters key:value,... (use "+paramsEnv+" env var instead)")
	fs.StringVar(&o.prompt, "prompt", "", "Prompt for the value of this parameter")
	fs.StringVar(&o.url, "url", "", "Issue an authenticated GET to this URL")
	fs.BoolVar(&o.insecure, "insecure", false, "Skip TLS certificate verification")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "Request timeout")
	fs.IntVar(&o.concurrency, "concurrency", 1, "Create the strategy from this many goroutines")
	fs.StringVar(&o.logLevel, "loglevel", "", "Log level: debug, info, warn, error (empty = no logging)")
	fs.StringVar(&o.logFile, "logfile", "", "Write logs to this rotating file instead of stderr")
	fs.BoolVar(&o.audit, "audit", false, "Emit audit events for plugin loading")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if o.params == "" {
		o.params = os.Getenv(paramsEnv)
	}
	if o.concurrency < 1 {
		fmt.Fprintln(stderr, "Error: -concurrency must be at least 1")
		return 2
	}

	logger, closeLog, err := setupLogging(o, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg := auth.Config{PluginPath: o.plugin, Params: o.params}
	if o.prompt != "" {
		secret, err := readSecret(o.prompt, stderr)
		if err != nil {
			closeLog()
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		pm := auth.ParseParamsFunc(o.params, func(seg string) {
			logger.Warn("ignoring malformed parameter", "length", len(seg))
		})
		pm[o.prompt] = secret
		cfg = auth.Config{PluginPath: o.plugin, ParamMap: pm}
	}

	// One exit handler releases the modules and then closes the log.
	reg := loader.NewRegistry(
		loader.WithLogger(logger),
		loader.WithExitRegistrar(func(func()) {}),
	)
	atexit.Register(exitHandler(reg, logger, closeLog))
	factoryOpts := []auth.FactoryOption{
		auth.WithLogger(logger),
		auth.WithMalformedParamHook(func(seg string) {
			logger.Warn("ignoring malformed parameter", "length", len(seg))
		}),
	}
	if o.audit {
		factoryOpts = append(factoryOpts, auth.WithAuditLogger(auth.NewAuditLogger(logger)))
	}
	factory := auth.NewFactory(reg, factoryOpts...)

	strategy, err := createAll(factory, cfg, o.concurrency)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	report(stdout, strategy, reg.Len())

	if o.url != "" {
		if err := probe(o, strategy, logger, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

// exitHandler releases every module, then closes the log.
func exitHandler(reg *loader.Registry, logger *slog.Logger, closeLog func()) func() {
	return func() {
		if err := reg.Shutdown(); err != nil {
			logger.Warn("plugin registry shutdown", "error", err)
		}
		closeLog()
	}
}

// createAll builds the strategy n times in parallel and returns the first.
func createAll(f *auth.Factory, cfg auth.Config, n int) (auth.Strategy, error) {
	results := make([]auth.Strategy, n)
	p := pool.New().WithErrors().WithMaxGoroutines(n)
	for i := 0; i < n; i++ {
		p.Go(func() error {
			s, err := f.FromConfig(cfg)
			if err != nil {
				return err
			}
			results[i] = s
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results[0], nil
}

func report(w io.Writer, s auth.Strategy, handles int) {
	creds := s.Provider().Credentials()

	fmt.Fprintf(w, "Method:   %s\n", s.MethodName())
	fmt.Fprintf(w, "Modules:  %d loaded\n", handles)
	fmt.Fprintf(w, "TLS:      %s\n", availability(creds.HasDataForTLS()))
	if creds.HasDataForTLS() {
		fmt.Fprintf(w, "  certificates: %s\n", creds.TLSCertificates())
	}
	fmt.Fprintf(w, "HTTP:     %s\n", availability(creds.HasDataForHTTP()))
	if creds.HasDataForHTTP() {
		fmt.Fprintf(w, "  auth type: %s\n", creds.HTTPAuthType())
	}
	fmt.Fprintf(w, "Command:  %s\n", availability(creds.HasDataFromCommand()))
	if _, data, ok := transport.ConnectAuth(s); ok {
		fmt.Fprintf(w, "  auth data: %d bytes\n", len(data))
	}
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "none"
}

func probe(o options, s auth.Strategy, logger *slog.Logger, w io.Writer) error {
	tr := transport.NewHTTPTransport(
		transport.WithStrategy(s),
		transport.WithTimeout(o.timeout),
		transport.WithInsecureSkipVerify(o.insecure),
		transport.WithLogger(logger),
	)
	defer tr.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	body, err := tr.Get(ctx, o.url)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "GET %s: %d bytes\n", o.url, len(body))
	return nil
}

// setupLogging returns a discarding logger when no level is set.
func setupLogging(o options, stderr io.Writer) (*slog.Logger, func(), error) {
	if o.logLevel == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	level, err := msglog.ParseLevel(o.logLevel)
	if err != nil {
		return nil, nil, err
	}

	if o.logFile == "" {
		logger := msglog.New(stderr, level)
		slog.SetDefault(logger)
		return logger, func() {}, nil
	}

	f, err := msglog.NewFile(msglog.FileConfig{Path: o.logFile})
	if err != nil {
		return nil, nil, err
	}
	logger := msglog.New(f, level)
	slog.SetDefault(logger)
	return logger, func() { _ = f.Close() }, nil
}

// readSecret prompts on stderr and reads one line without echo when stdin
// is a terminal.
func readSecret(name string, stderr io.Writer) (string, error) {
	fmt.Fprintf(stderr, "%s: ", name)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(stderr)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(line), nil
}
