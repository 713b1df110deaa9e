package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/pkg/logger"
)

// Executor runs a generated analysis program and returns its stdout.
// Output is untrusted until the caller validates it.
type Executor interface {
	Run(ctx context.Context, code string) (string, error)
}

// Runner interprets generated Go programs in-process with yaegi instead of
// shelling out to a toolchain. Only an allowlisted slice of the standard
// library is importable; "os" stays on the list because analysis code has to
// open the dataset file.
type Runner struct {
	allowedImports map[string]bool
	timeout        time.Duration
}

func NewRunner(timeoutSec int) *Runner {
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		timeout: timeout,
		allowedImports: map[string]bool{
			"bufio":         true,
			"encoding/csv":  true,
			"encoding/json": true,
			"errors":        true,
			"fmt":           true,
			"io":            true,
			"math":          true,
			"os":            true,
			"sort":          true,
			"strconv":       true,
			"strings":       true,
			"time":          true,
		},
	}
}

func (r *Runner) validateImports(code string) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "analysis.go", code, parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("parse analysis code: %w", err)
	}
	for _, imp := range f.Imports {
		pkg := strings.Trim(imp.Path.Value, `"`)
		if !r.allowedImports[pkg] {
			return fmt.Errorf("import %q is not allowed in analysis code", pkg)
		}
	}
	return nil
}

func (r *Runner) Run(ctx context.Context, code string) (out string, err error) {
	if !strings.Contains(code, "package main") {
		code = "package main\n\n" + code
	}

	if err := r.validateImports(code); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("analysis code panicked: %v", rec)
			}
		}()

		i := interp.New(interp.Options{Stdout: &stdout, Stderr: &stderr})
		if uerr := i.Use(stdlib.Symbols); uerr != nil {
			done <- fmt.Errorf("load stdlib symbols: %w", uerr)
			return
		}
		// Eval of a full "package main" program executes main itself;
		// no separate call is needed.
		if _, eerr := i.Eval(code); eerr != nil {
			done <- fmt.Errorf("run analysis code: %w", eerr)
			return
		}
		done <- nil
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		// The interpreter goroutine is abandoned; yaegi has no preemption.
		logger.Warn("analysis execution timed out", zap.Duration("timeout", r.timeout))
		return "", ctx.Err()
	}

	if err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%w (stderr: %s)", err, truncate(stderr.String(), 500))
		}
		return "", err
	}

	return stdout.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
