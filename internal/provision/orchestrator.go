// Package provision drives a build from manifest to finished build script:
// resolve and install the runtime, select and install a package manager,
// restore dependencies and run the project's build script.
package provision

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"buildpack/internal/cache"
	"buildpack/internal/config"
	"buildpack/internal/env"
	"buildpack/internal/manifest"
	"buildpack/internal/paths"
	"buildpack/internal/resolve"
	"buildpack/internal/runner"
	"buildpack/internal/toolchain"
	"buildpack/internal/tools"
)

// Installer unpacks a resolved tool version into the build.
type Installer interface {
	Install(ctx context.Context, tool string, v resolve.Version) (tools.Status, error)
}

// Orchestrator runs the provisioning state machine. It holds no state
// between runs; callers serialise access to the build and cache directories.
type Orchestrator struct {
	Layout    paths.Layout
	Config    config.Config
	Resolver  *resolve.Resolver
	Installer Installer
	Cache     *cache.Manager
	Runner    runner.Runner
	Reporter  Reporter
	Logger    *log.Logger

	// Stdout and Stderr receive the output of package manager commands.
	Stdout io.Writer
	Stderr io.Writer

	now func() time.Time
}

// Result summarises a run. Fields past the reached state are zero.
type Result struct {
	State   State            `json:"state"`
	Runtime resolve.Version  `json:"runtime"`
	Choice  toolchain.Choice `json:"-"`
	Manager resolve.Version  `json:"manager"`
	Cache   cache.Result     `json:"cache"`
	Script  string           `json:"script,omitempty"`
	// Env is the environment the build script ran with.
	Env env.Environment `json:"-"`
}

// ManagerTool names the package manager used by the run.
func (r Result) ManagerTool() string {
	return r.Choice.Tool()
}

// Run provisions the build. base is the environment every command starts
// from; it is never modified.
func (o *Orchestrator) Run(ctx context.Context, base env.Environment) (Result, error) {
	res := Result{}
	o.enter(&res, StateStart)

	doc, err := o.checkManifest()
	if err != nil {
		return o.fail(&res, err)
	}
	constraints := doc.Constraints(manifest.Fields{
		Runtime:   o.Config.Manifest.RuntimeField,
		Primary:   o.Config.Manifest.PrimaryField,
		Secondary: o.Config.Manifest.SecondaryField,
	})
	o.enter(&res, StateManifestChecked)

	o.reporter().Section("Installing binaries")
	o.describeConstraints(constraints)
	runtimeConstraint := o.Config.Runtime.DefaultConstraint
	if constraints.Runtime != nil {
		runtimeConstraint = *constraints.Runtime
	}
	runtimeVersion, err := o.resolveTool(ctx, toolchain.RuntimeTool, runtimeConstraint)
	if err != nil {
		return o.fail(&res, err)
	}
	res.Runtime = runtimeVersion
	o.enter(&res, StateRuntimeResolved)

	script, ok := doc.Field(o.Config.ScriptField())
	if !ok {
		return o.fail(&res, &PreconditionError{
			State:   StateNoScript,
			Message: fmt.Sprintf("no build script: %s is not defined in %s", o.Config.ScriptField(), filepath.Base(o.Layout.ManifestFile)),
		})
	}
	res.Script = script
	o.enter(&res, StateScriptChecked)

	o.reporter().Detail("Downloading and installing node %s...", runtimeVersion.Number)
	if _, err := o.Installer.Install(ctx, toolchain.RuntimeTool, runtimeVersion); err != nil {
		return o.fail(&res, &ToolInvocationError{
			State: StateInvocationFailed,
			Step:  fmt.Sprintf("install node %s", runtimeVersion.Number),
			Err:   err,
		})
	}
	e := base.PrependPath(tools.BinDir(o.Layout, toolchain.RuntimeTool, runtimeVersion.Number))
	o.enter(&res, StateRuntimeInstalled)

	choice := toolchain.Select(constraints.Primary, constraints.Secondary)
	res.Choice = choice
	e, managerVersion, err := o.installManager(ctx, choice, e)
	if err != nil {
		return o.fail(&res, err)
	}
	res.Manager = managerVersion
	o.enter(&res, StateToolchainSelected)

	o.reporter().Section("Installing dependencies")
	cacheResult, e, err := o.Cache.Prepare(choice, e)
	if err != nil {
		return o.fail(&res, fmt.Errorf("prepare dependency cache: %w", err))
	}
	res.Cache = cacheResult
	o.describeCache(cacheResult)
	if cacheResult.Action == cache.ActionRebuild {
		if err := o.invoke(ctx, e, toolchain.DefaultTool, "rebuild"); err != nil {
			return o.fail(&res, err)
		}
	}
	if err := o.invoke(ctx, e, choice.Tool(), "install"); err != nil {
		return o.fail(&res, err)
	}
	o.enter(&res, StateDependenciesRestored)

	o.reporter().Section("Build")
	o.reporter().Detail("Running %s script: %s", o.Config.Manifest.Script, script)
	if err := o.invoke(ctx, e, choice.Tool(), "run", o.Config.Manifest.Script); err != nil {
		return o.fail(&res, err)
	}
	res.Env = e

	o.reporter().Section("Caching build")
	sig := cache.Signature{
		Runtime:        runtimeVersion.Number,
		Manager:        choice.Tool(),
		ManagerVersion: managerVersion.Number,
	}
	if err := o.Cache.Save(choice, sig); err != nil {
		o.logger().Printf("save cache: %v", err)
		o.reporter().Warn("Could not save the build cache: %v", err)
	} else {
		o.reporter().Detail("Saved %s", o.saveDescription(choice))
	}

	o.enter(&res, StateDone)
	return res, nil
}

func (o *Orchestrator) checkManifest() (manifest.Document, error) {
	exists, err := paths.FileExists(o.Layout.ManifestFile)
	if err != nil {
		return manifest.Document{}, fmt.Errorf("inspect manifest: %w", err)
	}
	name := filepath.Base(o.Layout.ManifestFile)
	if !exists {
		return manifest.Document{}, &PreconditionError{
			State:   StateNoManifest,
			Message: fmt.Sprintf("no manifest: %s not found in %s", name, o.Layout.BuildDir),
		}
	}
	doc, err := manifest.Load(o.Layout.ManifestFile)
	if err != nil {
		return manifest.Document{}, &PreconditionError{
			State:   StateNoManifest,
			Message: fmt.Sprintf("invalid manifest %s", name),
			Err:     err,
		}
	}
	return doc, nil
}

func (o *Orchestrator) describeConstraints(c manifest.Constraints) {
	name := filepath.Base(o.Layout.ManifestFile)
	show := func(field string, value *string) {
		if value == nil {
			o.reporter().Detail("%s (%s): unspecified", field, name)
			return
		}
		o.reporter().Detail("%s (%s): %s", field, name, *value)
	}
	show(o.Config.Manifest.RuntimeField, c.Runtime)
	show(o.Config.Manifest.PrimaryField, c.Primary)
	if c.Secondary != nil {
		show(o.Config.Manifest.SecondaryField, c.Secondary)
	}
}

// installManager provisions the package manager for choice and returns the
// environment exposing it.
func (o *Orchestrator) installManager(ctx context.Context, choice toolchain.Choice, e env.Environment) (env.Environment, resolve.Version, error) {
	switch {
	case choice.Manager == toolchain.Secondary:
		v, err := o.resolveTool(ctx, toolchain.SecondaryTool, choice.Constraint)
		if err != nil {
			return e, resolve.Version{}, err
		}
		o.reporter().Detail("Downloading and installing yarn %s...", v.Number)
		if _, err := o.Installer.Install(ctx, toolchain.SecondaryTool, v); err != nil {
			return e, resolve.Version{}, &ToolInvocationError{
				State: StateInvocationFailed,
				Step:  fmt.Sprintf("install yarn %s", v.Number),
				Err:   err,
			}
		}
		return e.PrependPath(tools.BinDir(o.Layout, toolchain.SecondaryTool, v.Number)), v, nil

	case choice.Pinned:
		v, err := o.resolveTool(ctx, toolchain.DefaultTool, choice.Constraint)
		if err != nil {
			return e, resolve.Version{}, err
		}
		o.reporter().Detail("Bootstrapping npm %s...", v.Number)
		if err := o.invoke(ctx, e, toolchain.DefaultTool, "install", "-g", "npm@"+v.Number); err != nil {
			return e, resolve.Version{}, err
		}
		entry := tools.ManifestEntry{
			Tool:        toolchain.DefaultTool,
			Version:     v.Number,
			Source:      tools.SourceSelfUpdate,
			Path:        o.Layout.RuntimeDir,
			InstalledAt: o.timestamp(),
		}
		if err := tools.Record(o.Layout, entry); err != nil {
			o.logger().Printf("record npm %s: %v", v.Number, err)
		}
		return e, v, nil

	default:
		o.reporter().Detail("Using default npm version")
		return e, resolve.Version{}, nil
	}
}

// resolveTool resolves constraint, converting a failed outcome into the
// typed error for its kind. The failure text comes from one extra backend
// query.
func (o *Orchestrator) resolveTool(ctx context.Context, tool, constraint string) (resolve.Version, error) {
	o.reporter().Detail("Resolving %s version %s...", tool, constraint)
	out := o.Resolver.Resolve(ctx, tool, constraint)
	if out.OK() {
		return out.Version, nil
	}

	explained := o.Resolver.Explain(ctx, tool, constraint)
	o.logger().Printf("resolve %s %q failed after %d attempt(s): %v", tool, constraint, out.Attempts, out.Err)
	return resolve.Version{}, ResolutionError(tool, constraint, out, explained)
}

// invoke runs a package manager command in the build directory. The
// executable is looked up on the PATH of e, not of this process.
func (o *Orchestrator) invoke(ctx context.Context, e env.Environment, tool string, args ...string) error {
	command := tool
	if found, ok := e.LookPath(tool); ok {
		command = found
	}
	step := strings.TrimSpace(tool + " " + strings.Join(args, " "))
	o.logger().Printf("run %s (%s)", step, command)

	_, err := o.Runner.Run(ctx, command, args, runner.RunOptions{
		Dir:    o.Layout.BuildDir,
		Env:    e.Environ(),
		Stdout: o.Stdout,
		Stderr: o.Stderr,
	})
	if err != nil {
		return &ToolInvocationError{
			State:   StateInvocationFailed,
			Step:    step,
			Command: command,
			Args:    append([]string(nil), args...),
			Err:     err,
		}
	}
	return nil
}

func (o *Orchestrator) describeCache(r cache.Result) {
	switch r.Action {
	case cache.ActionRebuild:
		o.reporter().Detail("Prebuilt dependencies exist, skipping cache and rebuilding")
	case cache.ActionRestored:
		o.reporter().Detail("Restoring cache from %s", r.Dir)
	case cache.ActionRedirected:
		o.reporter().Detail("Using yarn cache at %s", r.Dir)
	default:
		o.reporter().Detail("No cache found, installing from scratch")
	}
}

func (o *Orchestrator) saveDescription(choice toolchain.Choice) string {
	if choice.Manager == toolchain.Secondary {
		return "cache signature (yarn maintains its own cache)"
	}
	return filepath.Base(o.Layout.DepsDir)
}

func (o *Orchestrator) enter(res *Result, s State) {
	res.State = s
	o.logger().Printf("state: %s", s)
	o.reporter().Enter(s)
}

func (o *Orchestrator) fail(res *Result, err error) (Result, error) {
	if s, ok := FailedState(err); ok {
		o.enter(res, s)
	}
	o.logger().Printf("provisioning failed in state %s: %v", res.State, err)
	return *res, err
}

func (o *Orchestrator) reporter() Reporter {
	if o.Reporter == nil {
		return noopReporter{}
	}
	return o.Reporter
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Logger
}

func (o *Orchestrator) timestamp() string {
	now := time.Now
	if o.now != nil {
		now = o.now
	}
	return now().UTC().Format(time.RFC3339)
}
