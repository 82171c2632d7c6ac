package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"crossbind/internal/diag"
	"crossbind/internal/diagfmt"
	"crossbind/internal/pipeline"
	"crossbind/internal/project"
	"crossbind/internal/source"
)

var (
	generateJSON    bool
	generateAll     bool
	generateTimings bool
)

func init() {
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "emit diagnostics as JSON")
	generateCmd.Flags().BoolVar(&generateAll, "all", false, "generate every workspace member")
	generateCmd.Flags().BoolVar(&generateTimings, "timings", false, "print per-phase timings")
}

var generateCmd = &cobra.Command{
	Use:   "generate [dir]",
	Short: "Generate wrapper, glue and key table for a module or workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startDir := "."
		if len(args) == 1 {
			startDir = args[0]
		}
		manifestPath, err := resolveManifest(startDir)
		if err != nil {
			return err
		}
		ws, err := project.LoadWorkspace(manifestPath)
		if err != nil {
			return err
		}

		maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")
		quiet, _ := cmd.Flags().GetBool("quiet")
		md := pipeline.DefaultMaxDiagnostics
		if maxDiags > 0 && maxDiags < 65536 {
			md = uint16(maxDiags)
		}

		if ws.Members[0].Manifest.IsWorkspace() || generateAll || len(ws.Members) > 1 {
			return runWorkspace(cmd, ws, md, quiet)
		}
		return runSingle(cmd, ws.Members[0], md, quiet)
	},
}

func runSingle(cmd *cobra.Command, m *project.Module, maxDiags uint16, quiet bool) error {
	res, err := pipeline.RunModule(m, nil, maxDiags)
	printDiagnostics(cmd, res.Bag, res.Files)
	if err != nil {
		return fmt.Errorf("module %q: %w", m.Name, err)
	}
	if res.Failed() {
		return fmt.Errorf("module %q: generation failed", m.Name)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "generated %s, %s, %s\n",
			res.WrapperPath, res.GluePath, res.KeysPath)
	}
	if generateTimings {
		fmt.Fprint(cmd.ErrOrStderr(), res.Timings.Summary())
	}
	return nil
}

func runWorkspace(cmd *cobra.Command, ws *project.Workspace, maxDiags uint16, quiet bool) error {
	out, err := pipeline.RunWorkspace(cmd.Context(), ws, maxDiags)
	printDiagnostics(cmd, out.Bag, source.NewFileTable())
	for _, res := range out.Results {
		printDiagnostics(cmd, res.Bag, res.Files)
		if !quiet && !res.Failed() {
			fmt.Fprintf(cmd.OutOrStdout(), "generated %s, %s, %s\n",
				res.WrapperPath, res.GluePath, res.KeysPath)
		}
		if generateTimings && !res.Failed() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s", res.Module, res.Timings.Summary())
		}
	}
	if err != nil {
		return err
	}
	if out.Failed() {
		return fmt.Errorf("workspace generation failed")
	}
	return nil
}

func printDiagnostics(cmd *cobra.Command, bag *diag.Bag, files *source.FileTable) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	bag.Sort()
	bag.Dedup()
	if generateJSON {
		_ = diagfmt.JSON(cmd.ErrOrStderr(), bag, files)
		return
	}
	diagfmt.Pretty(cmd.ErrOrStderr(), bag, files, diagfmt.PrettyOpts{
		Color: useColor(cmd, os.Stderr),
	})
}

// resolveManifest accepts a directory, a manifest path, or nothing (walk up
// from the working directory).
func resolveManifest(start string) (string, error) {
	info, err := os.Stat(start)
	if err == nil && !info.IsDir() && filepath.Base(start) == project.ManifestName {
		return start, nil
	}
	path, ok, err := project.FindManifest(start)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no %s found in %q or any parent", project.ManifestName, start)
	}
	return path, nil
}
