package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"crossbind/internal/decl"
	"crossbind/internal/keys"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect crossbind input and output files",
}

func init() {
	inspectCmd.AddCommand(inspectKeysCmd)
	inspectCmd.AddCommand(inspectGraphCmd)
}

var inspectKeysCmd = &cobra.Command{
	Use:   "keys <file>",
	Short: "Dump a binding key table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := keys.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		head := color.New(color.Bold)
		head.DisableColor()
		if useColor(cmd, os.Stdout) {
			head.EnableColor()
		}
		fmt.Fprintf(out, "%s (schema %d, %d entries)\n", head.Sprint(t.Module), t.Schema, len(t.Entries))
		for _, mangled := range t.Mangled() {
			e := t.Entries[mangled]
			fmt.Fprintf(out, "  %s\n    kind: %s\n    wrapper: %s\n", mangled, e.Kind, e.Wrapper)
			if e.Size != 0 || e.Align != 0 {
				fmt.Fprintf(out, "    layout: size=%d align=%d\n", e.Size, e.Align)
			}
			ops := make([]string, 0, len(e.Thunks))
			for op := range e.Thunks {
				ops = append(ops, op)
			}
			sort.Strings(ops)
			for _, op := range ops {
				fmt.Fprintf(out, "    thunk[%s]: %s\n", op, e.Thunks[op])
			}
		}
		return nil
	},
}

var inspectGraphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Summarize a frontend declaration graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one graph file")
		}
		g, err := decl.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "module %q (schema %d)\n", g.Module, g.Schema)
		fmt.Fprintf(out, "files: %d\n", len(g.Files))
		counts := make(map[decl.Kind]int)
		for i := range g.Decls {
			counts[g.Decls[i].Kind]++
		}
		kinds := make([]decl.Kind, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			fmt.Fprintf(out, "  %-12s %d\n", k.String(), counts[k])
		}
		return nil
	},
}
