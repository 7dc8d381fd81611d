// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command check-rseq validates the rseq_cs descriptors embedded in
// ELF executables.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"code.hybscloud.com/trace/checkrseq"
)

func main() {
	root := &cobra.Command{
		Use:           "check-rseq ELFFILE...",
		Short:         "Validate rseq critical sections embedded in ELF executables",
		Long: `check-rseq reads the rseq_cs descriptors from each executable's
` + checkrseq.DescriptorSectionName + ` section and checks every described
critical section: address bounds, the abort signature, and the
instructions inside the section (no interrupts, no stack pointer
writes, no jumps into the interior).`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := true
			for _, path := range args {
				fileOK, err := checkFile(cmd, path)
				if err != nil {
					return err
				}
				ok = ok && fileOK
			}
			if !ok {
				os.Exit(1)
			}
			return nil
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func checkFile(cmd *cobra.Command, path string) (bool, error) {
	analysis, err := checkrseq.AnalyzeFile(path)
	if err != nil {
		return false, err
	}

	out := cmd.ErrOrStderr()
	ok := true
	for _, problem := range analysis.FileProblems() {
		fmt.Fprintf(out, "%s: error: %s\n", path, problem)
		ok = false
	}
	for _, group := range analysis.ProblemsByCriticalSection() {
		cs := group.CriticalSection
		fmt.Fprintf(out, "%s: in critical section in function %s:\n", path, cs.Function)
		fmt.Fprintf(out, "  note: function starts at address:         %#x\n", cs.FunctionAddress)
		fmt.Fprintf(out, "  note: critical section starts at address: %#x\n", cs.StartAddress)
		fmt.Fprintf(out, "  note: critical section ends at address:   %#x", cs.PostCommitAddress)
		if size, valid := cs.SizeInBytes(); valid {
			fmt.Fprintf(out, " (+%d bytes)", size)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  note: abort handler starts at address:    %#x\n", cs.AbortAddress)
		for _, problem := range group.Problems {
			fmt.Fprintf(out, "  error: %s\n", problem)
			ok = false
		}
	}
	return ok, nil
}
