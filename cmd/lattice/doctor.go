package main

import (
	"fmt"

	"github.com/lcgerke/lattice/internal/doctor"
	"github.com/spf13/cobra"
)

var (
	doctorFixIDs []string
	doctorAuto   bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose and optionally repair repository issues",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().StringSliceVar(&doctorFixIDs, "fix", nil, "Apply specific fix IDs")
	doctorCmd.Flags().BoolVar(&doctorAuto, "auto-fix", false, "Apply the first available fix for every issue")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	snap, err := a.scan(ctx)
	if err != nil {
		return err
	}

	report, err := doctor.Diagnose(ctx, a.repo, snap)
	if err != nil {
		return err
	}

	if len(report.Issues) == 0 {
		a.out.Success("no issues found")
		return nil
	}
	for _, issue := range report.Issues {
		a.out.Warningf("[%s] %s", issue.ID, issue.Message)
	}
	if report.Summary != "" {
		a.out.Info(report.Summary)
	}

	selected, err := selectFixes(report, doctorFixIDs, doctorAuto)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return nil
	}

	result, err := doctor.Apply(ctx, a.repo, a.cfgMgr, a.opStore, a.led, snap, a.rescanner(), selected)
	a.reportResult(result)
	if err != nil {
		return err
	}
	return result.Err
}

func selectFixes(report doctor.DiagnosisReport, ids []string, auto bool) ([]doctor.FixOption, error) {
	if len(ids) > 0 {
		want := make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		var selected []doctor.FixOption
		for _, fix := range report.Fixes {
			if want[fix.ID] {
				selected = append(selected, fix)
				delete(want, fix.ID)
			}
		}
		for id := range want {
			return nil, fmt.Errorf("no such fix id %q", id)
		}
		return selected, nil
	}
	if auto {
		seen := make(map[string]bool, len(report.Issues))
		var selected []doctor.FixOption
		for _, fix := range report.Fixes {
			if fix.Advisory || seen[fix.IssueID] {
				continue
			}
			selected = append(selected, fix)
			seen[fix.IssueID] = true
		}
		return selected, nil
	}
	return nil, nil
}
