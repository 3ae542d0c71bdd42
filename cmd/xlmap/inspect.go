package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javajack/xlmap"
)

func newValidateCmd() *cobra.Command {
	var source, template string
	cmd := &cobra.Command{
		Use:   "validate bundle.json",
		Short: "Check a rule bundle for errors without processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := xlmap.LoadBundle(args[0])
			if err != nil {
				return err
			}
			issues := xlmap.ValidateBundle(b)

			src, err := openOptional(source)
			if err != nil {
				return err
			}
			if src != nil {
				defer src.Close()
			}
			tpl, err := openOptional(template)
			if err != nil {
				return err
			}
			if tpl != nil {
				defer tpl.Close()
			}
			if src != nil || tpl != nil {
				issues = append(issues, xlmap.ValidateSheets(b, src, tpl)...)
			}

			errorsFound := 0
			for _, issue := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), issue)
				if issue.Severity == xlmap.SeverityError {
					errorsFound++
				}
			}
			if errorsFound > 0 {
				return fmt.Errorf("%d error(s) in %s", errorsFound, args[0])
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "Source workbook to check sheet names against")
	cmd.Flags().StringVarP(&template, "template", "t", "", "Template workbook to check sheet names against")
	return cmd
}

func openOptional(path string) (*xlmap.Workbook, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return xlmap.OpenWorkbook(f)
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe bundle.json",
		Short: "Print an outline of a rule bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := xlmap.LoadBundle(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), xlmap.DescribeBundle(b))
			return nil
		},
	}
}
