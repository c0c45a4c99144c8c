package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/entity"
	"metaprops/internal/domain/constraint"
	"metaprops/internal/metadata"
	"metaprops/pkg/logger"
)

func newRootCmd() *cobra.Command {
	cfg := configFromEnv()
	var a *app

	root := &cobra.Command{
		Use:           "propcheck",
		Short:         "Property constraint and search engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cfg)
			if err != nil {
				return err
			}
			cmd.SetContext(logger.WithLogger(cmd.Context(), a.log))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}
	cfg.bindFlags(root)

	getApp := func() *app { return a }
	root.AddCommand(
		newCompileCmd(getApp),
		newValidateCmd(getApp),
		newSearchCmd(getApp),
		newUpdatePatternCmd(getApp),
		newLoadCmd(getApp),
	)
	return root
}

// printError writes "CODE: message" for engine errors.
func printError(w io.Writer, err error) {
	if appErr, ok := apperror.AsAppError(err); ok {
		fmt.Fprintf(w, "%s: %s\n", appErr.Code, appErr.Message)
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

type constraintFlags struct {
	dataType    string
	patternType string
	pattern     string
}

func (f *constraintFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dataType, "data-type", "t", "", "Property data type, e.g. INTEGER")
	cmd.Flags().StringVarP(&f.patternType, "pattern-type", "p", "", "PATTERN, RANGES or VALUES (empty for none)")
	cmd.Flags().StringVar(&f.pattern, "pattern", "", "Constraint specification")
	_ = cmd.MarkFlagRequired("data-type")
}

func (f *constraintFlags) compile(a *app) (metadata.DataType, *constraint.Constraint, error) {
	dt, err := metadata.ParseDataType(f.dataType)
	if err != nil {
		return "", nil, err
	}
	pt, err := parsePatternType(f.patternType)
	if err != nil {
		return "", nil, err
	}
	c, err := a.compiler.Compile(dt, pt, f.pattern)
	return dt, c, err
}

func newCompileCmd(getApp func() *app) *cobra.Command {
	var flags constraintFlags
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a constraint and print its normalized form",
		Example: `  propcheck compile -t INTEGER -p RANGES --pattern "10-1, (-5)-0"
  propcheck compile -t VARCHAR -p VALUES --pattern '"b", "a"'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := flags.compile(getApp())
			if err != nil {
				return err
			}
			if c == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no constraint")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.String())
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newValidateCmd(getApp func() *app) *cobra.Command {
	var flags constraintFlags
	cmd := &cobra.Command{
		Use:   "validate VALUE...",
		Short: "Validate values against a constraint and print their canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			dt, c, err := flags.compile(a)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var failed error
			for _, raw := range args {
				canonical, err := a.validator.Validate(c, dt, raw)
				if err != nil {
					fmt.Fprintf(out, "REJECT %s\t%s\n", raw, messageOf(err))
					if failed == nil {
						failed = err
					}
					continue
				}
				fmt.Fprintf(out, "ACCEPT %s\t%s\n", raw, canonical)
			}
			return failed
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSearchCmd(getApp func() *app) *cobra.Command {
	var (
		entityType string
		field      string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Print the entities matching a query",
		Example: `  propcheck search -f cells.yaml -e CELL --field number:SIZE "> 13 and <= 19.5"
  propcheck search -f cells.yaml --field anyDate "== 2020-02-15"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if err := a.openStore(cmd.Context(), true); err != nil {
				return err
			}
			found, err := a.search.SearchQuery(cmd.Context(), entityType, field, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(found)
			}
			for _, e := range found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.Code, e.EntityType, formatProperties(e.Properties))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&entityType, "entity-type", "e", "", "Entity type to search; empty searches all")
	cmd.Flags().StringVar(&field, "field", "anyField", "Field selector: any, anyProperty, anyString, anyNumber, anyDate, anyBoolean or <kind>:<CODE>")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entities as JSON")
	return cmd
}

func newUpdatePatternCmd(getApp func() *app) *cobra.Command {
	var (
		entityType  string
		propertyID  string
		patternType string
		pattern     string
	)
	cmd := &cobra.Command{
		Use:   "update-pattern",
		Short: "Change the constraint of an assignment after checking every stored value",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			if err := a.openStore(ctx, true); err != nil {
				return err
			}
			pt, err := parsePatternType(patternType)
			if err != nil {
				return err
			}
			list, err := a.assignments.List(ctx, entityType)
			if err != nil {
				return err
			}
			current, ok := metadata.EntityTypeDef{Code: entityType, Assignments: list}.Assignment(propertyID)
			if !ok {
				return apperror.NewNotFound("property assignment", entityType+"."+propertyID)
			}
			current.PatternType = pt
			current.Pattern = pattern
			updated, err := a.assignments.Update(ctx, current)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s.%s: %s %s\n", updated.EntityType, updated.PropertyType.Code, updated.PatternType, updated.Pattern)
			return nil
		},
	}
	cmd.Flags().StringVarP(&entityType, "entity-type", "e", "", "Entity type of the assignment")
	cmd.Flags().StringVar(&propertyID, "property", "", "Property type code")
	cmd.Flags().StringVarP(&patternType, "pattern-type", "p", "", "PATTERN, RANGES or VALUES (empty removes the constraint)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Constraint specification")
	_ = cmd.MarkFlagRequired("entity-type")
	_ = cmd.MarkFlagRequired("property")
	return cmd
}

func newLoadCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Create the schema and store a fixture in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if a.cfg.DatabaseURL == "" || a.cfg.Fixture == "" {
				return fmt.Errorf("load needs both --fixture and --database-url")
			}
			if err := a.openStore(cmd.Context(), true); err != nil {
				return err
			}
			if err := a.fixture.apply(cmd.Context(), a); err != nil {
				return err
			}
			logger.Info(cmd.Context(), "fixture loaded", "path", a.cfg.Fixture, "entities", len(a.fixture.Entities))
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d entities\n", len(a.fixture.Entities))
			return nil
		},
	}
}

func messageOf(err error) string {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func formatProperties(p entity.Properties) string {
	codes := p.Codes()
	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = code + "=" + strings.Join(p[code].Values, ",")
	}
	return strings.Join(parts, " ")
}
