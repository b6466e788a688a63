package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Rorical/RoriTable/internal/tools"
)

type toolDeclaration struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// describeTools converts the model-facing declarations to plain maps so they
// print with the same keys the model sees.
func describeTools(registry *tools.Registry) ([]toolDeclaration, error) {
	var out []toolDeclaration
	for _, def := range registry.Definitions() {
		raw, err := json.Marshal(def.Function.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode %s parameters: %w", def.Function.Name, err)
		}
		var params map[string]any
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("decode %s parameters: %w", def.Function.Name, err)
		}
		out = append(out, toolDeclaration{
			Name:        def.Function.Name,
			Description: def.Function.Description,
			Parameters:  params,
		})
	}
	return out, nil
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tools offered to the model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := tools.NewRegistry(tools.Builtin(tools.Deps{})...)
		if err != nil {
			return err
		}
		decls, err := describeTools(registry)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(decls); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
