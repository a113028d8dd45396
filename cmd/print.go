package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platform-mesh/graphql-module-gateway/common/auth"
	"github.com/platform-mesh/graphql-module-gateway/common/logger"
	"github.com/platform-mesh/graphql-module-gateway/gateway/manager"
	"github.com/platform-mesh/graphql-module-gateway/gateway/schema"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the assembled schema without serving it",
}

var printSchemaCmd = &cobra.Command{
	Use:     "schema",
	Short:   "Print the merged type definitions as SDL",
	Example: "go run main.go print schema --schemas-dir ./schemas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		unified, err := assembleOnce(cmd)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), unified.TypeDefs.String())
		return err
	},
}

var printResolversCmd = &cobra.Command{
	Use:   "resolvers",
	Short: "Print which resolver backs every field as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		unified, err := assembleOnce(cmd)
		if err != nil {
			return err
		}
		return writeResolvers(cmd.OutOrStdout(), unified)
	},
}

func init() {
	printCmd.AddCommand(printSchemaCmd)
	printCmd.AddCommand(printResolversCmd)
}

func assembleOnce(cmd *cobra.Command) (*schema.UnifiedSchema, error) {
	// keep stdout clean for the printed document
	quiet := logger.NewNop()

	opts := compiledIn(quiet, appCfg)
	// nothing is served, so skip fetching signing keys
	opts.Decoder = auth.NewUnverifiedDecoder(appCfg.Auth.Namespace)

	svc, err := manager.NewService(cmd.Context(), quiet, appCfg, opts)
	if err != nil {
		return nil, err
	}
	return svc.Schema()
}

// writeResolvers emits type -> field -> origin for every field with a resolver.
// Fields served by the default resolver are left out.
func writeResolvers(w io.Writer, unified *schema.UnifiedSchema) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, typeName := range unified.Resolvers.TypeNames() {
		fields := &yaml.Node{Kind: yaml.MappingNode}
		for _, field := range unified.Resolvers[typeName].FieldNames() {
			origin := unified.Origin(typeName, field)
			if origin == "" {
				continue
			}
			fields.Content = append(fields.Content, scalarNode(field), scalarNode(origin))
		}
		if len(fields.Content) == 0 {
			continue
		}
		root.Content = append(root.Content, scalarNode(typeName), fields)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	return enc.Close()
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
