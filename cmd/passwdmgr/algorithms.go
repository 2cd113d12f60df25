package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/laurinneff/passwd.mgr/internal/crypto"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List the supported encryption algorithms",
	Args:  cobra.NoArgs,
	RunE:  runAlgorithms,
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
}

type algorithmInfo struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Default bool     `json:"default,omitempty"`
}

func runAlgorithms(cmd *cobra.Command, args []string) error {
	infos := supportedAlgorithms(crypto.NewProvider())

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]interface{}{
			"algorithms": infos,
		})
	}

	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		line := info.Name
		if len(info.Aliases) > 0 {
			line += fmt.Sprintf(" (alias: %s)", strings.Join(info.Aliases, ", "))
		}
		lines = append(lines, line)
	}
	fmt.Fprintln(out, strings.Join(lines, ",\n"))
	return nil
}

func supportedAlgorithms(p crypto.Provider) []algorithmInfo {
	byName := make(map[string][]string)
	for alias, name := range p.Aliases() {
		byName[name] = append(byName[name], alias)
	}

	names := p.Algorithms()
	infos := make([]algorithmInfo, 0, len(names))
	for _, name := range names {
		aliases := byName[name]
		sort.Strings(aliases)
		infos = append(infos, algorithmInfo{
			Name:    name,
			Aliases: aliases,
			Default: name == crypto.DefaultAlgorithm,
		})
	}
	return infos
}
