package commands

import (
	"fmt"
	"strings"

	"github.com/mscno/yaml2props/pkg/yaml"
)

type SchemasCmd struct {
	Tags bool `help:"Show the tags each schema accepts" default:"true" negatable:""`
}

func (c *SchemasCmd) Run(ctx *cliCtx) error {
	for _, s := range yaml.Schemas() {
		safety := "safe"
		if !s.Safe() {
			safety = failColor.Sprint("unsafe")
		}
		if !c.Tags {
			fmt.Printf("%-13s %s\n", s, safety)
			continue
		}
		fmt.Printf("%-13s %-6s %s\n", s, safety, dimColor.Sprint(strings.Join(s.Tags(), " ")))
	}
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *cliCtx) error {
	fmt.Printf("yaml2props %s\n", okColor.Sprint(ctx.Version))
	return nil
}
