// Package main provides the yaml2props CLI tool for converting YAML files into
// Java .properties files.
package main

import "github.com/mscno/yaml2props/cmd/yaml2props/commands"

func main() {
	commands.Execute(Version)
}
