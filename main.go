package main

import "github.com/platform-mesh/graphql-module-gateway/cmd"

func main() {
	cmd.Execute()
}
