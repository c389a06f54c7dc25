// webgen: AI web application generator.
//
// Usage:
//
//	webgen serve              # MCP server (stdio transport)
//	webgen http               # HTTP API and static previews
//	webgen build <dir>        # npm install + build of a Vue project
//	webgen diff <a> <b>       # file diff of two project directories
//	webgen config init        # write a default webgen.yaml
package main

import (
	"fmt"
	"os"

	"github.com/ROTl24/ai-web-generator/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
