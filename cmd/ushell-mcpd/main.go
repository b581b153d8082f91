// Command ushell-mcpd serves the unified-shell MCP protocol over TCP.
package main

func main() {
	Execute()
}
