package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ritamzico/cyql"
	"github.com/ritamzico/cyql/internal/config"
)

const helpText = `cyql interactive REPL

Commands:
  new <name>           Create a new empty graph
  load <name> <file>   Load a graph from a JSON file
  unload <name>        Remove a loaded graph
  list                 List all loaded graphs
  use <name>           Set the active graph for queries
  help                 Show this help message
  exit / quit          Exit the REPL

Any other input is treated as a Cypher-subset query against the active
graph.

Query examples:
  MATCH (a)-[:FOLLOWS]->(b) RETURN id(a), id(b) LIMIT 10
  MATCH (a)-[:FOLLOWS*1..3]->(b) WHERE a.name = "alice" RETURN id(b)
  MATCH (a)-[r]->(b) RETURN a.name, r, b.name ORDER BY a.name
`

func main() {
	graphs := make(map[string]*cyql.Instance)
	var active string

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("cyql — declarative property-graph query shell")
	fmt.Println(`Type "help" for available commands.`)
	fmt.Println()

	for {
		if active != "" {
			fmt.Printf("[%s]> ", active)
		} else {
			fmt.Print("> ")
		}

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "exit", "quit":
			return

		case "help":
			fmt.Print(helpText)

		case "list":
			if len(graphs) == 0 {
				fmt.Println("(no graphs loaded)")
			} else {
				for name := range graphs {
					marker := " "
					if name == active {
						marker = "*"
					}
					fmt.Printf("  %s %s\n", marker, name)
				}
			}

		case "new":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: new <name>")
				continue
			}
			name := parts[1]
			graphs[name] = cyql.New()
			if active == "" {
				active = name
			}
			fmt.Printf("created empty graph %q\n", name)

		case "use":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: use <name>")
				continue
			}
			name := parts[1]
			if _, ok := graphs[name]; !ok {
				fmt.Fprintf(os.Stderr, "no graph named %q\n", name)
				continue
			}
			active = name
			fmt.Printf("active graph set to %q\n", name)

		case "load":
			if len(parts) < 3 {
				fmt.Fprintln(os.Stderr, "usage: load <name> <file>")
				continue
			}
			name, path := parts[1], parts[2]
			inst, err := cyql.LoadFile(path, config.Default())
			if err != nil {
				fmt.Fprintf(os.Stderr, "error loading %q: %v\n", path, err)
				continue
			}
			graphs[name] = inst
			if active == "" {
				active = name
			}
			fmt.Printf("loaded %q (%d nodes)\n", name, len(inst.Graph.Nodes()))

		case "unload":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: unload <name>")
				continue
			}
			name := parts[1]
			if _, ok := graphs[name]; !ok {
				fmt.Fprintf(os.Stderr, "no graph named %q\n", name)
				continue
			}
			delete(graphs, name)
			if active == name {
				active = ""
			}
			fmt.Printf("unloaded %q\n", name)

		default:
			if active == "" {
				fmt.Fprintln(os.Stderr, "no active graph — use 'load' or 'new' first")
				continue
			}
			res, err := graphs[active].Query(context.Background(), line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "query error: %v\n", err)
				continue
			}
			b, err := cyql.MarshalResultJSON(res)
			if err != nil {
				fmt.Fprintf(os.Stderr, "marshal error: %v\n", err)
				continue
			}
			var pretty any
			if err := json.Unmarshal(b, &pretty); err == nil {
				out, _ := json.MarshalIndent(pretty, "", "  ")
				fmt.Println(string(out))
			} else {
				fmt.Println(string(b))
			}
		}
	}
}
