package cmdline

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/urfave/cli"
	"github.com/xrash/smetrics"
)

// minSimilarity is the lowest score a command needs to be suggested.
const minSimilarity = 0.6

// aliasHints map names from other tools to our commands.
var aliasHints = map[string]string{
	"concat": "cat",
	"info":   "stat",
	"write":  "patch",
}

type suggestion struct {
	name  string
	score float64
}

// similarity is 1.0 for equal strings and drops towards 0.0 with every edit.
// Substitutions count as two edits.
func similarity(a, b string) float64 {
	total := float64(len(a) + len(b))
	if total == 0 {
		return 1.0
	}

	return (total - float64(smetrics.WagnerFischer(a, b, 1, 1, 2))) / total
}

func findSimilarCommands(name string, cmds []cli.Command) []suggestion {
	similars := []suggestion{}
	for _, cmd := range cmds {
		best := 0.0
		for _, candidate := range append([]string{cmd.Name}, cmd.Aliases...) {
			if score := similarity(name, candidate); score > best {
				best = score
			}
		}

		if best >= minSimilarity {
			similars = append(similars, suggestion{name: cmd.Name, score: best})
		}
	}

	if hint, ok := aliasHints[name]; ok {
		similars = append(similars, suggestion{name: hint})
	}

	sort.SliceStable(similars, func(i, j int) bool {
		return similars[i].score > similars[j].score
	})

	return similars
}

func printSuggestions(w io.Writer, similars []suggestion) {
	switch len(similars) {
	case 0:
		fmt.Fprintln(w)
	case 1:
		fmt.Fprintf(w, "Did you maybe mean `%s`?\n", color.GreenString(similars[0].name))
	default:
		fmt.Fprintln(w, "\n\nDid you maybe mean one of those?")
		for _, similar := range similars {
			fmt.Fprintf(w, "  * %s\n", color.GreenString(similar.name))
		}
	}
}

// commandNotFound is called by cli for unknown commands, also for
// unknown subcommands of »config«.
func commandNotFound(ctx *cli.Context, name string) {
	w := ctx.App.Writer
	cmds := ctx.App.Commands

	if parent := ctx.Command.Name; parent != "" {
		fmt.Fprintf(w, "`%s` is not a valid subcommand of `%s`. ", color.RedString(name), color.YellowString(parent))
	} else {
		fmt.Fprintf(w, "`%s` is not a valid command. ", color.RedString(name))
	}

	printSuggestions(w, findSimilarCommands(name, cmds))
}
