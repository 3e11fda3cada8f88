package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/luape/luape"
)

func main() {
	var numImportances int
	var printTree bool
	flag.IntVar(&numImportances, "importances", 10, "number of node importances to print")
	flag.BoolVar(&printTree, "print", false, "print the whole expression")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: model_info [flags] <model.json>")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
		os.Exit(1)
	}
	inputPath := args[0]

	log.Println("Loading model...")
	model, err := luape.Load(inputPath, luape.ReadModel)
	essentials.Must(err)

	fmt.Println("Output kind:", model.Universe.Type(model.Root))
	fmt.Println("Number of inputs:", len(model.Inputs()))
	fmt.Println("Number of nodes:", model.NumNodes())
	fmt.Println("Number of leaves:", model.NumLeaves())
	fmt.Println("Depth:", model.Depth())

	fmt.Println("Functions:", model.Universe.FunctionKeys())

	importances := model.Universe.Importances()
	if len(importances) > 0 {
		fmt.Println()
		fmt.Println("Importances:")
		for i, entry := range importances {
			if i >= numImportances {
				break
			}
			fmt.Printf("  %10.5f  %s\n", entry.Importance, model.Universe.Format(entry.Node))
		}
	}

	if printTree {
		fmt.Println()
		fmt.Println(model)
	}
}
