// Command sieve-parse is a peripheral driver over the sieve package (not
// part of the core library): it checks the syntax of a single script file.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/migadu/sievekit/sieve"
)

func main() {
	if len(os.Args) != 3 || os.Args[1] != "parse" {
		fmt.Fprintln(os.Stderr, "usage: sieve-parse parse <path>")
		os.Exit(2)
	}

	path := os.Args[2]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	if _, err := sieve.Parse(string(data)); err != nil {
		var lexErr *sieve.LexError
		var parseErr *sieve.ParseError
		switch {
		case errors.As(err, &lexErr):
			fmt.Printf("line %d: %s\n", lexErr.Line, lexErr.Message)
		case errors.As(err, &parseErr):
			fmt.Printf("line %d: %s\n", parseErr.Line, parseErr.Message)
		default:
			fmt.Println(err)
		}
		os.Exit(1)
	}

	fmt.Println("Syntax OK")
}
