// postal-check compares the heuristic street normalizer against libpostal's
// expansions. It lives in its own binary because gopostal needs the
// libpostal C library at build time; the resolver itself does not.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	expand "github.com/openvenues/gopostal/expand"

	"github.com/lettings-radar/internal/normalize"
)

func main() {
	address := flag.String("address", "", "single address to check")
	flag.Parse()

	if *address != "" {
		check(*address)
		return
	}

	fmt.Println("reading addresses from stdin, one per line")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		check(line)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func check(address string) {
	fmt.Printf("input:      %s\n", address)
	fmt.Printf("normalizer: %s\n", normalize.NormalizeStreet(address))
	for i, e := range expand.ExpandAddress(address) {
		fmt.Printf("libpostal%d: %s\n", i, e)
	}
	fmt.Println()
}
