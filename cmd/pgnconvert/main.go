// Command pgnconvert reads a PGN file and prints each game's moves
// converted from SAN to LAN, one game per line.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"ucidriver/internal/board"
	"ucidriver/internal/pgn"
	"ucidriver/internal/sanlan"
)

func main() {
	var (
		pgnPath = flag.String("pgn", "", "Path to PGN file to convert")
		verbose = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *pgnPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -pgn <path_to_pgn_file> [-v]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if _, err := os.Stat(*pgnPath); os.IsNotExist(err) {
		logger.Fatalf("PGN file does not exist: %s", *pgnPath)
	}

	data, err := os.ReadFile(*pgnPath)
	if err != nil {
		logger.Fatalf("Failed to read PGN file: %v", err)
	}

	games := pgn.ReadAll(string(data))
	logger.Infof("Parsed %d game(s) from %s", len(games), *pgnPath)

	for i, g := range games {
		b := board.New()
		lan := make([]string, 0, len(g.Moves))
		for _, san := range g.Moves {
			move, err := sanlan.Convert(b, san)
			if err != nil {
				logger.Warnf("game %d: stopping conversion at %q: %v", i+1, san, err)
				break
			}
			lan = append(lan, sanlan.Normalize(move))
		}
		event, _ := g.Header("Event")
		fmt.Printf("game %d [%s]: %s\n", i+1, event, strings.Join(lan, " "))
	}
}
