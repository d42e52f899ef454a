package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"insider_screener/pkg/core/assistant"
	"insider_screener/pkg/core/export"
	"insider_screener/pkg/core/llm"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on environment")
	}

	csvPath := flag.String("csv", "form4_data_fixed.csv", "screener output CSV to answer questions about")
	model := flag.String("model", "", "override the Gemini model")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *csvPath).Msg("failed to open CSV")
	}
	records, err := export.ReadCSV(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Str("path", *csvPath).Msg("failed to load CSV")
	}

	bot := assistant.New(&llm.GeminiProvider{Model: *model}, records)

	fmt.Printf("Loaded %d transactions from %s. Ask about insider activity (Ctrl-D to quit).\n", len(records), *csvPath)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		answer, err := bot.Answer(context.Background(), question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(answer)
	}
}
