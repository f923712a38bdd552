package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/Enes830/testagentset/internal/models"
	"github.com/Enes830/testagentset/pkg/apierr"
	cfgPkg "github.com/Enes830/testagentset/pkg/config"
	"github.com/Enes830/testagentset/pkg/rag"
	"github.com/Enes830/testagentset/server"
)

type flags struct {
	configPath string
	serve      bool
	addr       string
	ingestText string
	ingestURL  string
	ingestFile string
	docName    string
}

func main() {
	// Optional .env for local development; ignore when absent.
	_ = godotenv.Load()

	f := parseFlags()

	config, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlagOverrides(config, f)

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e.Error())
		}
		os.Exit(1)
	}

	if err := run(config, f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.BoolVar(&f.serve, "serve", false, "Start the web UI server instead of the terminal chat")
	flag.StringVar(&f.addr, "addr", "", "Server listen address (with -serve)")
	flag.StringVar(&f.ingestText, "ingest-text", "", "Ingest the given text and exit")
	flag.StringVar(&f.ingestURL, "ingest-url", "", "Ingest a document from a URL and exit")
	flag.StringVar(&f.ingestFile, "ingest-file", "", "Upload and ingest a local file and exit")
	flag.StringVar(&f.docName, "name", "", "Document name for ingestion")

	// Config overrides
	flag.String("namespace", "", "Agentset namespace ID")
	flag.String("model", "", "OpenAI model to use")
	flag.Int("top-k", 0, "Maximum passages to retrieve per question")
	flag.Float64("min-score", -1, "Minimum relevance score in [0,1]")

	flag.Parse()
	return f
}

func applyFlagOverrides(config *cfgPkg.Config, f flags) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "namespace":
			config.Agentset.NamespaceID = fl.Value.String()
		case "model":
			config.OpenAI.Model = fl.Value.String()
		case "top-k":
			fmt.Sscanf(fl.Value.String(), "%d", &config.Retrieval.TopK)
		case "min-score":
			fmt.Sscanf(fl.Value.String(), "%g", &config.Retrieval.MinScore)
		}
	})
	if f.addr != "" {
		config.Server.Addr = f.addr
	}
}

func run(config *cfgPkg.Config, f flags) error {
	if f.serve {
		srv, err := server.New(config)
		if err != nil {
			return err
		}
		return srv.Run()
	}

	session, err := rag.New(config)
	if err != nil {
		return err
	}

	// One-shot ingestion modes
	switch {
	case f.ingestText != "":
		return ingestAndWait(session, models.Document{
			Source:  models.SourceText,
			Name:    f.docName,
			Content: f.ingestText,
		})
	case f.ingestURL != "":
		return ingestAndWait(session, models.Document{
			Source:  models.SourceURL,
			Name:    f.docName,
			Content: f.ingestURL,
		})
	case f.ingestFile != "":
		data, err := os.ReadFile(f.ingestFile)
		if err != nil {
			return fmt.Errorf("failed to read file: %v", err)
		}
		name := f.docName
		if name == "" {
			name = filepath.Base(f.ingestFile)
		}
		return ingestAndWait(session, models.Document{
			Source: models.SourceFile,
			Name:   name,
			Data:   data,
		})
	}

	return chatLoop(session, config)
}

func ingestAndWait(session *rag.Session, doc models.Document) error {
	ctx := context.Background()

	job, err := session.Ingest(ctx, doc)
	if err != nil {
		return err
	}
	color.Blue("Ingestion job %s created", job.ID)

	bar := getSpinner(" Indexing document...")
	job, err = session.WaitForJob(ctx, job.ID, func(j models.IngestJob) {
		bar.Describe(color.CyanString(" Indexing document (%s)...", j.Status))
	})
	bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	color.Green("Document indexed (job %s)", job.ID)
	return nil
}

func chatLoop(session *rag.Session, config *cfgPkg.Config) error {
	color.Cyan("\nRAG Playground — namespace %s, model %s", config.Agentset.NamespaceID, config.OpenAI.Model)
	color.Cyan("Ask a question, 'ingest <path-or-url>' to add a document, 'exit' to quit")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			break
		}

		if rest, ok := strings.CutPrefix(input, "ingest "); ok {
			if err := ingestFromInput(session, strings.TrimSpace(rest)); err != nil {
				printError(err)
			}
			continue
		}

		turn, err := askWithRetry(session, input)
		if err != nil {
			printError(err)
			continue
		}

		color.Cyan("\nAssistant: %s", turn.Answer)
		if len(turn.Context) > 0 {
			color.White("\nSources:")
			for _, p := range turn.Context {
				color.White("  [%.2f] %s", p.Score, p.Source)
			}
		}
	}

	return scanner.Err()
}

func ingestFromInput(session *rag.Session, target string) error {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return ingestAndWait(session, models.Document{
			Source:  models.SourceURL,
			Content: target,
		})
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}
	return ingestAndWait(session, models.Document{
		Source: models.SourceFile,
		Name:   filepath.Base(target),
		Data:   data,
	})
}

const (
	maxAskAttempts = 3
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 30 * time.Second
)

// askWithRetry retries rate-limited questions with capped exponential
// backoff, honoring the service's suggested delay when it gives one. All
// other errors surface immediately.
func askWithRetry(session *rag.Session, question string) (models.ChatTurn, error) {
	ctx := context.Background()

	var turn models.ChatTurn
	var err error
	for attempt := 0; attempt < maxAskAttempts; attempt++ {
		bar := getSpinner(" Thinking...")
		turn, err = session.Ask(ctx, question)
		bar.Finish()
		fmt.Println()

		retryAfter, rateLimited := apierr.IsRateLimit(err)
		if !rateLimited || attempt == maxAskAttempts-1 {
			return turn, err
		}

		delay := retryAfter
		if delay == 0 {
			delay = baseRetryDelay << attempt
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
		color.Yellow("Rate limited, retrying in %s...", delay)
		time.Sleep(delay)
	}
	return turn, err
}

func printError(err error) {
	switch {
	case apierr.IsValidation(err):
		color.Yellow("Invalid input: %v", err)
	case apierr.IsAuthentication(err):
		color.Red("Authentication failed: %v", err)
	default:
		if _, ok := apierr.IsRateLimit(err); ok {
			color.Yellow("Service is rate limiting requests, try again later: %v", err)
		} else {
			color.Red("Error: %v", err)
		}
	}
}
